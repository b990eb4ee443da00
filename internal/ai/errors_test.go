package ai

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTypedErrorMessages(t *testing.T) {
	base := &APIError{StatusCode: 429, Code: "rate_limit", Message: "slow down"}
	cases := []struct {
		err  error
		want string
	}{
		{&AuthError{APIError: base}, "api key rejected: api error: status=429"},
		{&RateLimitError{APIError: base, RetryAfter: 3 * time.Second}, "rate limited (retry in 3s): "},
		{&RateLimitError{APIError: base}, "rate limited: api error"},
		{&ModelNotFoundError{APIError: base}, "unknown model: "},
		{&BadRequestError{APIError: base}, "request rejected: "},
		{&QuotaExceededError{APIError: base}, "quota exhausted: "},
		{&ServerError{APIError: base}, "provider failure: "},
	}
	for _, tc := range cases {
		msg := tc.err.Error()
		if !strings.HasPrefix(msg, tc.want) || !strings.Contains(msg, "message=slow down") {
			t.Fatalf("%T: got %q, want prefix %q", tc.err, msg, tc.want)
		}
	}
}

func TestUnreachableErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &UnreachableError{Host: "http://127.0.0.1:11434", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("expected the dial error to be reachable via errors.Is")
	}
	if got := err.Error(); got != "provider unreachable at http://127.0.0.1:11434: connection refused" {
		t.Fatalf("unexpected message %q", got)
	}
}
