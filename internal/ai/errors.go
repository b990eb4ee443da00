package ai

import (
	"fmt"
	"time"
)

// Each typed error embeds *APIError so the provider's status, code and
// message stay in the printed text.

// AuthError is a rejected key (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return "api key rejected: " + e.APIError.Error()
}

// RateLimitError is a 429. RetryAfter is zero when the provider sent no hint.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry in %s): %s", e.RetryAfter.Round(time.Second), e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}

// ModelNotFoundError means the configured model is unknown to the provider.
// Check `model` in the config or pass --model.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return "unknown model: " + e.APIError.Error()
}

// BadRequestError is a 400, usually an oversized prompt or an image the
// model cannot take.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return "request rejected: " + e.APIError.Error() }

// QuotaExceededError signals an exhausted quota or billing problem.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string {
	return "quota exhausted: " + e.APIError.Error()
}

// ServerError is a 5xx that survived every retry.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return "provider failure: " + e.APIError.Error() }

// UnreachableError means no HTTP response came back at all, typically a local
// Ollama that is not running.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "provider unreachable"
	}
	if e.Host == "" {
		return fmt.Sprintf("provider unreachable: %v", e.Err)
	}
	return fmt.Sprintf("provider unreachable at %s: %v", e.Host, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }
