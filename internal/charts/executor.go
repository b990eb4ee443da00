package charts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// Executor runs chart code and drives the bounded self-repair loop.
type Executor struct {
	Runner      Runner
	ChartDir    string        // prefix the output path must start with
	BaseDir     string        // relative output paths resolve against this; "" means cwd
	MaxAttempts int           // total executions, default 2
	RepairDelay time.Duration // pause before re-running patched code
	Log         logrus.FieldLogger
}

func (e *Executor) logger() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

func (e *Executor) resolve(p string) string {
	if filepath.IsAbs(p) || e.BaseDir == "" {
		return filepath.FromSlash(p)
	}
	return filepath.Join(e.BaseDir, filepath.FromSlash(p))
}

// Execute returns the output path named in code once the image exists.
// Failures: ErrMissingOutputPath (nothing run), ErrSilentFailure,
// *UnrecoverableError, or a wrapped runner/infrastructure error.
func (e *Executor) Execute(ctx context.Context, code string, ds *dataset.Dataset) (string, error) {
	out, ok := ExtractOutputPath(code, e.ChartDir)
	if !ok {
		return "", ErrMissingOutputPath
	}
	maxAttempts := e.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	log := e.logger().WithField("chart", out)
	if ds != nil {
		log = log.WithField("dataset", ds.Name)
	}
	target := e.resolve(out)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	// a leftover image from an earlier run must not count as output
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("clear stale chart: %w", err)
	}

	code = NormalizeStyle(code)
	for attempt := 1; ; attempt++ {
		err := e.Runner.Run(ctx, code, ds)
		if err == nil {
			if _, statErr := os.Stat(target); statErr != nil {
				log.WithField("attempt", attempt).Warn("chart code ran but no image was written")
				return "", ErrSilentFailure
			}
			log.WithField("attempt", attempt).Info("chart saved")
			return out, nil
		}

		var execErr *ExecError
		if !errors.As(err, &execErr) {
			return "", fmt.Errorf("run chart: %w", err)
		}
		category := Classify(code, execErr.Message)
		flog := log.WithFields(logrus.Fields{"attempt": attempt, "category": category.String()})
		flog.WithError(err).Warn("chart execution failed")

		patch, known := PatchFor(category)
		if !known {
			flog.Warn("no repair for this failure; giving up")
			return "", &UnrecoverableError{Category: category, Attempts: attempt, Err: err}
		}
		if attempt >= maxAttempts {
			flog.Warn("repair attempts exhausted")
			return "", &UnrecoverableError{Category: category, Attempts: attempt, Err: err}
		}
		code = patch(code)
		flog.Info("patched chart code; retrying")
		if err := sleepCtx(ctx, e.RepairDelay); err != nil {
			return "", err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
