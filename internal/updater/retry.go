package updater

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/skillkit-labs/skillkit/internal/logger"
)

// RetryConfig bounds network retries.
type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultRetry is used when no RetryConfig is given.
var DefaultRetry = RetryConfig{Attempts: 3, Delay: 500 * time.Millisecond, MaxDelay: 5 * time.Second}

// permanentError marks a failure that retrying cannot fix, such as a 404.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var p *permanentError
	return !errors.As(err, &p)
}

// withRetry runs op with exponential backoff until it succeeds, fails
// permanently, or the attempts run out.
func withRetry(ctx context.Context, cfg RetryConfig, what string, op func() error) error {
	if cfg.Attempts == 0 {
		cfg = DefaultRetry
	}
	return retry.Do(
		op,
		retry.RetryIf(isRetryable),
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.Delay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("max_attempts", cfg.Attempts).Warnf("retrying %s", what)
		}),
	)
}
