// internal/paginate/retry.go
package paginate

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Classifier reports whether a failed fetch should be retried.
type Classifier func(err error) bool

// RetryPolicy bounds how a single request is retried.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxAttempts is the number of retries after the first failure.
	MaxAttempts int
	Retryable   Classifier
	// OnRetry, when set, is called before every wait.
	OnRetry func(err error, wait time.Duration)
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts)), ctx)
}

// Do runs op and retries it while the error is classified as retryable and
// the retry budget is not exhausted. The last error is returned as is.
func Do[T any](ctx context.Context, p RetryPolicy, logger *slog.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return v, backoff.Permanent(ctxErr)
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Retrying upstream request", "attempt", attempt, "wait", wait.String(), "error", err)
		if p.OnRetry != nil {
			p.OnRetry(err, wait)
		}
	}

	return backoff.RetryNotifyWithData(operation, p.backOff(ctx), notify)
}

// IsTimeout reports whether err is a network or deadline timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
