package embedding

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

type retryingProvider struct {
	next       Provider
	maxRetries uint64
	base       time.Duration
}

// WithRetry retries failed Embed calls with exponential backoff. Context
// cancellation is never retried.
func WithRetry(next Provider, maxRetries int, base time.Duration) Provider {
	if maxRetries <= 0 {
		return next
	}
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	return &retryingProvider{next: next, maxRetries: uint64(maxRetries), base: base}
}

func (r *retryingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.WithJitter(r.base/4, retry.NewExponential(r.base)))

	var vec []float32
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		vec, err = r.next.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}
