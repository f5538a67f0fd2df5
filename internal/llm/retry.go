package llm

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// WithRetry retries transport failures up to maxRetries times with
// exponential backoff. Auth errors, timeouts and cancellations are final.
// maxRetries <= 0 returns g unchanged.
func WithRetry(g Generator, maxRetries int) Generator {
	if maxRetries <= 0 {
		return g
	}
	return &retrying{
		next:       g,
		maxRetries: uint64(maxRetries),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

type retrying struct {
	next       Generator
	maxRetries uint64
	// BackOff implementations are stateful; build a fresh one per call.
	newBackOff func() backoff.BackOff
}

func (r *retrying) Generate(ctx context.Context, systemPrompt string, format Format) (string, error) {
	var out string
	bo := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
	err := backoff.Retry(func() error {
		text, err := r.next.Generate(ctx, systemPrompt, format)
		if err == nil {
			out = text
			return nil
		}
		if errors.Is(err, ErrTransport) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}, bo)
	if err != nil {
		return "", err
	}
	return out, nil
}

// Unwrap returns the wrapped generator.
func (r *retrying) Unwrap() Generator {
	return r.next
}
