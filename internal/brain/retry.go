package brain

import (
	"context"
	"errors"
	"time"

	"github.com/antoniostano/penny/internal/reliability"
	"github.com/antoniostano/penny/internal/session"
)

// RetryBrain re-attempts the wrapped brain on retryable provider statuses.
// With MaxAttempts 1 it preserves the single-attempt provider policy.
type RetryBrain struct {
	next        Brain
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
}

func NewRetryBrain(next Brain, maxAttempts int) *RetryBrain {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &RetryBrain{
		next:        next,
		maxAttempts: maxAttempts,
		backoffBase: 200 * time.Millisecond,
		backoffCap:  2 * time.Second,
	}
}

func (b *RetryBrain) Reply(ctx context.Context, systemPrompt string, history []session.Turn) (string, error) {
	var lastErr error
	for attempt := 0; attempt < b.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, b.backoffBase, b.backoffCap)):
			}
		}

		text, err := b.next.Reply(ctx, systemPrompt, history)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var provErr *ProviderError
		if !errors.As(err, &provErr) || !reliability.IsRetryableHTTPStatus(provErr.Status) {
			return "", err
		}
	}
	return "", lastErr
}
