package cascade

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/govorun-bot/govorun/pkg/provider/stt"
)

// RetryPolicy bounds repeated attempts of a single provider call. Only
// transient failures are retried; hard failures and empty transcripts are
// returned to the cascade immediately.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries for one call, including the
	// first. Values below 2 disable retrying.
	MaxAttempts uint

	// InitialInterval seeds the exponential backoff between attempts.
	InitialInterval time.Duration
}

// callWithRetry invokes t once, retrying transient failures per policy.
func callWithRetry(ctx context.Context, policy RetryPolicy, t stt.Transcriber, wavPath, language string) (string, error) {
	if policy.MaxAttempts < 2 {
		return t.Transcribe(ctx, wavPath, language)
	}

	op := func() (string, error) {
		text, err := t.Transcribe(ctx, wavPath, language)
		if err != nil && !stt.IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		return text, err
	}

	expo := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		expo.InitialInterval = policy.InitialInterval
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(policy.MaxAttempts),
	)
}
