package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryTransient retries fn with exponential backoff until it
// succeeds, the context is cancelled, or maxElapsed passes. The
// executor itself never retries whole pipelines; task bodies wrap
// their transient calls (LLM completions, remote stores) with this.
func RetryTransient(ctx context.Context, maxElapsed time.Duration, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed
	return backoff.Retry(fn, backoff.WithContext(policy, ctx))
}
