package pipeline

import (
	"context"
	"time"

	"github.com/relloyd/campaignpipe/constants"
)

// RetryPolicy is applied by the executor to each task invocation.
// A task is attempted at most MaxRetries+1 times with a fixed Delay between attempts.
type RetryPolicy struct {
	MaxRetries int           `json:"maxRetries" yaml:"maxRetries"`
	Delay      time.Duration `json:"delay" yaml:"delay"`
}

// DefaultRetryPolicy returns two retries two minutes apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: constants.RetryMaxRetriesDefault,
		Delay:      constants.RetryDelaySecsDefault * time.Second,
	}
}

// MaxAttempts returns the total number of attempts allowed.
func (r RetryPolicy) MaxAttempts() int {
	if r.MaxRetries < 0 {
		return 1
	}
	return r.MaxRetries + 1
}

// Sleeper blocks for the retry delay. Sleep returns early with the context error if ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
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
