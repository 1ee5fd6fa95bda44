package vision

import (
	"context"
	"time"
)

// Observer receives a notification after every provider call, successful or
// not. The extraction client fires it once per attempt so callers can log
// retries, collect latency metrics, or surface per-attempt progress.
//
// Implementations should return quickly; they run on the extraction path.
type Observer interface {
	OnCall(ctx context.Context, event CallEvent)
}

// CallEvent describes one provider call attempt.
type CallEvent struct {
	// Provider and model that served the attempt.
	Provider string
	Model    string

	// Attempt number, 1-based. Attempt 1 is the initial call.
	Attempt int

	// Duration of this call.
	Duration time.Duration

	// Err is nil on success.
	Err error

	// RetryIn is the planned backoff before the next attempt.
	// Zero when no further attempt will be made.
	RetryIn time.Duration

	// StartedAt is when this attempt began.
	StartedAt time.Time
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event CallEvent)

// OnCall implements Observer.
func (f ObserverFunc) OnCall(ctx context.Context, event CallEvent) {
	f(ctx, event)
}
