package pipeline

import (
	"context"
	"time"

	"github.com/sheldonz/invoscan/internal/logger"
	"github.com/sheldonz/invoscan/pkg/vision"
)

const (
	// baseRetryDelay doubles on each retryable failure: 2s, 4s, 8s, ...
	baseRetryDelay = 2 * time.Second
	// rateLimitRetryDelay is the longer base used after a 429, so a
	// throttled provider is not immediately hammered again.
	rateLimitRetryDelay = 8 * time.Second
)

// ExtractionClient wraps a provider with the per-file retry policy. It owns
// all attempt accounting: maxRetries is the total number of attempts, and a
// non-retryable error consumes the file's budget immediately.
type ExtractionClient struct {
	provider   vision.Provider
	maxRetries int
	observer   vision.Observer
	sleep      func(time.Duration)
}

// ClientOption customizes an ExtractionClient.
type ClientOption func(*ExtractionClient)

// WithObserver installs a per-attempt observer.
func WithObserver(obs vision.Observer) ClientOption {
	return func(c *ExtractionClient) { c.observer = obs }
}

// NewExtractionClient builds a client around provider. maxRetries below 1 is
// clamped to 1 (every file gets at least one attempt).
func NewExtractionClient(provider vision.Provider, maxRetries int, opts ...ClientOption) *ExtractionClient {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c := &ExtractionClient{
		provider:   provider,
		maxRetries: maxRetries,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract calls the provider until it succeeds, a non-retryable error
// occurs, or the attempt budget is spent. Backoff sleeps block the caller
// between attempts. The returned error is the last underlying cause.
func (c *ExtractionClient) Extract(ctx context.Context, req vision.Request) (*vision.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		started := time.Now()
		resp, err := c.provider.Extract(ctx, req)
		duration := time.Since(started)

		if err == nil {
			c.notify(ctx, vision.CallEvent{
				Provider:  c.provider.Name(),
				Model:     c.provider.Model(),
				Attempt:   attempt,
				Duration:  duration,
				StartedAt: started,
			})
			logger.Debug("extraction succeeded",
				"provider", c.provider.Name(),
				"attempt", attempt,
				"duration_ms", duration.Milliseconds())
			return resp, nil
		}

		lastErr = err
		retrying := vision.IsRetryable(err) && attempt < c.maxRetries

		var delay time.Duration
		if retrying {
			delay = retryDelay(err, attempt)
		}

		c.notify(ctx, vision.CallEvent{
			Provider:  c.provider.Name(),
			Model:     c.provider.Model(),
			Attempt:   attempt,
			Duration:  duration,
			Err:       err,
			RetryIn:   delay,
			StartedAt: started,
		})

		if !vision.IsRetryable(err) {
			logger.Debug("extraction failed, not retryable",
				"provider", c.provider.Name(),
				"attempt", attempt,
				"kind", string(vision.KindOf(err)),
				"error", err)
			return nil, err
		}
		if !retrying {
			break
		}

		logger.Warn("extraction attempt failed, retrying",
			"provider", c.provider.Name(),
			"attempt", attempt,
			"max_attempts", c.maxRetries,
			"retry_in", delay,
			"error", err)
		c.sleep(delay)
	}

	logger.Debug("extraction attempts exhausted",
		"provider", c.provider.Name(),
		"attempts", c.maxRetries,
		"error", lastErr)
	return nil, lastErr
}

// MaxRetries returns the total attempt budget per file.
func (c *ExtractionClient) MaxRetries() int {
	return c.maxRetries
}

func (c *ExtractionClient) notify(ctx context.Context, ev vision.CallEvent) {
	if c.observer != nil {
		c.observer.OnCall(ctx, ev)
	}
}

// retryDelay doubles the base per attempt already spent.
func retryDelay(err error, attempt int) time.Duration {
	base := baseRetryDelay
	if vision.KindOf(err) == vision.ErrRateLimit {
		base = rateLimitRetryDelay
	}
	return base << (attempt - 1)
}
