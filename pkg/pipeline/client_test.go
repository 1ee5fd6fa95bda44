package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/sheldonz/invoscan/pkg/vision"
)

// scriptedProvider plays back a fixed sequence of outcomes and records what
// it was asked.
type scriptedProvider struct {
	script  []scriptStep
	calls   int
	prompts []string
}

type scriptStep struct {
	content string
	err     error
}

func (p *scriptedProvider) Extract(_ context.Context, req vision.Request) (*vision.Response, error) {
	step := p.script[min(p.calls, len(p.script)-1)]
	p.calls++
	p.prompts = append(p.prompts, req.Prompt)

	if step.err != nil {
		return nil, step.err
	}
	return &vision.Response{Content: step.content, Model: "test-model"}, nil
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "test-model" }

// noSleep replaces the backoff sleep and records requested delays.
func noSleep(into *[]time.Duration) func(time.Duration) {
	return func(d time.Duration) { *into = append(*into, d) }
}

func TestExtractionClient_SuccessFirstAttempt(t *testing.T) {
	p := &scriptedProvider{script: []scriptStep{{content: `{"total": 12.5}`}}}
	c := NewExtractionClient(p, 3)
	c.sleep = func(time.Duration) { t.Error("no sleep expected on immediate success") }

	resp, err := c.Extract(context.Background(), vision.Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if resp.Content != `{"total": 12.5}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

// A provider failing with network errors on all but the last attempt must
// succeed after exactly maxRetries calls.
func TestExtractionClient_RetriesUntilBudget(t *testing.T) {
	netErr := vision.NewError(vision.ErrNetwork, "scripted", "connection refused")
	p := &scriptedProvider{script: []scriptStep{
		{err: netErr},
		{err: netErr},
		{content: "ok"},
	}}
	c := NewExtractionClient(p, 3)
	var delays []time.Duration
	c.sleep = noSleep(&delays)

	resp, err := c.Extract(context.Background(), vision.Request{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want ok", resp.Content)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want exactly 3", p.calls)
	}

	// Backoff doubles: 2s after the first failure, 4s after the second.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) || delays[0] != want[0] || delays[1] != want[1] {
		t.Errorf("delays = %v, want %v", delays, want)
	}
}

func TestExtractionClient_AuthFailsImmediately(t *testing.T) {
	p := &scriptedProvider{script: []scriptStep{
		{err: vision.NewError(vision.ErrAuth, "scripted", "invalid key")},
	}}
	c := NewExtractionClient(p, 5)
	var delays []time.Duration
	c.sleep = noSleep(&delays)

	_, err := c.Extract(context.Background(), vision.Request{})
	if err == nil {
		t.Fatal("expected auth error")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want exactly 1", p.calls)
	}
	if len(delays) != 0 {
		t.Errorf("delays = %v, want none", delays)
	}
	if vision.KindOf(err) != vision.ErrAuth {
		t.Errorf("kind = %q, want auth", vision.KindOf(err))
	}
}

func TestExtractionClient_RateLimitUsesLongerBackoff(t *testing.T) {
	p := &scriptedProvider{script: []scriptStep{
		{err: vision.NewError(vision.ErrRateLimit, "scripted", "throttled")},
		{content: "ok"},
	}}
	c := NewExtractionClient(p, 2)
	var delays []time.Duration
	c.sleep = noSleep(&delays)

	if _, err := c.Extract(context.Background(), vision.Request{}); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(delays) != 1 || delays[0] != 8*time.Second {
		t.Errorf("delays = %v, want [8s]", delays)
	}
}

func TestExtractionClient_ExhaustionReturnsLastError(t *testing.T) {
	lastErr := vision.NewError(vision.ErrTimeout, "scripted", "deadline exceeded")
	p := &scriptedProvider{script: []scriptStep{{err: lastErr}}}
	c := NewExtractionClient(p, 3)
	var delays []time.Duration
	c.sleep = noSleep(&delays)

	_, err := c.Extract(context.Background(), vision.Request{})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
	if vision.KindOf(err) != vision.ErrTimeout {
		t.Errorf("kind = %q, want timeout", vision.KindOf(err))
	}
	// No sleep after the final attempt.
	if len(delays) != 2 {
		t.Errorf("delays = %v, want 2 entries", delays)
	}
}

func TestExtractionClient_ObserverSeesEveryAttempt(t *testing.T) {
	p := &scriptedProvider{script: []scriptStep{
		{err: vision.NewError(vision.ErrNetwork, "scripted", "boom")},
		{content: "ok"},
	}}

	var events []vision.CallEvent
	obs := vision.ObserverFunc(func(_ context.Context, ev vision.CallEvent) {
		events = append(events, ev)
	})

	c := NewExtractionClient(p, 3, WithObserver(obs))
	var delays []time.Duration
	c.sleep = noSleep(&delays)

	if _, err := c.Extract(context.Background(), vision.Request{}); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Attempt != 1 || events[0].Err == nil || events[0].RetryIn != 2*time.Second {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Attempt != 2 || events[1].Err != nil {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestNewExtractionClient_ClampsRetries(t *testing.T) {
	c := NewExtractionClient(&scriptedProvider{script: []scriptStep{{content: "x"}}}, 0)
	if c.MaxRetries() != 1 {
		t.Errorf("MaxRetries() = %d, want 1", c.MaxRetries())
	}
}
