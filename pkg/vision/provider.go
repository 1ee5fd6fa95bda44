// Package vision provides a unified interface for vision-model providers.
//
// Every backend implements Provider: one image plus one instruction in, raw
// model text out. Shared pipeline code never inspects which backend is in
// use; the registry constructs the right implementation from a ProviderConfig
// once per run.
package vision

import (
	"context"
	"time"
)

// Provider kinds accepted by the registry.
const (
	ProviderOllama     = "ollama"
	ProviderVolcengine = "volcengine"
	ProviderOpenRouter = "openrouter"
)

// Request carries one extraction call: the page image and the instruction
// telling the model what to report.
type Request struct {
	Prompt      string
	Image       ImageData
	MaxTokens   int
	Temperature float64
}

// Usage tracks token consumption when the backend reports it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the raw result of a provider call. Content is the unparsed
// model text; interpretation happens downstream.
type Response struct {
	Content  string
	Model    string // actual model used (may differ from requested for auto-routing)
	Usage    Usage
	Duration time.Duration
}

// Provider is the contract every vision backend implements.
type Provider interface {
	// Extract sends one image with an instruction and returns the raw
	// model text. Failures are *Error values carrying the unified kind
	// taxonomy; the provider's original message is preserved as the cause.
	Extract(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g. "ollama", "openrouter").
	Name() string

	// Model returns the configured model name.
	Model() string
}

// ModelInfo describes one model a provider can serve.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ModelLister is an optional interface for providers that can enumerate
// their available models. Not every backend has a listing endpoint.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// CanListModels returns true if the provider implements ModelLister.
func CanListModels(p Provider) bool {
	_, ok := p.(ModelLister)
	return ok
}

// AsModelLister returns the provider as a ModelLister if it implements the interface.
func AsModelLister(p Provider) (ModelLister, bool) {
	ml, ok := p.(ModelLister)
	return ml, ok
}

// ProviderConfig holds the full provider selection for one batch run.
// It is an immutable value: built once from persisted configuration,
// passed by value, never mutated mid-run.
type ProviderConfig struct {
	Kind string // one of ProviderOllama, ProviderVolcengine, ProviderOpenRouter

	// Ollama
	Host string
	Port int

	// Volcengine: the Ark inference endpoint (ep-...). This is what goes on
	// the wire; Model is display metadata only. The two are easy to confuse,
	// so the adapter refuses an empty EndpointID up front.
	EndpointID string

	// Volcengine and OpenRouter
	APIKey string

	// BaseURL overrides the OpenRouter endpoint (proxies, tests).
	// Empty means the public API.
	BaseURL string

	Model string

	// MaxRetries is the total attempt budget per file, consumed by the
	// extraction client, not by the adapters themselves.
	MaxRetries int

	// Timeout bounds a single provider call.
	Timeout time.Duration
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Kind:       ProviderOllama,
		Host:       "localhost",
		Port:       11434,
		MaxRetries: 3,
		Timeout:    120 * time.Second,
	}
}
