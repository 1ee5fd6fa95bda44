package vision

import (
	"os"
	"sort"
	"strings"
)

// ProviderFactory creates providers from config.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// DefaultModels maps provider kinds to their default models.
var DefaultModels = map[string]string{
	ProviderOllama:     "llama3.2-vision",
	ProviderVolcengine: "doubao-1.5-vision-pro-32k",
	ProviderOpenRouter: "qwen/qwen2.5-vl-72b-instruct:free",
}

var registry = map[string]ProviderFactory{}

func init() {
	// Register all built-in providers
	RegisterProvider(ProviderOllama, func(cfg ProviderConfig) (Provider, error) {
		return NewOllamaProvider(cfg)
	})
	RegisterProvider(ProviderVolcengine, func(cfg ProviderConfig) (Provider, error) {
		return NewVolcengineProvider(cfg)
	})
	RegisterProvider(ProviderOpenRouter, func(cfg ProviderConfig) (Provider, error) {
		return NewOpenRouterProvider(cfg)
	})
}

// NewProvider constructs the provider selected by cfg.Kind.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	factory, ok := registry[cfg.Kind]
	if !ok {
		return nil, NewError(ErrConfig, cfg.Kind,
			"unknown provider (available: "+strings.Join(AvailableProviders(), ", ")+")")
	}
	return factory(cfg)
}

// RegisterProvider adds a custom provider factory.
func RegisterProvider(kind string, factory ProviderFactory) {
	registry[kind] = factory
}

// AvailableProviders returns the registered provider kinds, sorted.
func AvailableProviders() []string {
	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// IsRegistered returns true if a provider kind is registered.
func IsRegistered(kind string) bool {
	_, ok := registry[kind]
	return ok
}

// DetectProvider picks a provider based on available API keys.
// Priority: OPENROUTER_API_KEY > ARK_API_KEY > ollama (no key needed).
func DetectProvider() (kind string, apiKey string) {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		return ProviderOpenRouter, key
	}

	if key := os.Getenv("ARK_API_KEY"); key != "" {
		return ProviderVolcengine, key
	}

	// Fall back to Ollama (no key required)
	return ProviderOllama, ""
}

// GetDefaultModel returns the default model for a provider kind.
func GetDefaultModel(kind string) string {
	if model, ok := DefaultModels[kind]; ok {
		return model
	}
	return ""
}
