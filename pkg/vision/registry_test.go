package vision

import (
	"sort"
	"testing"
)

func TestNewProvider_UnknownKind(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Kind: "gemini"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}

	if KindOf(err) != ErrConfig {
		t.Errorf("expected config error, got %q", KindOf(err))
	}
}

func TestNewProvider_Ollama(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Kind: ProviderOllama})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if p.Name() != ProviderOllama {
		t.Errorf("Name() = %q, want %q", p.Name(), ProviderOllama)
	}
}

func TestAvailableProviders_SortedAndComplete(t *testing.T) {
	providers := AvailableProviders()

	if !sort.StringsAreSorted(providers) {
		t.Errorf("AvailableProviders() not sorted: %v", providers)
	}

	for _, kind := range []string{ProviderOllama, ProviderVolcengine, ProviderOpenRouter} {
		if !IsRegistered(kind) {
			t.Errorf("provider %q not registered", kind)
		}
	}
}

func TestGetDefaultModel(t *testing.T) {
	if GetDefaultModel(ProviderOllama) == "" {
		t.Error("expected a default model for ollama")
	}

	if GetDefaultModel("nope") != "" {
		t.Error("expected empty default for unknown provider")
	}
}

func TestDetectProvider_PrefersOpenRouter(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("ARK_API_KEY", "ark-test")

	kind, key := DetectProvider()
	if kind != ProviderOpenRouter || key != "sk-or-test" {
		t.Errorf("DetectProvider() = %q, %q; want openrouter with its key", kind, key)
	}
}

func TestDetectProvider_FallsBackToOllama(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("ARK_API_KEY", "")

	kind, key := DetectProvider()
	if kind != ProviderOllama || key != "" {
		t.Errorf("DetectProvider() = %q, %q; want ollama with no key", kind, key)
	}
}
