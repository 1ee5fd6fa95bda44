package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenRouterProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenRouterProvider(ProviderConfig{Kind: ProviderOpenRouter})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}

	if KindOf(err) != ErrConfig {
		t.Errorf("expected config error, got %q", KindOf(err))
	}
}

// TestOpenRouterProvider_Extract_TagsMIMEFromBytes drives PNG bytes through
// the adapter and checks the outgoing data URL is tagged from the magic
// numbers, not from whatever the caller claimed.
func TestOpenRouterProvider_Extract_TagsMIMEFromBytes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("HTTP-Referer"); got != openRouterReferer {
			t.Errorf("HTTP-Referer = %q, want %q", got, openRouterReferer)
		}
		if got := r.Header.Get("X-Title"); got != openRouterTitle {
			t.Errorf("X-Title = %q, want %q", got, openRouterTitle)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 {
			t.Fatalf("expected one message with text+image parts, got %+v", req.Messages)
		}

		imageURL := req.Messages[0].Content[1].ImageURL.URL
		if !strings.HasPrefix(imageURL, "data:image/png;base64,") {
			t.Errorf("image URL = %.40q..., want data:image/png prefix", imageURL)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-123",
			"model": "qwen/qwen2.5-vl-72b-instruct",
			"choices": [{"message": {"role": "assistant", "content": "total: 42.00"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 10}
		}`))
	}))
	defer ts.Close()

	p, err := NewOpenRouterProvider(ProviderConfig{
		Kind:    ProviderOpenRouter,
		APIKey:  "sk-or-test",
		Model:   "qwen/qwen2.5-vl-72b-instruct",
		BaseURL: ts.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenRouterProvider() error = %v", err)
	}

	// Deliberately mislabel the payload; the adapter must re-sniff.
	resp, err := p.Extract(context.Background(), Request{
		Prompt: "report the total",
		Image:  ImageData{Bytes: pngHeader, MIME: "application/octet-stream"},
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if resp.Content != "total: 42.00" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 100 {
		t.Errorf("InputTokens = %d, want 100", resp.Usage.InputTokens)
	}
}

func TestOpenRouterProvider_Extract_AuthError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "auth_error"}}`))
	}))
	defer ts.Close()

	p, err := NewOpenRouterProvider(ProviderConfig{
		Kind:    ProviderOpenRouter,
		APIKey:  "sk-or-bad",
		BaseURL: ts.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenRouterProvider() error = %v", err)
	}

	_, err = p.Extract(context.Background(), Request{Prompt: "x", Image: NewImageData(pngHeader)})
	if KindOf(err) != ErrAuth {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestOpenRouterProvider_ListModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-or-test" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"qwen/qwen2.5-vl-72b-instruct","name":"Qwen2.5 VL 72B","description":"vision"}]}`))
	}))
	defer ts.Close()

	p, err := NewOpenRouterProvider(ProviderConfig{
		Kind:    ProviderOpenRouter,
		APIKey:  "sk-or-test",
		BaseURL: ts.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenRouterProvider() error = %v", err)
	}

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}

	if len(models) != 1 || models[0].ID != "qwen/qwen2.5-vl-72b-instruct" {
		t.Errorf("unexpected models: %+v", models)
	}
}
