package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sheldonz/invoscan/internal/version"
)

// OllamaProvider communicates with a local or LAN Ollama instance.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg ProviderConfig) (*OllamaProvider, error) {
	host, hostPort := normalizeHost(cfg.Host)
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if hostPort != 0 {
		// OLLAMA_HOST is commonly "host:port" or a full URL; an embedded
		// port wins over the configured one.
		port = hostPort
	}
	if port == 0 {
		port = 11434
	}

	model := cfg.Model
	if model == "" {
		model = "llama3.2-vision"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &OllamaProvider{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// normalizeHost accepts the forms OLLAMA_HOST shows up in: a bare host,
// "host:port", or a full URL. Returns the host and the embedded port
// (0 when none).
func normalizeHost(host string) (string, int) {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimSuffix(host, "/")

	if h, p, err := net.SplitHostPort(host); err == nil {
		if port, err := strconv.Atoi(p); err == nil {
			return h, port
		}
		return h, 0
	}
	return host, 0
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// Extract sends one image with an instruction to Ollama's chat endpoint.
func (p *OllamaProvider) Extract(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	ollamaReq := ollamaRequest{
		Model: p.model,
		Messages: []ollamaMessage{
			{
				Role:    "user",
				Content: req.Prompt,
				Images:  []string{req.Image.Base64()},
			},
		},
		Stream: false,
	}

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(p.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus(p.Name(), resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, WrapError(ErrNetwork, p.Name(), "failed to decode response", err)
	}

	content := strings.TrimSpace(ollamaResp.Message.Content)
	if content == "" {
		return nil, NewError(ErrEmptyResponse, p.Name(), "model returned no content")
	}

	return &Response{
		Content: content,
		Model:   ollamaResp.Model,
		Usage: Usage{
			InputTokens:  ollamaResp.PromptEvalCount,
			OutputTokens: ollamaResp.EvalCount,
		},
		Duration: time.Since(start),
	}, nil
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return ProviderOllama
}

// Model returns the configured model name.
func (p *OllamaProvider) Model() string {
	return p.model
}

// ListModels fetches available models from the local Ollama instance.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyTransport(p.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus(p.Name(), resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		Models []struct {
			Name    string `json:"name"`
			Details struct {
				ParameterSize     string `json:"parameter_size"`
				QuantizationLevel string `json:"quantization_level"`
			} `json:"details"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(ErrNetwork, p.Name(), "failed to decode response", err)
	}

	models := make([]ModelInfo, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, ModelInfo{
			ID:          m.Name,
			Name:        m.Name,
			Description: fmt.Sprintf("%s (%s)", m.Details.ParameterSize, m.Details.QuantizationLevel),
		})
	}

	return models, nil
}

// Ensure OllamaProvider implements required interfaces
var (
	_ Provider    = (*OllamaProvider)(nil)
	_ ModelLister = (*OllamaProvider)(nil)
)
