package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sheldonz/invoscan/internal/version"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	// OpenRouter's routing layer wants to know who is calling. These two
	// headers are fixed for this tool.
	openRouterReferer = "https://github.com/sheldonz/invoscan"
	openRouterTitle   = "invoscan"
)

// OpenRouterProvider calls OpenRouter's chat completions API. OpenRouter
// enforces the content type declared in image data URLs, so the MIME type is
// always re-detected from the byte stream here, never taken from the caller.
type OpenRouterProvider struct {
	client     openai.Client
	httpClient *http.Client
	model      string
	apiKey     string
	modelsURL  string
}

// NewOpenRouterProvider creates a new OpenRouter provider.
func NewOpenRouterProvider(cfg ProviderConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, NewError(ErrConfig, ProviderOpenRouter, "API key required")
	}

	model := cfg.Model
	if model == "" {
		model = "qwen/qwen2.5-vl-72b-instruct:free"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHeader("HTTP-Referer", openRouterReferer),
		option.WithHeader("X-Title", openRouterTitle),
		// The extraction client owns the retry policy; the SDK must not
		// retry underneath it or attempt accounting breaks.
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenRouterProvider{
		client:     openai.NewClient(opts...),
		httpClient: &http.Client{Timeout: 30 * time.Second}, // for the models API
		model:      model,
		apiKey:     cfg.APIKey,
		modelsURL:  baseURL + "/models",
	}, nil
}

// Extract sends one image with an instruction to OpenRouter.
func (p *OpenRouterProvider) Extract(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	// Re-sniff from magic numbers; a mislabeled extension would get the
	// whole request rejected.
	image := NewImageData(req.Image.Bytes)

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: image.DataURL(),
		}),
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(req.Temperature),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyAPIError(p.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewError(ErrEmptyResponse, p.Name(), "no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, NewError(ErrEmptyResponse, p.Name(), "model returned no content")
	}

	return &Response{
		Content: content,
		Model:   resp.Model,
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		Duration: time.Since(start),
	}, nil
}

// Name returns the provider identifier.
func (p *OpenRouterProvider) Name() string {
	return ProviderOpenRouter
}

// Model returns the configured model name.
func (p *OpenRouterProvider) Model() string {
	return p.model
}

// ListModels fetches all available models from OpenRouter.
func (p *OpenRouterProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.modelsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(p.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(ErrNetwork, p.Name(), "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(p.Name(), resp.StatusCode, string(body))
	}

	var result struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, WrapError(ErrNetwork, p.Name(), "failed to parse response", err)
	}

	models := make([]ModelInfo, 0, len(result.Data))
	for _, m := range result.Data {
		models = append(models, ModelInfo{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
		})
	}

	return models, nil
}

// Ensure OpenRouterProvider implements required interfaces
var (
	_ Provider    = (*OpenRouterProvider)(nil)
	_ ModelLister = (*OpenRouterProvider)(nil)
)
