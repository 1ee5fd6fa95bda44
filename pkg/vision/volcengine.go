package vision

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// arkBaseURL is Volcengine's OpenAI-compatible chat completions surface.
const arkBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

// VolcengineProvider calls the Volcengine Ark vision service. Ark routes
// requests by inference endpoint, not by model name: the wire-level "model"
// field carries the endpoint ID (ep-...), while the configured model name is
// kept only for display.
type VolcengineProvider struct {
	client     openai.Client
	endpointID string
	model      string
}

// NewVolcengineProvider creates a new Volcengine Ark provider.
func NewVolcengineProvider(cfg ProviderConfig) (*VolcengineProvider, error) {
	if cfg.APIKey == "" {
		return nil, NewError(ErrConfig, ProviderVolcengine, "API key required")
	}
	if cfg.EndpointID == "" {
		return nil, NewError(ErrConfig, ProviderVolcengine,
			"endpoint ID required (the ep-... inference endpoint, not the model name)")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(arkBaseURL),
		// The extraction client owns the retry policy; the SDK must not
		// retry underneath it or attempt accounting breaks.
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &VolcengineProvider{
		client:     openai.NewClient(opts...),
		endpointID: cfg.EndpointID,
		model:      cfg.Model,
	}, nil
}

// Extract sends one image with an instruction to the configured Ark endpoint.
func (p *VolcengineProvider) Extract(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: req.Image.DataURL(),
		}),
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	params := openai.ChatCompletionNewParams{
		// Ark expects the endpoint ID here.
		Model: openai.ChatModel(p.endpointID),
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
func (p *VolcengineProvider) Name() string {
	return ProviderVolcengine
}

// Model returns the configured model name, falling back to the endpoint ID.
func (p *VolcengineProvider) Model() string {
	if p.model != "" {
		return p.model
	}
	return p.endpointID
}

// EndpointID returns the Ark inference endpoint this provider calls.
func (p *VolcengineProvider) EndpointID() string {
	return p.endpointID
}

// Ensure VolcengineProvider implements required interfaces
var (
	_ Provider = (*VolcengineProvider)(nil)
	// Note: Ark has no public model listing endpoint, so no ModelLister here.
)
