package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/observability"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"

	messagesEndpoint = "/messages"

	// anthropicVersion pins the response format independently of the URL.
	anthropicVersion = "2023-06-01"

	// DefaultModel is used when the request does not name one.
	DefaultModel = "claude-3-sonnet-20240229"

	// DefaultMaxTokens is sent when neither the provider nor the request set a limit.
	DefaultMaxTokens = 1024

	EnvAPIKey = "ANTHROPIC_API_KEY"
)

// AnthropicProvider implements [ai.StreamProvider] for Anthropic's Messages API.
type AnthropicProvider struct {
	apiKey    string
	baseURL   string
	maxTokens int
	client    *http.Client
}

var _ ai.StreamProvider = (*AnthropicProvider)(nil)

// New returns an [AnthropicProvider] initialized from ANTHROPIC_API_KEY and
// ANTHROPIC_API_BASE_URL.
func New() *AnthropicProvider {
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &AnthropicProvider{
		apiKey:    os.Getenv(EnvAPIKey),
		baseURL:   baseURL,
		maxTokens: DefaultMaxTokens,
		client:    &http.Client{},
	}
}

func (p *AnthropicProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL. An empty value keeps the current one.
func (p *AnthropicProvider) WithBaseURL(baseURL string) ai.Provider {
	if baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	return p
}

func (p *AnthropicProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	if httpClient != nil {
		p.client = httpClient
	}
	return p
}

// WithMaxTokens sets the max_tokens sent when the request leaves it at zero.
func (p *AnthropicProvider) WithMaxTokens(maxTokens int) *AnthropicProvider {
	if maxTokens > 0 {
		p.maxTokens = maxTokens
	}
	return p
}

func (p *AnthropicProvider) Validate() error {
	return ai.RequireKeys("", EnvAPIKey, p.apiKey)
}

// buildHeaders returns the headers every Anthropic request carries: the
// credential travels in x-api-key rather than a bearer token.
func (p *AnthropicProvider) buildHeaders() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-api-key", Value: p.apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
}

func (p *AnthropicProvider) buildRequest(request ai.ChatRequest) anthropicRequest {
	model := request.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	return requestFromGeneric(request, model, maxTokens)
}

func (p *AnthropicProvider) annotate(ctx context.Context, body anthropicRequest, streaming bool) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "anthropic"),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, body.Model),
			observability.Bool(observability.AttrLLMStreaming, streaming),
		)
	}
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, "Anthropic provider preparing request",
			observability.String(observability.AttrLLMModel, body.Model),
			observability.Int(observability.AttrRequestMessagesCount, len(body.Messages)),
		)
	}
}

// SendMessage posts the transcript to the Messages API and returns the joined
// text blocks of the answer.
func (p *AnthropicProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	body := p.buildRequest(request)
	p.annotate(ctx, body, false)

	httpResponse, resp, err := utils.DoPostSync[anthropicResponse](ctx, p.client, p.baseURL+messagesEndpoint, "", body, p.buildHeaders()...)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from Anthropic API: %s", httpResponse.Status)
	}

	out := responseToGeneric(*resp)
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventLLMRequestEnd)
		span.SetAttributes(
			observability.String(observability.AttrLLMResponseID, out.Id),
			observability.String(observability.AttrLLMFinishReason, out.FinishReason),
		)
	}
	return out, nil
}
