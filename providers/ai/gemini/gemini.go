package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/observability"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is used when the request does not name one.
	DefaultModel = "gemini-pro"

	EnvAPIKey = "GEMINI_API_KEY"
)

// GeminiProvider implements the ai.StreamProvider interface for Google's Gemini API.
type GeminiProvider struct {
	apiKey           string
	baseURL          string
	client           *http.Client
	cumulativeChunks bool
}

var _ ai.StreamProvider = (*GeminiProvider)(nil)

// New creates a new Gemini provider instance with default values from environment.
// Environment variables:
//   - GEMINI_API_KEY: API key for authentication
//   - GEMINI_API_BASE_URL: Base URL for API (optional, defaults to Google's API)
func New() *GeminiProvider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GeminiProvider{
		apiKey:  os.Getenv(EnvAPIKey),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *GeminiProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API. An empty value keeps the current one.
func (p *GeminiProvider) WithBaseURL(baseURL string) ai.Provider {
	if baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *GeminiProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	if httpClient != nil {
		p.client = httpClient
	}
	return p
}

// WithCumulativeChunks is for gateways whose stream events resend the whole
// text so far instead of only the new part. Off by default.
func (p *GeminiProvider) WithCumulativeChunks() *GeminiProvider {
	p.cumulativeChunks = true
	return p
}

func (p *GeminiProvider) Validate() error {
	return ai.RequireKeys("", EnvAPIKey, p.apiKey)
}

// modelURL builds {base}/models/{model}:{method}. The key travels in the
// x-goog-api-key header so it never appears in logged URLs.
func (p *GeminiProvider) modelURL(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", p.baseURL, url.PathEscape(model), method)
}

func (p *GeminiProvider) headers() []utils.HeaderOption {
	return []utils.HeaderOption{{Key: "x-goog-api-key", Value: p.apiKey}}
}

func (p *GeminiProvider) annotate(ctx context.Context, model string, messages int, streaming bool) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "gemini"),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, model),
			observability.Bool(observability.AttrLLMStreaming, streaming),
		)
	}
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, "Gemini provider preparing request",
			observability.String(observability.AttrLLMModel, model),
			observability.Int(observability.AttrRequestMessagesCount, messages),
		)
	}
}

// SendMessage implements the ai.Provider interface.
func (p *GeminiProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	model := request.Model
	if model == "" {
		model = DefaultModel
	}
	p.annotate(ctx, model, len(request.Messages), false)

	httpResponse, resp, err := utils.DoPostSync[generateContentResponse](ctx, p.client, p.modelURL(model, "generateContent"), "", requestToGemini(request), p.headers()...)
	if err != nil {
		return nil, fmt.Errorf("gemini generateContent: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from Gemini API: %s", httpResponse.Status)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("gemini generateContent: prompt blocked (%s)", resp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("gemini generateContent: no candidates in response")
	}

	out := responseToGeneric(resp)
	if out.Model == "" {
		out.Model = model
	}
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventLLMRequestEnd)
		span.SetAttributes(observability.String(observability.AttrLLMFinishReason, out.FinishReason))
	}
	return out, nil
}
