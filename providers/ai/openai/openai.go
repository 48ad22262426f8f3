package openai

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/aichat/providers/ai"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"

	// EnvAPIKey names the variable holding the OpenAI credential.
	EnvAPIKey = "OPENAI_API_KEY"
)

// OpenAIProvider implements ai.StreamProvider for api.openai.com and
// compatible gateways.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ ai.StreamProvider = (*OpenAIProvider)(nil)

// New creates an OpenAI provider from OPENAI_API_KEY and OPENAI_API_BASE_URL.
func New() *OpenAIProvider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIProvider{
		apiKey:  os.Getenv(EnvAPIKey),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider
func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API. An empty value keeps the current one.
func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	if baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	if httpClient != nil {
		p.client = httpClient
	}
	return p
}

func (p *OpenAIProvider) Validate() error {
	return ai.RequireKeys("", EnvAPIKey, p.apiKey)
}

// SendMessage implements the Provider interface
func (p *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return sendChatCompletion(ctx, p.endpoint(), requestFromGeneric(request, true))
}

// StreamMessage implements ai.StreamProvider. The final chunk carries token
// usage because stream_options.include_usage is set.
func (p *OpenAIProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	body := requestFromGeneric(request, true)
	body.StreamOptions = &streamOptions{IncludeUsage: true}
	return streamChatCompletion(ctx, p.endpoint(), body)
}

func (p *OpenAIProvider) endpoint() endpoint {
	return endpoint{
		name:   "openai",
		url:    p.baseURL + chatCompletionsEndpoint,
		bearer: p.apiKey,
		client: p.client,
	}
}
