package openai

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
)

const (
	defaultAzureAPIVersion = "2024-02-15-preview"

	EnvAzureAPIKey     = "AZURE_OPENAI_API_KEY"
	EnvAzureEndpoint   = "AZURE_OPENAI_ENDPOINT"
	EnvAzureDeployment = "AZURE_OPENAI_DEPLOYMENT"
	EnvAzureAPIVersion = "AZURE_OPENAI_API_VERSION"

	azureConfigLabel = "Azure OpenAI config"
)

// AzureProvider talks to an Azure OpenAI deployment. The wire format is the
// same as OpenAI's; the URL names the deployment and the key travels in the
// api-key header.
type AzureProvider struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	client     *http.Client
}

var _ ai.StreamProvider = (*AzureProvider)(nil)

// NewAzure creates an Azure provider from the AZURE_OPENAI_* variables.
func NewAzure() *AzureProvider {
	apiVersion := os.Getenv(EnvAzureAPIVersion)
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}
	return &AzureProvider{
		apiKey:     os.Getenv(EnvAzureAPIKey),
		endpoint:   strings.TrimRight(os.Getenv(EnvAzureEndpoint), "/"),
		deployment: os.Getenv(EnvAzureDeployment),
		apiVersion: apiVersion,
		client:     &http.Client{},
	}
}

func (p *AzureProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the resource endpoint, e.g. https://name.openai.azure.com.
func (p *AzureProvider) WithBaseURL(baseURL string) ai.Provider {
	p.endpoint = strings.TrimRight(baseURL, "/")
	return p
}

func (p *AzureProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	if httpClient != nil {
		p.client = httpClient
	}
	return p
}

func (p *AzureProvider) WithDeployment(deployment string) *AzureProvider {
	p.deployment = deployment
	return p
}

// WithAPIVersion sets the api-version query parameter. An empty value keeps the current one.
func (p *AzureProvider) WithAPIVersion(apiVersion string) *AzureProvider {
	if apiVersion != "" {
		p.apiVersion = apiVersion
	}
	return p
}

// Validate lists every missing Azure setting at once.
func (p *AzureProvider) Validate() error {
	return ai.RequireKeys(azureConfigLabel,
		EnvAzureAPIKey, p.apiKey,
		EnvAzureEndpoint, p.endpoint,
		EnvAzureDeployment, p.deployment,
	)
}

func (p *AzureProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return sendChatCompletion(ctx, p.target(), requestFromGeneric(request, false))
}

func (p *AzureProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return streamChatCompletion(ctx, p.target(), requestFromGeneric(request, false))
}

// DeploymentURL returns the chat completions URL for the configured deployment.
func (p *AzureProvider) DeploymentURL() string {
	return p.endpoint + "/openai/deployments/" + url.PathEscape(p.deployment) +
		"/chat/completions?api-version=" + url.QueryEscape(p.apiVersion)
}

func (p *AzureProvider) target() endpoint {
	return endpoint{
		name:    "azure",
		url:     p.DeploymentURL(),
		headers: []utils.HeaderOption{{Key: "api-key", Value: p.apiKey}},
		client:  p.client,
	}
}
