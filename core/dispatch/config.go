package dispatch

import (
	"net/http"

	"github.com/leofalp/aichat/internal/config"
	"github.com/leofalp/aichat/providers/ai/anthropic"
	"github.com/leofalp/aichat/providers/ai/gemini"
	"github.com/leofalp/aichat/providers/ai/openai"
)

// FromConfig registers the four vendor backends under their selector names.
// Credentials come from cfg only, so a key left out of cfg stays missing even
// when the process environment carries it. A nil httpClient keeps each
// backend's default client.
func FromConfig(cfg *config.Config, httpClient *http.Client, opts ...Option) *Dispatcher {
	openAI := openai.New()
	openAI.WithAPIKey(cfg.OpenAI.APIKey)
	openAI.WithBaseURL(cfg.OpenAI.BaseURL)
	openAI.WithHttpClient(httpClient)

	azure := openai.NewAzure().
		WithDeployment(cfg.Azure.Deployment).
		WithAPIVersion(cfg.Azure.APIVersion)
	azure.WithAPIKey(cfg.Azure.APIKey)
	azure.WithBaseURL(cfg.Azure.Endpoint)
	azure.WithHttpClient(httpClient)

	geminiProvider := gemini.New()
	geminiProvider.WithAPIKey(cfg.Gemini.APIKey)
	geminiProvider.WithBaseURL(cfg.Gemini.BaseURL)
	geminiProvider.WithHttpClient(httpClient)

	claude := anthropic.New().WithMaxTokens(cfg.Claude.MaxTokens)
	claude.WithAPIKey(cfg.Claude.APIKey)
	claude.WithBaseURL(cfg.Claude.BaseURL)
	claude.WithHttpClient(httpClient)

	return New(opts...).
		Register(config.ProviderOpenAI, openAI, cfg.OpenAI.Model).
		Register(config.ProviderAzure, azure, "").
		Register(config.ProviderGemini, geminiProvider, cfg.Gemini.Model).
		Register(config.ProviderClaude, claude, cfg.Claude.Model)
}
