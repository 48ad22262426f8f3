package ai

import (
	"context"
	"net/http"
)

// Provider is the interface every vendor backend satisfies.
type Provider interface {
	// SendMessage sends the transcript and returns the completed answer.
	// A backend missing credentials returns a *MissingConfigError without
	// making any network call.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// Validate reports a *MissingConfigError naming every absent setting,
	// or nil when the backend can be called.
	Validate() error

	// WithAPIKey sets the API key used for authenticating requests.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}

// StreamProvider is implemented by backends that can stream answers over
// SSE. Callers detect support via type assertion and otherwise fall back to
// SendMessage wrapped in NewSingleEventStream.
type StreamProvider interface {
	Provider
	// StreamMessage returns a ChatStream yielding deltas as they arrive.
	// Pre-stream errors (configuration, auth, network) are returned
	// directly; mid-stream errors are yielded through the iterator.
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}
