package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leofalp/aichat/providers/ai"
)

func newTestAzure(serverURL string) *AzureProvider {
	p := NewAzure()
	p.WithAPIKey("azure-key")
	p.WithBaseURL(serverURL + "/")
	p.WithDeployment("gpt35").WithAPIVersion("2024-02-15-preview")
	return p
}

func TestNewAzure_DefaultAPIVersion(t *testing.T) {
	t.Setenv(EnvAzureAPIVersion, "")
	t.Setenv(EnvAzureEndpoint, "https://res.openai.azure.com/")
	t.Setenv(EnvAzureDeployment, "chat")

	p := NewAzure()
	want := "https://res.openai.azure.com/openai/deployments/chat/chat/completions?api-version=2024-02-15-preview"
	if got := p.DeploymentURL(); got != want {
		t.Errorf("DeploymentURL() = %q, want %q", got, want)
	}
}

// TestAzureSendMessage_RoutesByDeployment checks the deployment URL, the
// api-key header and that neither a bearer token nor a model is sent.
func TestAzureSendMessage_RoutesByDeployment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/gpt35/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != "2024-02-15-preview" {
			t.Errorf("api-version = %q", got)
		}
		if got := r.Header.Get("api-key"); got != "azure-key" {
			t.Errorf("api-key = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("unexpected Authorization %q", got)
		}

		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := raw["model"]; ok {
			t.Error("model must not be sent to Azure")
		}

		fmt.Fprint(w, `{"id":"a1","choices":[{"index":0,"message":{"role":"assistant","content":"6"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	resp, err := newTestAzure(server.URL).SendMessage(context.Background(), ai.ChatRequest{
		Model:    "ignored",
		Messages: transcript,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.Content != "6" {
		t.Errorf("content = %q", resp.Content)
	}
}

// TestAzureStream_SkipsFilterOnlyChunk covers the leading Azure chunk that
// carries only prompt filter results.
func TestAzureStream_SkipsFilterOnlyChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, `{"id":"","choices":[],"prompt_filter_results":[{"prompt_index":0}]}`)
		writeSSE(w, `{"id":"a","choices":[{"index":0,"delta":{"content":"Hi"}}]}`)
		writeSSE(w, `{"id":"a","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		writeSSE(w, `[DONE]`)
	}))
	defer server.Close()

	stream, err := newTestAzure(server.URL).StreamMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	resp, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if resp.Content != "Hi" || resp.FinishReason != "stop" {
		t.Errorf("unexpected response %+v", resp)
	}
}

// TestAzureValidate_ListsAllMissingNames verifies the placeholder names every
// absent setting in declaration order.
func TestAzureValidate_ListsAllMissingNames(t *testing.T) {
	tests := []struct {
		name string
		p    *AzureProvider
		want string
	}{
		{
			"all missing",
			&AzureProvider{apiVersion: defaultAzureAPIVersion},
			"[Azure OpenAI config missing: AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT]",
		},
		{
			"deployment missing",
			&AzureProvider{apiKey: "k", endpoint: "https://x"},
			"[Azure OpenAI config missing: AZURE_OPENAI_DEPLOYMENT]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var missing *ai.MissingConfigError
			if !errors.As(tt.p.Validate(), &missing) {
				t.Fatal("expected MissingConfigError")
			}
			if got := missing.Placeholder(); got != tt.want {
				t.Errorf("Placeholder() = %q, want %q", got, tt.want)
			}
		})
	}

	complete := &AzureProvider{apiKey: "k", endpoint: "https://x", deployment: "d"}
	if err := complete.Validate(); err != nil {
		t.Errorf("expected complete config to validate, got %v", err)
	}
}
