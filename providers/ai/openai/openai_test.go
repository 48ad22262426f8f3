package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
)

// writeSSE writes one SSE data event and flushes it to the client.
func writeSSE(writer http.ResponseWriter, data string) {
	fmt.Fprintf(writer, "data: %s\n\n", data)
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

func newTestProvider(serverURL string) *OpenAIProvider {
	p := New()
	p.WithAPIKey("test-key")
	p.WithBaseURL(serverURL)
	return p
}

var transcript = []ai.Message{
	{Role: ai.RoleSystem, Content: "You are ChatGPT, a large language model."},
	{Role: ai.RoleUser, Content: "2+2?"},
}

func TestNew_ReadsEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_API_BASE_URL", "")

	p := New()
	if p.apiKey != "env-key" {
		t.Errorf("apiKey = %q", p.apiKey)
	}
	if p.baseURL != defaultBaseURL {
		t.Errorf("baseURL = %q, want default", p.baseURL)
	}
}

// TestSendMessage_Success checks the outgoing request shape (bearer auth,
// model, inline system message) and the extraction of choices[0].
func TestSendMessage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Model != "gpt-3.5-turbo" {
			t.Errorf("model = %q", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || *body.Messages[1].Content != "2+2?" {
			t.Errorf("unexpected messages %+v", body.Messages)
		}
		if body.Stream {
			t.Error("sync request must not set stream")
		}

		fmt.Fprint(w, `{"id":"chatcmpl-1","model":"gpt-3.5-turbo","choices":[
			{"index":0,"message":{"role":"assistant","content":"4"},"finish_reason":"stop"},
			{"index":1,"message":{"role":"assistant","content":"four"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":5,"completion_tokens":1,"total_tokens":6}}`)
	}))
	defer server.Close()

	resp, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{
		Model:    "gpt-3.5-turbo",
		Messages: transcript,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.Content != "4" {
		t.Errorf("content = %q, want first choice", resp.Content)
	}
	if resp.FinishReason != "stop" || resp.Id != "chatcmpl-1" {
		t.Errorf("unexpected metadata %+v", resp)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 6 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestSendMessage_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"x","choices":[]}`)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("expected no choices error, got %v", err)
	}
}

func TestSendMessage_StatusErrorIsWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	var statusErr *utils.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected wrapped 401 StatusError, got %v", err)
	}
}

// TestSendMessage_MissingKeyNeverCallsNetwork verifies the credential check
// happens before any request is built.
func TestSendMessage_MissingKeyNeverCallsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	p.WithAPIKey("")

	_, err := p.SendMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	var missing *ai.MissingConfigError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingConfigError, got %v", err)
	}
	if missing.Placeholder() != "[OPENAI_API_KEY missing]" {
		t.Errorf("placeholder = %q", missing.Placeholder())
	}

	if _, err := p.StreamMessage(context.Background(), ai.ChatRequest{Messages: transcript}); !errors.As(err, &missing) {
		t.Errorf("stream: expected MissingConfigError, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("server called %d times", calls.Load())
	}
}

// TestStreamMessage_ContentChunksInOrder streams three fragments and checks
// they arrive in order, followed by usage and the finish reason.
func TestStreamMessage_ContentChunksInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !body.Stream || body.StreamOptions == nil || !body.StreamOptions.IncludeUsage {
			t.Errorf("expected stream with usage, got %+v", body)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, `{"id":"c1","model":"gpt","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}`)
		for _, fragment := range []string{"Hel", "lo", " world"} {
			writeSSE(w, fmt.Sprintf(`{"id":"c1","model":"gpt","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, fragment))
		}
		writeSSE(w, `{"id":"c1","model":"gpt","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		writeSSE(w, `{"id":"c1","model":"gpt","choices":[],"usage":{"prompt_tokens":4,"completion_tokens":3,"total_tokens":7}}`)
		writeSSE(w, `[DONE]`)
	}))
	defer server.Close()

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}

	var fragments []string
	var finish string
	var usage *ai.Usage
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		switch event.Type {
		case ai.StreamEventContent:
			fragments = append(fragments, event.Content)
		case ai.StreamEventDone:
			finish = event.FinishReason
		case ai.StreamEventUsage:
			usage = event.Usage
		}
	}

	if strings.Join(fragments, "|") != "Hel|lo| world" {
		t.Errorf("fragments = %q", fragments)
	}
	if finish != "stop" {
		t.Errorf("finish = %q", finish)
	}
	if usage == nil || usage.TotalTokens != 7 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestStreamMessage_PreStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).StreamMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected 429 error, got %v", err)
	}
}

func TestStreamMessage_ContextCanceledMidStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, `{"choices":[{"index":0,"delta":{"content":"a"}}]}`)
		writeSSE(w, `{"choices":[{"index":0,"delta":{"content":"b"}}]}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := newTestProvider(server.URL).StreamMessage(ctx, ai.ChatRequest{Messages: transcript})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}

	var gotErr error
	for event, err := range stream.Iter() {
		if err != nil {
			gotErr = err
			break
		}
		if event.Content == "a" {
			cancel()
		}
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", gotErr)
	}
}

func TestChunkToStreamEvents_IgnoresOtherChoices(t *testing.T) {
	content := "x"
	other := "y"
	events := chunkToStreamEvents(&chatCompletionStreamChunk{Choices: []streamChoice{
		{Index: 1, Delta: streamDelta{Content: &other}},
		{Index: 0, Delta: streamDelta{Content: &content}},
	}})
	if len(events) != 1 || events[0].Content != "x" {
		t.Errorf("events = %+v", events)
	}
}
