package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/aichat/providers/ai"
)

func newTestProvider(serverURL string) *GeminiProvider {
	p := New()
	p.WithAPIKey("test-key")
	p.WithBaseURL(serverURL)
	return p
}

func writeSSE(w http.ResponseWriter, data string) {
	fmt.Fprintf(w, "data: %s\n\n", data)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

var transcript = []ai.Message{
	{Role: ai.RoleSystem, Content: "You are ChatGPT, a large language model."},
	{Role: ai.RoleUser, Content: "2+2?"},
	{Role: ai.RoleAssistant, Content: "4"},
	{Role: ai.RoleUser, Content: "3+3?"},
}

// TestSendMessage_MapsRolesAndJoinsParts checks the endpoint, the key header,
// the systemInstruction lift, the assistant to model role mapping and the
// concatenation of candidate text parts.
func TestSendMessage_MapsRolesAndJoinsParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-pro:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("x-goog-api-key = %q", got)
		}
		if r.URL.Query().Get("key") != "" {
			t.Error("api key must not be in the URL")
		}

		var body generateContentRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.SystemInstruction == nil || body.SystemInstruction.Parts[0].Text != "You are ChatGPT, a large language model." {
			t.Errorf("systemInstruction = %+v", body.SystemInstruction)
		}
		roles := make([]string, 0, len(body.Contents))
		for _, c := range body.Contents {
			roles = append(roles, c.Role)
		}
		if strings.Join(roles, ",") != "user,model,user" {
			t.Errorf("roles = %v", roles)
		}

		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[
			{"text":"thinking...","thought":true},{"text":"Si"},{"text":"x"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":8,"candidatesTokenCount":1,"totalTokenCount":9},
			"responseId":"resp-1"}`)
	}))
	defer server.Close()

	resp, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.Content != "Six" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FinishReason != ai.FinishReasonStop || resp.Model != DefaultModel || resp.Id != "resp-1" {
		t.Errorf("unexpected metadata %+v", resp)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 9 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestSendMessage_BlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).SendMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Errorf("expected blocked error, got %v", err)
	}
}

func TestSendMessage_MissingKey(t *testing.T) {
	p := New()
	p.WithAPIKey("")
	_, err := p.SendMessage(context.Background(), ai.ChatRequest{Messages: transcript})

	var missing *ai.MissingConfigError
	if !errors.As(err, &missing) || missing.Placeholder() != "[GEMINI_API_KEY missing]" {
		t.Errorf("expected GEMINI_API_KEY placeholder, got %v", err)
	}
}

// TestStreamMessage_IncrementalChunks covers the common alt=sse behaviour
// where every event carries only the new text.
func TestStreamMessage_IncrementalChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-pro:streamGenerateContent" || r.URL.Query().Get("alt") != "sse" {
			t.Errorf("unexpected URL %s", r.URL)
		}
		for _, fragment := range []string{"Hel", "lo", " world"} {
			writeSSE(w, fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, fragment))
		}
		writeSSE(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":""}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":5}}`)
	}))
	defer server.Close()

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}

	var fragments []string
	var finish string
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		switch event.Type {
		case ai.StreamEventContent:
			fragments = append(fragments, event.Content)
		case ai.StreamEventDone:
			finish = event.FinishReason
		}
	}
	if strings.Join(fragments, "|") != "Hel|lo| world" {
		t.Errorf("fragments = %q", fragments)
	}
	if finish != ai.FinishReasonStop {
		t.Errorf("finish = %q", finish)
	}
}

// TestStreamMessage_ChunkRepeatsEmittedText guards against trimming an
// incremental chunk that happens to start with the text emitted so far.
func TestStreamMessage_ChunkRepeatsEmittedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, text := range []string{"1", "1. Go", "\n", "Ha", "Ha"} {
			writeSSE(w, fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text))
		}
	}))
	defer server.Close()

	stream, err := newTestProvider(server.URL).StreamMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	resp, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if resp.Content != "11. Go\nHaHa" {
		t.Errorf("content = %q", resp.Content)
	}
}

// TestStreamMessage_CumulativeChunks covers gateways that resend the whole
// text so far: with WithCumulativeChunks only the new suffix is emitted.
func TestStreamMessage_CumulativeChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, text := range []string{"Hel", "Hello", "Hello world"} {
			writeSSE(w, fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text))
		}
	}))
	defer server.Close()

	provider := newTestProvider(server.URL).WithCumulativeChunks()
	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{Messages: transcript})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	var fragments []string
	for event, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		if event.Type == ai.StreamEventContent {
			fragments = append(fragments, event.Content)
		}
	}
	if strings.Join(fragments, "|") != "Hel|lo| world" {
		t.Errorf("fragments = %q", fragments)
	}
}

func TestMapFinishReason(t *testing.T) {
	cases := map[string]string{
		"STOP":       ai.FinishReasonStop,
		"MAX_TOKENS": ai.FinishReasonLength,
		"SAFETY":     ai.FinishReasonContentFilter,
		"RECITATION": ai.FinishReasonContentFilter,
		"OTHER":      "other",
		"":           "",
	}
	for in, want := range cases {
		if got := mapFinishReason(in); got != want {
			t.Errorf("mapFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}
