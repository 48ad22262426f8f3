package openai

import "github.com/leofalp/aichat/providers/ai"

/*
	CHAT COMPLETIONS API - INPUT
*/

// chatCompletionRequest represents the /chat/completions request format.
// Model is omitted for Azure, which routes by deployment name.
type chatCompletionRequest struct {
	Model         string         `json:"model,omitempty"`
	Messages      []chatMessage  `json:"messages"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type chatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"` // Nullable in responses that only carry a refusal
	Refusal string  `json:"refusal,omitempty"`
}

// streamOptions asks the API to append a usage-only chunk to the stream.
type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatCompletionStreamChunk is one SSE payload of a streamed completion.
// Azure sends a leading chunk with no choices that only carries content
// filter results.
type chatCompletionStreamChunk struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Usage   *chatUsage     `json:"usage,omitempty"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"` // nil until the final chunk for this choice
}

type streamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

/*
	CONVERSION
*/

// requestFromGeneric maps the transcript onto chat messages. System messages
// stay inline, which is how this API expects them.
func requestFromGeneric(request ai.ChatRequest, includeModel bool) chatCompletionRequest {
	out := chatCompletionRequest{
		Messages: make([]chatMessage, 0, len(request.Messages)),
	}
	if includeModel {
		out.Model = request.Model
	}
	if request.MaxTokens > 0 {
		maxTokens := request.MaxTokens
		out.MaxTokens = &maxTokens
	}
	for _, msg := range request.Messages {
		content := msg.Content
		out.Messages = append(out.Messages, chatMessage{Role: string(msg.Role), Content: &content})
	}
	return out
}

func responseToGeneric(resp chatCompletionResponse) *ai.ChatResponse {
	out := &ai.ChatResponse{
		Id:    resp.ID,
		Model: resp.Model,
		Usage: usageToGeneric(resp.Usage),
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Message.Content != nil {
			out.Content = *choice.Message.Content
		}
		out.FinishReason = choice.FinishReason
	}
	return out
}

func usageToGeneric(usage *chatUsage) *ai.Usage {
	if usage == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}

// chunkToStreamEvents converts one streamed chunk into zero or more events.
// Only the first choice is considered, matching the sync extraction.
func chunkToStreamEvents(chunk *chatCompletionStreamChunk) []ai.StreamEvent {
	var events []ai.StreamEvent

	if chunk.Usage != nil {
		events = append(events, ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usageToGeneric(chunk.Usage)})
	}

	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			events = append(events, ai.StreamEvent{Type: ai.StreamEventContent, Content: *choice.Delta.Content})
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			events = append(events, ai.StreamEvent{
				Type:         ai.StreamEventDone,
				FinishReason: *choice.FinishReason,
				Id:           chunk.ID,
				Model:        chunk.Model,
			})
		}
	}
	return events
}
