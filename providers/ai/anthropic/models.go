package anthropic

import (
	"strings"

	"github.com/leofalp/aichat/providers/ai"
)

/*
	MESSAGES API - INPUT
*/

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

/*
	MESSAGES API - OUTPUT
*/

type anthropicResponse struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Role       string                 `json:"role"`
	Model      string                 `json:"model"`
	Content    []responseContentBlock `json:"content"`
	StopReason string                 `json:"stop_reason"`
	Usage      *anthropicUsage        `json:"usage,omitempty"`
}

// responseContentBlock is one block of an answer. Only "text" blocks
// contribute to the reply; thinking and tool_use blocks are skipped.
type responseContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

/*
	SSE STREAMING

	Event lifecycle: message_start, content_block_start, content_block_delta
	(repeated), content_block_stop, message_delta, message_stop. The event
	type is repeated in the JSON payload's "type" field.
*/

type anthropicStreamEvent struct {
	Type    string             `json:"type"`
	Message *anthropicResponse `json:"message,omitempty"` // message_start
	Index   int                `json:"index,omitempty"`
	Delta   *streamDelta       `json:"delta,omitempty"` // content_block_delta, message_delta
	Usage   *anthropicUsage    `json:"usage,omitempty"` // message_delta
	Error   *anthropicError    `json:"error,omitempty"` // error
}

type streamDelta struct {
	Type       string `json:"type,omitempty"` // "text_delta" carries Text
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

/*
	CONVERSION
*/

func requestFromGeneric(request ai.ChatRequest, model string, maxTokens int) anthropicRequest {
	out := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    request.SystemPrompt(),
	}
	for _, msg := range request.ConversationMessages() {
		out.Messages = append(out.Messages, anthropicMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

func responseToGeneric(resp anthropicResponse) *ai.ChatResponse {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &ai.ChatResponse{
		Id:           resp.ID,
		Model:        resp.Model,
		Content:      text.String(),
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage:        usageToGeneric(resp.Usage),
	}
}

func usageToGeneric(usage *anthropicUsage) *ai.Usage {
	if usage == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     usage.InputTokens,
		CompletionTokens: usage.OutputTokens,
		TotalTokens:      usage.InputTokens + usage.OutputTokens,
	}
}

// normalizeStopReason maps Anthropic stop reasons onto the shared finish reasons.
func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return ai.FinishReasonStop
	case "max_tokens":
		return ai.FinishReasonLength
	case "refusal":
		return ai.FinishReasonContentFilter
	default:
		return reason
	}
}
