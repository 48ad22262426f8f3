package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
)

// StreamMessage implements [ai.StreamProvider]. Only text_delta fragments are
// surfaced as content; an "error" event ends the stream with an error.
func (p *AnthropicProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	body := p.buildRequest(request)
	body.Stream = true
	p.annotate(ctx, body, true)

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+messagesEndpoint, "", body, p.buildHeaders()...)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages stream: %w", err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		var id, model string
		var usage ai.Usage
		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if errors.Is(sseErr, io.EOF) {
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			event, parseErr := utils.UnmarshalLenient[anthropicStreamEvent]([]byte(payload))
			if parseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("failed to parse stream event: %w", parseErr))
				return
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					id, model = event.Message.ID, event.Message.Model
					if event.Message.Usage != nil {
						usage.PromptTokens = event.Message.Usage.InputTokens
					}
				}

			case "content_block_delta":
				if event.Delta == nil || event.Delta.Type != "text_delta" || event.Delta.Text == "" {
					continue
				}
				if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: event.Delta.Text}, nil) {
					return
				}

			case "message_delta":
				if event.Usage != nil {
					usage.CompletionTokens = event.Usage.OutputTokens
					usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
					if !yield(ai.StreamEvent{Type: ai.StreamEventUsage, Usage: &usage}, nil) {
						return
					}
				}
				if event.Delta != nil && event.Delta.StopReason != "" {
					if !yield(ai.StreamEvent{
						Type:         ai.StreamEventDone,
						FinishReason: normalizeStopReason(event.Delta.StopReason),
						Id:           id,
						Model:        model,
					}, nil) {
						return
					}
				}

			case "message_stop":
				return

			case "error":
				message := "unknown stream error"
				if event.Error != nil {
					message = event.Error.Type + ": " + event.Error.Message
				}
				yield(ai.StreamEvent{}, fmt.Errorf("anthropic stream error: %s", message))
				return
			}
		}
	}), nil
}
