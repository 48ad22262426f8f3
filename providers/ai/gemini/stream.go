package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
)

// StreamMessage implements ai.StreamProvider using streamGenerateContent with
// alt=sse. Each event is a full generateContentResponse.
func (p *GeminiProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	model := request.Model
	if model == "" {
		model = DefaultModel
	}
	p.annotate(ctx, model, len(request.Messages), true)

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.modelURL(model, "streamGenerateContent?alt=sse"), "", requestToGemini(request), p.headers()...)
	if err != nil {
		return nil, fmt.Errorf("gemini streamGenerateContent: %w", err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		seen := deltaTracker{cumulative: p.cumulativeChunks}
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

			chunk, parseErr := utils.UnmarshalLenient[generateContentResponse]([]byte(payload))
			if parseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("failed to parse Gemini streaming chunk: %w", parseErr))
				return
			}
			if len(chunk.Candidates) == 0 && chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
				yield(ai.StreamEvent{}, fmt.Errorf("gemini stream: prompt blocked (%s)", chunk.PromptFeedback.BlockReason))
				return
			}

			for _, event := range chunkToStreamEvents(&chunk, &seen, model) {
				if !yield(event, nil) {
					return
				}
			}
		}
	}), nil
}

// deltaTracker turns chunk texts into content fragments. Chunks pass through
// unchanged unless cumulative is set, in which case a chunk that extends
// everything already emitted contributes only its new suffix.
type deltaTracker struct {
	cumulative bool
	emitted    strings.Builder
}

func (d *deltaTracker) next(text string) string {
	if text == "" || !d.cumulative {
		return text
	}
	so := d.emitted.String()
	delta := text
	if so != "" && len(text) > len(so) && strings.HasPrefix(text, so) {
		delta = text[len(so):]
	}
	d.emitted.WriteString(delta)
	return delta
}

func chunkToStreamEvents(response *generateContentResponse, seen *deltaTracker, model string) []ai.StreamEvent {
	var events []ai.StreamEvent

	if delta := seen.next(candidateText(response)); delta != "" {
		events = append(events, ai.StreamEvent{Type: ai.StreamEventContent, Content: delta})
	}

	if usage := usageToGeneric(response.UsageMetadata); usage != nil {
		events = append(events, ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usage})
	}

	if len(response.Candidates) > 0 && response.Candidates[0].FinishReason != "" {
		if response.ModelVersion != "" {
			model = response.ModelVersion
		}
		events = append(events, ai.StreamEvent{
			Type:         ai.StreamEventDone,
			FinishReason: mapFinishReason(response.Candidates[0].FinishReason),
			Id:           response.ResponseID,
			Model:        model,
		})
	}
	return events
}
