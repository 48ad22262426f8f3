package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/observability"
)

// endpoint describes where and how a chat completion is posted. OpenAI
// authenticates with a bearer token, Azure with an api-key header.
type endpoint struct {
	name    string
	url     string
	bearer  string
	headers []utils.HeaderOption
	client  *http.Client
}

func (e endpoint) annotate(ctx context.Context, request chatCompletionRequest, streaming bool) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, e.name),
			observability.String(observability.AttrLLMEndpoint, e.url),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Bool(observability.AttrLLMStreaming, streaming),
		)
	}
	if observer := observability.ObserverFromContext(ctx); observer != nil {
		observer.Trace(ctx, "Preparing chat completion request",
			observability.String(observability.AttrLLMProvider, e.name),
			observability.String(observability.AttrLLMEndpoint, e.url),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}
}

func sendChatCompletion(ctx context.Context, e endpoint, request chatCompletionRequest) (*ai.ChatResponse, error) {
	e.annotate(ctx, request, false)

	httpResponse, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, e.client, e.url, e.bearer, request, e.headers...)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", e.name, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from %s: %s", e.name, httpResponse.Status)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s chat completion: no choices in response", e.name)
	}

	out := responseToGeneric(*resp)
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventLLMRequestEnd)
		span.SetAttributes(
			observability.String(observability.AttrLLMResponseID, out.Id),
			observability.String(observability.AttrLLMFinishReason, out.FinishReason),
		)
		if out.Usage != nil {
			span.SetAttributes(observability.Int(observability.AttrLLMTokensTotal, out.Usage.TotalTokens))
		}
	}
	return out, nil
}

// streamChatCompletion posts request with stream=true and returns a ChatStream
// reading the SSE body. The body is closed when the iterator returns.
func streamChatCompletion(ctx context.Context, e endpoint, request chatCompletionRequest) (*ai.ChatStream, error) {
	request.Stream = true
	e.annotate(ctx, request, true)

	httpResponse, err := utils.DoPostStream(ctx, e.client, e.url, e.bearer, request, e.headers...)
	if err != nil {
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, fmt.Errorf("%s chat completion stream: %w", e.name, err)
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

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

			chunk, parseErr := utils.UnmarshalLenient[chatCompletionStreamChunk]([]byte(payload))
			if parseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("failed to parse streaming chunk: %w", parseErr))
				return
			}

			for _, event := range chunkToStreamEvents(&chunk) {
				if !yield(event, nil) {
					return
				}
			}
		}
	}), nil
}
