package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/observability"
)

// UnsupportedPlaceholder is the answer for a provider name nobody registered.
const UnsupportedPlaceholder = "[Unsupported provider]"

// ErrUnsupportedProvider is reported by Check for unregistered names.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Sink receives streamed content fragments in the order they arrive. A
// non-nil error stops the dispatch and is returned to the caller.
type Sink func(fragment string) error

type backend struct {
	provider ai.Provider
	model    string
}

// Dispatcher maps provider names to backends. Registration happens during
// setup; after that a Dispatcher is safe for concurrent use.
type Dispatcher struct {
	backends map[string]backend
	order    []string
	observer observability.Provider
}

type Option func(*Dispatcher)

// WithObserver enables a span, a log line and dispatch metrics per call.
func WithObserver(observer observability.Provider) Option {
	return func(d *Dispatcher) {
		d.observer = observer
	}
}

// New returns a Dispatcher with no backends registered.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{backends: make(map[string]backend)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds name to provider. model is sent with every request; an
// empty model lets the backend pick its default. Registering a name twice
// replaces the backend and keeps its original position.
func (d *Dispatcher) Register(name string, provider ai.Provider, model string) *Dispatcher {
	if _, exists := d.backends[name]; !exists {
		d.order = append(d.order, name)
	}
	d.backends[name] = backend{provider: provider, model: model}
	return d
}

// Providers lists registered names in registration order.
func (d *Dispatcher) Providers() []string {
	return append([]string(nil), d.order...)
}

// Check reports whether name can be dispatched: ErrUnsupportedProvider, the
// backend's *ai.MissingConfigError, or nil.
func (d *Dispatcher) Check(name string) error {
	b, ok := d.backends[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	return b.provider.Validate()
}

// Complete sends the transcript to the named backend and returns the answer.
// Missing configuration and unknown names yield a placeholder with a nil
// error. Transport and provider faults are returned as errors.
func (d *Dispatcher) Complete(ctx context.Context, name string, transcript []ai.Message) (string, error) {
	ctx, run := d.begin(ctx, name, len(transcript), false)

	b, placeholder, ok := d.resolve(name)
	if !ok {
		run.placeholder(ctx, placeholder)
		return placeholder, nil
	}

	response, err := b.provider.SendMessage(ctx, b.request(transcript))
	if err != nil {
		if placeholder, ok := placeholderFor(err); ok {
			run.placeholder(ctx, placeholder)
			return placeholder, nil
		}
		err = fmt.Errorf("%s: %w", name, err)
		run.fail(ctx, err)
		return "", err
	}

	run.succeed(ctx, response.Content)
	return response.Content, nil
}

// Stream is Complete with incremental delivery. Every content fragment is
// passed to sink in receipt order and the returned string is their
// concatenation. Backends without streaming support deliver their whole
// answer as a single fragment, as do placeholders. On error the content
// received so far is returned with it.
func (d *Dispatcher) Stream(ctx context.Context, name string, transcript []ai.Message, sink Sink) (string, error) {
	ctx, run := d.begin(ctx, name, len(transcript), true)

	b, placeholder, ok := d.resolve(name)
	if !ok {
		run.placeholder(ctx, placeholder)
		return placeholder, emit(sink, placeholder)
	}

	stream, err := b.open(ctx, transcript)
	if err != nil {
		if placeholder, ok := placeholderFor(err); ok {
			run.placeholder(ctx, placeholder)
			return placeholder, emit(sink, placeholder)
		}
		err = fmt.Errorf("%s: %w", name, err)
		run.fail(ctx, err)
		return "", err
	}

	var content strings.Builder
	for event, err := range stream.Iter() {
		if err != nil {
			err = fmt.Errorf("%s: %w", name, err)
			run.fail(ctx, err)
			return content.String(), err
		}
		if event.Type != ai.StreamEventContent || event.Content == "" {
			continue
		}
		content.WriteString(event.Content)
		if err := emit(sink, event.Content); err != nil {
			run.fail(ctx, err)
			return content.String(), err
		}
	}

	run.succeed(ctx, content.String())
	return content.String(), nil
}

// resolve finds the backend for name and runs its configuration check. When
// ok is false the placeholder is the answer.
func (d *Dispatcher) resolve(name string) (backend, string, bool) {
	b, exists := d.backends[name]
	if !exists {
		return backend{}, UnsupportedPlaceholder, false
	}
	if placeholder, missing := placeholderFor(b.provider.Validate()); missing {
		return backend{}, placeholder, false
	}
	return b, "", true
}

func (b backend) request(transcript []ai.Message) ai.ChatRequest {
	return ai.ChatRequest{
		Model:    b.model,
		Messages: append([]ai.Message(nil), transcript...),
	}
}

// open starts a streaming call, falling back to a one-shot call wrapped as a
// single-event stream.
func (b backend) open(ctx context.Context, transcript []ai.Message) (*ai.ChatStream, error) {
	if streamer, ok := b.provider.(ai.StreamProvider); ok {
		return streamer.StreamMessage(ctx, b.request(transcript))
	}
	response, err := b.provider.SendMessage(ctx, b.request(transcript))
	if err != nil {
		return nil, err
	}
	return ai.NewSingleEventStream(response), nil
}

func placeholderFor(err error) (string, bool) {
	var missing *ai.MissingConfigError
	if errors.As(err, &missing) {
		return missing.Placeholder(), true
	}
	return "", false
}

func emit(sink Sink, fragment string) error {
	if sink == nil {
		return nil
	}
	return sink(fragment)
}

// run carries the observability state of one dispatch. Every method is a
// no-op when no observer is configured.
type run struct {
	observer observability.Provider
	span     observability.Span
	provider string
	start    time.Time
}

func (d *Dispatcher) begin(ctx context.Context, name string, messages int, streaming bool) (context.Context, *run) {
	r := &run{observer: d.observer, provider: name, start: time.Now()}
	if d.observer == nil {
		return ctx, r
	}

	ctx, r.span = d.observer.StartSpan(ctx, observability.SpanChatDispatch,
		observability.String(observability.AttrLLMProvider, name),
		observability.Bool(observability.AttrLLMStreaming, streaming),
	)
	ctx = observability.ContextWithSpan(ctx, r.span)
	ctx = observability.ContextWithObserver(ctx, d.observer)

	d.observer.Debug(ctx, "dispatch",
		observability.String(observability.AttrLLMProvider, name),
		observability.Int(observability.AttrRequestMessagesCount, messages),
		observability.Bool(observability.AttrLLMStreaming, streaming),
	)
	return ctx, r
}

func (r *run) placeholder(ctx context.Context, text string) {
	if r.observer == nil {
		return
	}
	r.span.SetAttributes(observability.Bool(observability.AttrChatPlaceholder, true))
	r.span.SetStatus(observability.StatusOK, "placeholder")
	r.span.End()

	r.observer.Warn(ctx, "dispatch answered with placeholder",
		observability.String(observability.AttrLLMProvider, r.provider),
		observability.String(observability.AttrStatusDescription, text),
	)
	r.observer.Counter(observability.MetricDispatchPlaceholder).Add(ctx, 1,
		observability.String(observability.AttrLLMProvider, r.provider),
	)
	r.count(ctx, "placeholder")
}

func (r *run) fail(ctx context.Context, err error) {
	if r.observer == nil {
		return
	}
	elapsed := time.Since(r.start)
	r.span.RecordError(err)
	r.span.SetStatus(observability.StatusError, "dispatch failed")
	r.span.End()

	r.observer.Error(ctx, "dispatch failed",
		observability.Error(err),
		observability.String(observability.AttrLLMProvider, r.provider),
		observability.Duration(observability.AttrDuration, elapsed),
	)
	r.count(ctx, "error")
	r.duration(ctx, elapsed, "error")
}

func (r *run) succeed(ctx context.Context, content string) {
	if r.observer == nil {
		return
	}
	elapsed := time.Since(r.start)
	r.span.SetAttributes(observability.Int(observability.AttrResponseLength, len(content)))
	r.span.SetStatus(observability.StatusOK, "")
	r.span.End()

	r.observer.Debug(ctx, "dispatch completed",
		observability.String(observability.AttrLLMProvider, r.provider),
		observability.Int(observability.AttrResponseLength, len(content)),
		observability.Duration(observability.AttrDuration, elapsed),
	)
	r.count(ctx, "success")
	r.duration(ctx, elapsed, "success")
}

func (r *run) count(ctx context.Context, status string) {
	r.observer.Counter(observability.MetricDispatchCount).Add(ctx, 1,
		observability.String(observability.AttrLLMProvider, r.provider),
		observability.String(observability.AttrStatus, status),
	)
}

func (r *run) duration(ctx context.Context, elapsed time.Duration, status string) {
	r.observer.Histogram(observability.MetricDispatchDuration).Record(ctx,
		float64(elapsed.Microseconds())/1000,
		observability.String(observability.AttrLLMProvider, r.provider),
		observability.String(observability.AttrStatus, status),
	)
}
