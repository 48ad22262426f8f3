package chat

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/leofalp/aichat/core/dispatch"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/memory"
	"github.com/leofalp/aichat/providers/memory/inmemory"
	"github.com/leofalp/aichat/providers/observability"
)

// DefaultSystemPrompt seeds index 0 of every new transcript.
const DefaultSystemPrompt = "You are ChatGPT, a large language model."

// DefaultProvider is selected until a caller names another one.
const DefaultProvider = "openai"

// Dispatcher produces the next assistant message for a transcript.
// *dispatch.Dispatcher satisfies it.
type Dispatcher interface {
	Complete(ctx context.Context, provider string, transcript []ai.Message) (string, error)
	Stream(ctx context.Context, provider string, transcript []ai.Message, sink dispatch.Sink) (string, error)
}

// Session owns one transcript. Its methods are safe for concurrent use;
// they are serialized, so a second caller waits for the first action
// (including its provider call) to finish.
type Session struct {
	id           string
	dispatcher   Dispatcher
	memory       memory.Provider
	observer     observability.Provider
	systemPrompt string

	mu       sync.Mutex
	provider string
	darkMode bool
}

type Option func(*Session)

// WithSystemPrompt replaces the prompt stored at index 0.
func WithSystemPrompt(prompt string) Option {
	return func(s *Session) {
		s.systemPrompt = prompt
	}
}

// WithProvider sets the initially selected provider.
func WithProvider(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.provider = name
		}
	}
}

// WithMemory stores the transcript in store instead of a fresh in-memory
// array. The system prompt is only added when store is empty.
func WithMemory(store memory.Provider) Option {
	return func(s *Session) {
		s.memory = store
	}
}

// WithObserver opens a span around every Send and Edit; the transcript
// store and the dispatcher attach their events to it.
func WithObserver(observer observability.Provider) Option {
	return func(s *Session) {
		s.observer = observer
	}
}

// NewSession creates a session whose transcript holds only the system prompt.
func NewSession(dispatcher Dispatcher, opts ...Option) *Session {
	s := &Session{
		id:           uuid.NewString(),
		dispatcher:   dispatcher,
		systemPrompt: DefaultSystemPrompt,
		provider:     DefaultProvider,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.memory == nil {
		s.memory = inmemory.New()
	}
	if n, err := s.memory.Count(context.Background()); err == nil && n == 0 {
		s.memory.AppendMessage(context.Background(), &ai.Message{Role: ai.RoleSystem, Content: s.systemPrompt})
	}
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Provider returns the selected provider name.
func (s *Session) Provider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// DarkMode reports the current theme.
func (s *Session) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darkMode
}

// ToggleTheme flips dark mode and returns the new value.
func (s *Session) ToggleTheme() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
	return s.darkMode
}

// Rows yields the transcript for rendering.
func (s *Session) Rows(ctx context.Context) iter.Seq[memory.Row] {
	return s.memory.Rows(ctx)
}

// Messages returns a copy of the transcript.
func (s *Session) Messages(ctx context.Context) ([]ai.Message, error) {
	return s.memory.AllMessages(ctx)
}

// EditableMessage returns the user message at index so an edit form can be
// pre-filled. It fails with memory.ErrInvalidIndex or memory.ErrNotEditable.
func (s *Session) EditableMessage(ctx context.Context, index int) (ai.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.memory.AllMessages(ctx)
	if err != nil {
		return ai.Message{}, err
	}
	if err := memory.CheckEditable(messages, index); err != nil {
		return ai.Message{}, err
	}
	return messages[index], nil
}

// Send selects provider, appends content as a user message, dispatches the
// transcript and appends the answer. An empty provider keeps the current
// selection. On a transport fault the user message stays in the transcript
// and no answer is appended.
func (s *Session) Send(ctx context.Context, provider, content string) (string, error) {
	return s.send(ctx, provider, content, s.complete)
}

// SendStream is Send with the answer delivered to sink as it arrives.
func (s *Session) SendStream(ctx context.Context, provider, content string, sink dispatch.Sink) (string, error) {
	return s.send(ctx, provider, content, s.streamTo(sink))
}

// Edit replaces the user message at index, discards everything after it and
// resends the truncated transcript. An invalid index or a non-user message
// returns memory.ErrInvalidIndex or memory.ErrNotEditable without changing
// anything or calling a provider.
func (s *Session) Edit(ctx context.Context, provider string, index int, content string) (string, error) {
	return s.edit(ctx, provider, index, content, s.complete)
}

// EditStream is Edit with the answer delivered to sink as it arrives.
func (s *Session) EditStream(ctx context.Context, provider string, index int, content string, sink dispatch.Sink) (string, error) {
	return s.edit(ctx, provider, index, content, s.streamTo(sink))
}

type answerFunc func(ctx context.Context, provider string, transcript []ai.Message) (string, error)

func (s *Session) complete(ctx context.Context, provider string, transcript []ai.Message) (string, error) {
	return s.dispatcher.Complete(ctx, provider, transcript)
}

func (s *Session) streamTo(sink dispatch.Sink) answerFunc {
	return func(ctx context.Context, provider string, transcript []ai.Message) (string, error) {
		return s.dispatcher.Stream(ctx, provider, transcript, sink)
	}
}

func (s *Session) send(ctx context.Context, provider, content string, answer answerFunc) (result string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, end := s.startSpan(ctx, observability.SpanChatSend)
	defer func() { end(err) }()

	s.selectProvider(provider)
	s.memory.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: content})
	return s.respond(ctx, answer)
}

func (s *Session) edit(ctx context.Context, provider string, index int, content string, answer answerFunc) (result string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, end := s.startSpan(ctx, observability.SpanChatEdit)
	defer func() { end(err) }()

	if err := s.memory.EditMessage(ctx, index, content); err != nil {
		return "", err
	}
	s.selectProvider(provider)
	return s.respond(ctx, answer)
}

// respond dispatches the current transcript and stores the answer. Callers
// hold s.mu.
func (s *Session) respond(ctx context.Context, answer answerFunc) (string, error) {
	transcript, err := s.memory.AllMessages(ctx)
	if err != nil {
		return "", err
	}

	reply, err := answer(ctx, s.provider, transcript)
	if err != nil {
		return reply, err
	}

	s.memory.AppendMessage(ctx, &ai.Message{Role: ai.RoleAssistant, Content: reply})
	return reply, nil
}

func (s *Session) selectProvider(provider string) {
	if provider != "" {
		s.provider = provider
	}
}

func (s *Session) startSpan(ctx context.Context, name string) (context.Context, func(error)) {
	if s.observer == nil {
		return ctx, func(error) {}
	}

	ctx, span := s.observer.StartSpan(ctx, name,
		observability.String(observability.AttrChatSessionID, s.id),
	)
	ctx = observability.ContextWithObserver(ctx, s.observer)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, name+" failed")
		} else {
			span.SetStatus(observability.StatusOK, "")
		}
		span.End()
	}
}
