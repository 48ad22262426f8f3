package inmemory

import (
	"context"
	"iter"
	"sync"

	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/memory"
	"github.com/leofalp/aichat/providers/observability"
)

// ArrayMemory is a simple, concurrency-safe in-memory transcript.
// It uses RWMutex to guard access and is efficient for read-heavy workloads.
type ArrayMemory struct {
	mu       sync.RWMutex
	messages []ai.Message
}

// New returns an empty [ArrayMemory], optionally seeded with messages.
func New(seed ...ai.Message) *ArrayMemory {
	messages := make([]ai.Message, len(seed))
	copy(messages, seed)
	return &ArrayMemory{messages: messages}
}

// Ensure ArrayMemory implements memory.Provider at compile time.
var _ memory.Provider = (*ArrayMemory)(nil)

// AppendMessage stores a copy of message at the end of the transcript.
// When a span is present in ctx, an event records the role and length and
// the running total is set as a span attribute.
func (m *ArrayMemory) AppendMessage(ctx context.Context, message *ai.Message) {
	if message == nil {
		return
	}

	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventMemoryAppend,
			observability.String(observability.AttrMemoryMessageRole, string(message.Role)),
			observability.Int(observability.AttrMemoryMessageLength, len(message.Content)),
		)
	}

	m.mu.Lock()
	m.messages = append(m.messages, *message)
	totalMessages := len(m.messages)
	m.mu.Unlock()

	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrMemoryTotalMessages, totalMessages))
	}
}

// EditMessage replaces the content at index and truncates the transcript to
// index+1 messages. Validation happens under the write lock, so a failed
// edit leaves the transcript untouched.
func (m *ArrayMemory) EditMessage(ctx context.Context, index int, content string) error {
	m.mu.Lock()
	if err := memory.CheckEditable(m.messages, index); err != nil {
		m.mu.Unlock()
		return err
	}
	discarded := len(m.messages) - index - 1
	m.messages[index].Content = content
	// Clear the tail so dropped messages are not retained by the backing array.
	clear(m.messages[index+1:])
	m.messages = m.messages[:index+1]
	m.mu.Unlock()

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryEdit,
			observability.Int(observability.AttrMemoryMessageIndex, index),
			observability.Int(observability.AttrMemoryDiscarded, discarded),
		)
	}
	return nil
}

// Message returns a copy of the message at index or memory.ErrInvalidIndex.
func (m *ArrayMemory) Message(_ context.Context, index int) (ai.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.messages) {
		return ai.Message{}, memory.ErrInvalidIndex
	}
	return m.messages[index], nil
}

// Count returns the number of messages stored. The returned error is always nil.
func (m *ArrayMemory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	n := len(m.messages)
	m.mu.RUnlock()
	return n, nil
}

// AllMessages returns a copy of all messages to avoid external mutation of internal state.
func (m *ArrayMemory) AllMessages(_ context.Context) ([]ai.Message, error) {
	return m.snapshot(), nil
}

// ClearMessages removes all messages while retaining the underlying slice capacity.
func (m *ArrayMemory) ClearMessages(ctx context.Context) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventMemoryClear)
	}

	m.mu.Lock()
	clear(m.messages)
	m.messages = m.messages[:0]
	m.mu.Unlock()
}

// Rows yields every message as a memory.Row. Each range takes a fresh
// snapshot, so the sequence is restartable and never observes a concurrent
// edit halfway through.
func (m *ArrayMemory) Rows(_ context.Context) iter.Seq[memory.Row] {
	return func(yield func(memory.Row) bool) {
		for i, msg := range m.snapshot() {
			if !yield(memory.Row{Index: i, Role: msg.Role, Content: msg.Content}) {
				return
			}
		}
	}
}

func (m *ArrayMemory) snapshot() []ai.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ai.Message, len(m.messages))
	copy(out, m.messages)
	return out
}
