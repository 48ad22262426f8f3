package memory

import (
	"context"
	"errors"
	"iter"

	"github.com/leofalp/aichat/providers/ai"
)

var (
	// ErrInvalidIndex is returned for an index outside the transcript.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrNotEditable is returned when the message at an index is not a user message.
	ErrNotEditable = errors.New("not editable")
)

// Row is one rendered transcript entry.
type Row struct {
	Index   int
	Role    ai.MessageRole
	Content string
}

// Provider stores an ordered conversation transcript.
type Provider interface {
	// AppendMessage stores a copy of message at the end. nil is a no-op.
	// Roles are not validated and need not alternate.
	AppendMessage(ctx context.Context, message *ai.Message)

	// EditMessage replaces the content of the user message at index and
	// discards every message after it. On error nothing changes.
	EditMessage(ctx context.Context, index int, content string) error

	// Message returns a copy of the message at index.
	Message(ctx context.Context, index int) (ai.Message, error)

	// AllMessages returns a copy of the whole transcript.
	AllMessages(ctx context.Context) ([]ai.Message, error)

	Count(ctx context.Context) (int, error)

	ClearMessages(ctx context.Context)

	// Rows yields the transcript as rows, read from a snapshot taken when
	// iteration starts. The sequence can be ranged over more than once.
	Rows(ctx context.Context) iter.Seq[Row]
}

// CheckEditable reports whether messages[index] can be edited.
func CheckEditable(messages []ai.Message, index int) error {
	if index < 0 || index >= len(messages) {
		return ErrInvalidIndex
	}
	if messages[index].Role != ai.RoleUser {
		return ErrNotEditable
	}
	return nil
}
