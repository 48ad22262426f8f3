package memory

import (
	"errors"
	"testing"

	"github.com/leofalp/aichat/providers/ai"
)

func TestCheckEditable(t *testing.T) {
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: "sys"},
		{Role: ai.RoleUser, Content: "hi"},
		{Role: ai.RoleAssistant, Content: "hello"},
	}

	tests := []struct {
		index int
		want  error
	}{
		{-1, ErrInvalidIndex},
		{0, ErrNotEditable},
		{1, nil},
		{2, ErrNotEditable},
		{3, ErrInvalidIndex},
	}
	for _, tt := range tests {
		if err := CheckEditable(messages, tt.index); !errors.Is(err, tt.want) {
			t.Errorf("CheckEditable(%d) = %v, want %v", tt.index, err, tt.want)
		}
	}
}
