package ai

// MessageRole identifies the author of a transcript message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message represents a single message in a conversation
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest represents a request to send a chat message
type ChatRequest struct {
	Model     string    `json:"model,omitempty"`      // Model name; ignored by backends that route by deployment
	Messages  []Message `json:"messages"`             // Full transcript, system messages included
	MaxTokens int       `json:"max_tokens,omitempty"` // Zero leaves the vendor default
}

// SystemPrompt joins the content of every system message with a blank line,
// which is how vendors with a separate system field receive them.
func (r ChatRequest) SystemPrompt() string {
	prompt := ""
	for _, msg := range r.Messages {
		if msg.Role != RoleSystem || msg.Content == "" {
			continue
		}
		if prompt != "" {
			prompt += "\n\n"
		}
		prompt += msg.Content
	}
	return prompt
}

// ConversationMessages returns the transcript without system messages.
func (r ChatRequest) ConversationMessages() []Message {
	out := make([]Message, 0, len(r.Messages))
	for _, msg := range r.Messages {
		if msg.Role != RoleSystem {
			out = append(out, msg)
		}
	}
	return out
}

/*
	##### PROVIDER OUTPUT #####
*/

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse represents the response from a chat completion
type ChatResponse struct {
	Id           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// Finish reasons normalised across vendors.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)
