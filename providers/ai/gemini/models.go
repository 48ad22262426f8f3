package gemini

import (
	"strings"

	"github.com/leofalp/aichat/providers/ai"
)

/*
	GEMINI API - REQUEST TYPES
*/

type generateContentRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
}

type systemInstruction struct {
	Parts []part `json:"parts"`
}

type content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []part `json:"parts"`
}

type part struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"` // thinking summaries are not part of the answer
}

type generationConfig struct {
	MaxOutputTokens *int `json:"maxOutputTokens,omitempty"`
}

/*
	GEMINI API - RESPONSE TYPES
*/

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	ResponseID     string          `json:"responseId,omitempty"`
}

type candidate struct {
	Content      *content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
	Index        int      `json:"index,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

/*
	CONVERSION
*/

func requestToGemini(request ai.ChatRequest) generateContentRequest {
	out := generateContentRequest{}
	if system := request.SystemPrompt(); system != "" {
		out.SystemInstruction = &systemInstruction{Parts: []part{{Text: system}}}
	}
	if request.MaxTokens > 0 {
		maxTokens := request.MaxTokens
		out.GenerationConfig = &generationConfig{MaxOutputTokens: &maxTokens}
	}
	for _, msg := range request.ConversationMessages() {
		out.Contents = append(out.Contents, content{
			Role:  roleToGemini(msg.Role),
			Parts: []part{{Text: msg.Content}},
		})
	}
	return out
}

func roleToGemini(role ai.MessageRole) string {
	if role == ai.RoleAssistant {
		return "model"
	}
	return "user"
}

// candidateText concatenates the non-thought text parts of the first candidate.
func candidateText(response *generateContentResponse) string {
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, p := range response.Candidates[0].Content.Parts {
		if !p.Thought {
			text.WriteString(p.Text)
		}
	}
	return text.String()
}

func responseToGeneric(response *generateContentResponse) *ai.ChatResponse {
	out := &ai.ChatResponse{
		Id:      response.ResponseID,
		Model:   response.ModelVersion,
		Content: candidateText(response),
		Usage:   usageToGeneric(response.UsageMetadata),
	}
	if len(response.Candidates) > 0 {
		out.FinishReason = mapFinishReason(response.Candidates[0].FinishReason)
	}
	return out
}

func usageToGeneric(usage *usageMetadata) *ai.Usage {
	if usage == nil {
		return nil
	}
	return &ai.Usage{
		PromptTokens:     usage.PromptTokenCount,
		CompletionTokens: usage.CandidatesTokenCount,
		TotalTokens:      usage.TotalTokenCount,
	}
}

// mapFinishReason maps Gemini finish reasons onto the shared finish reasons.
func mapFinishReason(reason string) string {
	switch reason {
	case "":
		return ""
	case "STOP":
		return ai.FinishReasonStop
	case "MAX_TOKENS":
		return ai.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return ai.FinishReasonContentFilter
	default:
		return strings.ToLower(reason)
	}
}
