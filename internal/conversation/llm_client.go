package conversation

import (
	"context"
	"strings"
)

// LLMClient is implemented by every model provider adapter.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ProviderDefaultTemperature leaves sampling temperature to the provider.
const ProviderDefaultTemperature float32 = -1

// ChatMessage is a provider-neutral chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMRequest is a single completion call. A negative Temperature lets the
// provider pick its default; zero asks for deterministic decoding.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// NewLabelRequest builds a deterministic single-turn request whose answer is
// a short label, such as an intent name.
func NewLabelRequest(model, system, prompt string, maxTokens int32) LLMRequest {
	req := LLMRequest{
		Model:     model,
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens: maxTokens,
	}
	if system = strings.TrimSpace(system); system != "" {
		req.System = []string{system}
	}
	return req
}

// LLMResponse carries the completion text and, when the provider reports
// them, token counts and the stop reason.
type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}
