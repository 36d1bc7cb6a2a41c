package assistant

import (
	"context"
)

// TurnRole identifies who produced a context turn sent to the model.
type TurnRole string

const (
	TurnRoleSystem    TurnRole = "system"
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
	TurnRoleFunction  TurnRole = "function"
)

// ChatTurn is one entry in the ordered context window sent to the model.
// Function-role turns carry the function name alongside the JSON-encoded
// result in Content.
type ChatTurn struct {
	Role         TurnRole `json:"role"`
	Content      string   `json:"content"`
	FunctionName string   `json:"function_name,omitempty"`
}

// FunctionCall is a model-selected function invocation: the registered
// function name plus the raw JSON argument string as the model produced it.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Completion is the outcome of one model call: either plain text or a
// selected function call (never both populated in the same pass).
type Completion struct {
	Content      string
	FunctionCall *FunctionCall
}

// CompletionRequest carries everything one model call needs. Functions is
// nil on the synthesis pass so the model must answer in natural language.
type CompletionRequest struct {
	Turns       []ChatTurn
	Functions   []FunctionSchema
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// ModelProvider is the boundary to the language model. Implementations
// must classify failures into a ProviderError so callers can decide
// retry versus fail without inspecting message strings.
type ModelProvider interface {
	// Complete issues one chat completion and returns the model's choice.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// MaxContextTokens reports the model's context budget in tokens.
	MaxContextTokens() int
}

// estimateTokenCount provides a rough estimate of token count for a string
// using the ~4 characters per token heuristic common for English text.
func estimateTokenCount(text string) int {
	if len(text) == 0 {
		return 0
	}
	return len(text) / 4
}
