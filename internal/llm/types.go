package llm

import (
	"context"
	"encoding/json"
)

// Role is the message role used in chat exchanges.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage represents a single message exchanged with the model.
type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall describes a model-initiated tool invocation.
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolFunctionCall `json:"function,omitempty"`
}

// ToolFunctionCall is the function call payload for a tool request.
// Arguments always holds the decoded JSON object; on the wire the
// OpenAI-compatible format carries it as a JSON-encoded string.
type ToolFunctionCall struct {
	Name      string
	Arguments json.RawMessage
}

type wireFunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// MarshalJSON encodes the arguments object as a string, matching what the
// service emits, so transcript echoes round-trip.
func (f ToolFunctionCall) MarshalJSON() ([]byte, error) {
	args, err := json.Marshal(string(f.Arguments))
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireFunctionCall{Name: f.Name, Arguments: args})
}

// UnmarshalJSON accepts arguments either string-encoded (the wire contract)
// or as a bare object (some local gateways).
func (f *ToolFunctionCall) UnmarshalJSON(data []byte) error {
	var w wireFunctionCall
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	f.Name = w.Name
	if len(w.Arguments) > 0 && w.Arguments[0] == '"' {
		var s string
		if err := json.Unmarshal(w.Arguments, &s); err != nil {
			return err
		}
		f.Arguments = json.RawMessage(s)
		return nil
	}
	f.Arguments = w.Arguments
	return nil
}

// ToolSpec declares a callable tool advertised to the model.
type ToolSpec struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes a tool function and its JSON-schema parameters.
type FunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatRequest is the input for chat providers.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Tools       []ToolSpec
	ToolChoice  string
	MaxTokens   int
	Temperature float64
}

// Usage captures token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is the result of a chat completion.
type ChatResponse struct {
	Message      ChatMessage
	FinishReason string
	Usage        Usage
	ProviderName string
	Model        string
}

// Provider defines the contract for LLM providers.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
