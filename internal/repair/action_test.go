package repair

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/llm"
)

func submitCall(id, code, reason string) llm.ToolCall {
	args, _ := json.Marshal(map[string]string{"code": code, "reason": reason})
	return llm.ToolCall{
		ID:   id,
		Type: "function",
		Function: llm.ToolFunctionCall{
			Name:      ActionSubmitCandidate,
			Arguments: args,
		},
	}
}

func TestParseActionsSubmitCandidate(t *testing.T) {
	actions, err := ParseActions([]llm.ToolCall{submitCall("call-1", "func f() {}", "fixed")})
	require.NoError(t, err)
	require.Len(t, actions, 1)

	sub, ok := actions[0].(SubmitCandidate)
	require.True(t, ok)
	require.Equal(t, "call-1", sub.CallID)
	require.Equal(t, "func f() {}", sub.Code)
	require.Equal(t, "fixed", sub.Reason)
}

func TestParseActionsFromWireFormat(t *testing.T) {
	// As decoded from a real response body, where function arguments are a
	// JSON-encoded string.
	wire := `[{
		"id": "call_abc",
		"type": "function",
		"function": {
			"name": "submit_candidate",
			"arguments": "{\"code\": \"func add(a, b int) int { return a + b }\", \"reason\": \"fixed operator\"}"
		}
	}]`

	var calls []llm.ToolCall
	require.NoError(t, json.Unmarshal([]byte(wire), &calls))

	actions, err := ParseActions(calls)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	sub, ok := actions[0].(SubmitCandidate)
	require.True(t, ok)
	require.Equal(t, "call_abc", sub.CallID)
	require.Equal(t, "func add(a, b int) int { return a + b }", sub.Code)
	require.Equal(t, "fixed operator", sub.Reason)
}

func TestParseActionsUnknownName(t *testing.T) {
	calls := []llm.ToolCall{
		{ID: "x", Type: "function", Function: llm.ToolFunctionCall{Name: "delete_everything", Arguments: json.RawMessage(`{}`)}},
		submitCall("call-2", "func f() {}", ""),
	}

	actions, err := ParseActions(calls)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unrecognized action")
	// The recognized action survives alongside the error.
	require.Len(t, actions, 1)
}

func TestParseActionsEmptyCode(t *testing.T) {
	actions, err := ParseActions([]llm.ToolCall{submitCall("call-3", "   ", "oops")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no code provided")
	require.Empty(t, actions)
}

func TestParseActionsMalformedArguments(t *testing.T) {
	calls := []llm.ToolCall{{
		ID:   "call-4",
		Type: "function",
		Function: llm.ToolFunctionCall{
			Name:      ActionSubmitCandidate,
			Arguments: json.RawMessage(`{"code": `),
		},
	}}

	actions, err := ParseActions(calls)
	require.Error(t, err)
	require.Empty(t, actions)
}

func TestParseActionsNoCalls(t *testing.T) {
	actions, err := ParseActions(nil)
	require.NoError(t, err)
	require.Empty(t, actions)
}

func TestSubmitCandidateSpecShape(t *testing.T) {
	spec := submitCandidateSpec()
	require.Equal(t, "function", spec.Type)
	require.Equal(t, ActionSubmitCandidate, spec.Function.Name)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(spec.Function.Parameters, &schema))
	require.Equal(t, "object", schema["type"])
}
