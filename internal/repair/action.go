package repair

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/llm"
)

// ActionSubmitCandidate is the single action the model may invoke.
const ActionSubmitCandidate = "submit_candidate"

// Action is a model-initiated request to invoke a local capability. The set
// of variants is closed; adding an action means adding a type here, not an
// entry in a lookup table.
type Action interface {
	actionName() string
}

// SubmitCandidate submits a full candidate source for verification.
type SubmitCandidate struct {
	CallID string
	Code   string
	Reason string
}

func (SubmitCandidate) actionName() string { return ActionSubmitCandidate }

type submitCandidateArgs struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// ParseActions decodes recognized actions from a model response. Unknown or
// malformed calls are reported through the error without discarding the
// recognized ones.
func ParseActions(calls []llm.ToolCall) ([]Action, error) {
	var (
		actions []Action
		errs    []string
	)
	for _, call := range calls {
		switch call.Function.Name {
		case ActionSubmitCandidate:
			var args submitCandidateArgs
			if err := json.Unmarshal(call.Function.Arguments, &args); err != nil {
				errs = append(errs, fmt.Sprintf("%s: bad arguments: %v", call.Function.Name, err))
				continue
			}
			if strings.TrimSpace(args.Code) == "" {
				errs = append(errs, fmt.Sprintf("%s: no code provided", call.Function.Name))
				continue
			}
			actions = append(actions, SubmitCandidate{
				CallID: call.ID,
				Code:   args.Code,
				Reason: args.Reason,
			})
		default:
			errs = append(errs, fmt.Sprintf("unrecognized action %q", call.Function.Name))
		}
	}
	if len(errs) > 0 {
		return actions, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return actions, nil
}

// submitCandidateSpec declares the single-action schema sent on every
// request.
func submitCandidateSpec() llm.ToolSpec {
	return llm.ToolSpec{
		Type: "function",
		Function: llm.FunctionSpec{
			Name: ActionSubmitCandidate,
			Description: "Submit complete Go code to be executed in a sandbox and tested against " +
				"predefined test cases. This is your ONLY way to verify fixes. Returns test " +
				"results with pass/fail status and error details for failing tests.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"code": {
						"type": "string",
						"description": "Complete, compilable Go code with all function definitions and the fix applied."
					},
					"reason": {
						"type": "string",
						"description": "Brief one-sentence explanation of the bug you identified and the change you made."
					}
				},
				"required": ["code", "reason"]
			}`),
		},
	}
}
