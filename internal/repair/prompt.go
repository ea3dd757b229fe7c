package repair

import (
	"fmt"
	"strings"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/task"
)

// buildSystemPrompt returns the debugging-agent system instruction.
func buildSystemPrompt() string {
	return strings.TrimSpace(`
You are an expert Go debugging agent with access to a code execution sandbox.

YOUR MISSION: fix buggy Go code by analyzing it, identifying bugs, and testing fixes iteratively.

AVAILABLE TOOL:
- submit_candidate(code, reason): executes your code against predefined test cases and returns pass/fail results with error details.

WORKFLOW:
1. READ the buggy code carefully.
2. ANALYZE what the tests expect versus what the code does.
3. IDENTIFY the bug(s).
4. CALL submit_candidate with your fixed code and a brief explanation.
5. READ the test results: all pass means you are done; otherwise analyze the failures and try a DIFFERENT fix.
6. ITERATE until all tests pass.

CRITICAL RULES:
- ALWAYS call submit_candidate - never just explain the fix.
- Each attempt must try something DIFFERENT; do not repeat the same code.
- Read error messages carefully - they tell you what is wrong.
- When all tests pass, STOP immediately.
- Keep your reason brief (one sentence).`)
}

// buildUserPrompt embeds the buggy source, its description, and the full
// assertion list.
func buildUserPrompt(t task.Task) string {
	var b strings.Builder
	b.WriteString("BUGGY CODE TO FIX:\n\n```go\n")
	b.WriteString(t.Source)
	if !strings.HasSuffix(t.Source, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")

	if strings.TrimSpace(t.Description) != "" {
		fmt.Fprintf(&b, "\nDESCRIPTION: %s\n", t.Description)
	}

	if len(t.Assertions) > 0 {
		b.WriteString("\nTEST CASES (your code must pass ALL of these):\n")
		for i, a := range t.Assertions {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, a)
		}
	}

	b.WriteString("\nTASK: fix the bug(s) so the code passes all test cases.\n")
	b.WriteString("ACTION: call submit_candidate NOW with your complete fixed code and a one-sentence reason.")
	return b.String()
}

// correctiveInstruction is injected when the first turn produces no action
// invocation.
func correctiveInstruction() string {
	return "STOP! You did NOT call submit_candidate. Call it NOW with your best guess for the fix. Just call the function - no more explanation."
}
