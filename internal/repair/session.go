package repair

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/llm"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/task"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/verifier"
)

// session holds all mutable state for one repair attempt. It is owned
// exclusively by the engine for the duration of a Repair call; nothing
// lives in package scope, so sessions can run concurrently.
type session struct {
	id         string
	task       task.Task
	transcript []llm.ChatMessage

	turns               int
	verifications       int
	corrected           bool
	lastSubmitted       string
	consecutiveFailures int

	bestSource string
	bestPassed int
}

func newSession(t task.Task) *session {
	return &session{
		id:   uuid.NewString(),
		task: t,
		transcript: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: buildSystemPrompt()},
			{Role: llm.RoleUser, Content: buildUserPrompt(t)},
		},
		bestPassed: -1,
	}
}

func (s *session) append(msg llm.ChatMessage) {
	s.transcript = append(s.transcript, msg)
}

// appendVerdict serializes a verdict into the transcript as the action
// result so the next request carries full feedback.
func (s *session) appendVerdict(callID string, verdict verifier.Verdict) {
	payload, err := json.Marshal(verdict)
	if err != nil {
		payload = []byte(`{"accepted":false,"diagnostic":"internal: verdict serialization failed"}`)
	}
	s.append(llm.ChatMessage{
		Role:       llm.RoleTool,
		Name:       ActionSubmitCandidate,
		ToolCallID: callID,
		Content:    string(payload),
	})
}

// noteCandidate applies the DECIDE bookkeeping for a rejected candidate.
// Best-candidate tracking only considers genuinely verified submissions.
func (s *session) noteCandidate(code string, verdict verifier.Verdict, verified bool) {
	s.consecutiveFailures++
	if verified && verdict.TestsPassed > s.bestPassed {
		s.bestPassed = verdict.TestsPassed
		s.bestSource = code
	}
}

// finalSource picks the value the loop always returns: the best improving
// candidate, else the last non-trivial submission, else the original.
func (s *session) finalSource() string {
	if s.bestSource != "" {
		return s.bestSource
	}
	if len(s.lastSubmitted) > 20 {
		return s.lastSubmitted
	}
	return s.task.Source
}
