// Package repair drives the propose-verify-refine loop: it owns the
// conversation transcript, requests candidate fixes from the model through
// rotating credentials, verifies each submission, and feeds the verdict
// back until the tests pass or the budget runs out.
package repair

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/config"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/llm"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/observability"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/task"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/verifier"
)

// Outcome is the terminal state of a repair session.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeAborted   Outcome = "aborted"
)

// Result is what a session always produces. Source is never empty: the
// accepted candidate, the best partial candidate, or the original input.
type Result struct {
	TaskID      string           `json:"task_id"`
	SessionID   string           `json:"session_id"`
	Source      string           `json:"source"`
	Outcome     Outcome          `json:"outcome"`
	Iterations  int              `json:"iterations"`
	LastVerdict *verifier.Verdict `json:"last_verdict,omitempty"`
	Elapsed     time.Duration    `json:"elapsed"`
	Log         Summary          `json:"log"`
}

// Engine orchestrates repair sessions. It is safe for concurrent sessions;
// only the credential rotator is shared.
type Engine struct {
	rotator  *llm.Rotator
	verifier *verifier.Verifier
	cfg      config.RepairConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewEngine creates an Engine. Logger and metrics may be nil.
func NewEngine(rotator *llm.Rotator, v *verifier.Verifier, cfg config.RepairConfig, logger *zap.Logger, metrics *observability.Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		rotator:  rotator,
		verifier: v,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Repair runs one full session for the task. It never returns an error for
// service flakiness or candidate faults; the result always carries a
// deterministic source.
func (e *Engine) Repair(ctx context.Context, t task.Task) Result {
	start := time.Now()
	s := newSession(t)
	obs := NewObserver(e.logger.With(zap.String("task", t.ID), zap.String("session", s.id)))
	obs.Start(t.ID)
	obs.Record("fix_start", fmt.Sprintf("starting repair with model %s", e.cfg.Model), LevelAgent, nil)

	budget := e.iterationBudget()
	turnCap := budget * 3
	outcome := OutcomeExhausted
	var lastVerdict *verifier.Verdict

loop:
	for s.turns < turnCap && s.verifications < budget {
		if ctx.Err() != nil {
			obs.Record("cancelled", ctx.Err().Error(), LevelError, nil)
			outcome = OutcomeAborted
			break
		}
		s.turns++

		resp, err := e.request(ctx, s, obs)
		if err != nil {
			obs.Record("api_exhausted", fmt.Sprintf("all retry attempts failed: %v", err), LevelError, nil)
			outcome = OutcomeAborted
			break
		}
		s.append(resp.Message)

		actions, parseErr := ParseActions(resp.Message.ToolCalls)
		if parseErr != nil {
			obs.Record("action_parse", parseErr.Error(), LevelError, nil)
		}

		if len(actions) == 0 {
			if s.verifications == 0 && !s.corrected {
				// First turn without an action: demand one and retry
				// without consuming the budget.
				s.corrected = true
				s.turns--
				s.append(llm.ChatMessage{Role: llm.RoleUser, Content: correctiveInstruction()})
				obs.Record("force_action", "model did not invoke the action; injecting corrective instruction", LevelAgent, nil)
				continue
			}
			obs.Record("model_concluded", "model stopped invoking the action; ending loop", LevelAgent, nil)
			break
		}

		for _, a := range actions {
			sub, ok := a.(SubmitCandidate)
			if !ok {
				continue
			}

			verdict, verified := e.evaluate(ctx, s, sub, obs)
			lastVerdict = &verdict
			s.appendVerdict(sub.CallID, verdict)

			if verdict.Accepted {
				obs.Record("fix_success", verdict.Diagnostic, LevelSuccess, nil)
				outcome = OutcomeSuccess
				s.bestSource = sub.Code
				break loop
			}
			s.noteCandidate(sub.Code, verdict, verified)
			if s.verifications >= budget {
				break
			}
		}
	}

	if outcome != OutcomeSuccess {
		obs.Record("fix_incomplete", fmt.Sprintf("session ended %s after %d verification(s)", outcome, s.verifications), LevelError, nil)
	}

	elapsed := time.Since(start)
	e.metrics.RecordSession(string(outcome), s.verifications, elapsed)

	return Result{
		TaskID:      t.ID,
		SessionID:   s.id,
		Source:      s.finalSource(),
		Outcome:     outcome,
		Iterations:  s.verifications,
		LastVerdict: lastVerdict,
		Elapsed:     elapsed,
		Log:         obs.Summary(),
	}
}

// request calls the service through the rotator with bounded retries and
// exponential backoff, rotating credentials on every attempt.
func (e *Engine) request(ctx context.Context, s *session, obs *Observer) (llm.ChatResponse, error) {
	req := llm.ChatRequest{
		Model:       e.cfg.Model,
		Messages:    s.transcript,
		Tools:       []llm.ToolSpec{submitCandidateSpec()},
		ToolChoice:  "auto",
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.temperature(s),
	}

	attempts := e.retryAttempts()
	delay := e.retryBackoff()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		provider, ordinal := e.rotator.Next()
		e.metrics.RecordCredentialUse(ordinal)

		resp, err := provider.Chat(ctx, req)
		if err == nil {
			obs.Record("model_response", fmt.Sprintf("response received (credential %d/%d, %d tool call(s))",
				ordinal, e.rotator.Size(), len(resp.Message.ToolCalls)), LevelModel, nil)
			return resp, nil
		}

		lastErr = err
		e.metrics.RecordServiceRetry()
		obs.Record("api_error", fmt.Sprintf("attempt %d/%d with credential %d failed: %v",
			attempt, attempts, ordinal, err), LevelError, nil)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return llm.ChatResponse{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return llm.ChatResponse{}, lastErr
}

// evaluate applies the duplicate guard and runs the verifier. The second
// return value reports whether a genuine verification happened.
func (e *Engine) evaluate(ctx context.Context, s *session, sub SubmitCandidate, obs *Observer) (verifier.Verdict, bool) {
	if s.lastSubmitted != "" && strings.TrimSpace(sub.Code) == strings.TrimSpace(s.lastSubmitted) {
		obs.Record("duplicate_submission", "same code submitted twice", LevelError, nil)
		e.metrics.RecordDuplicate()
		return stuckVerdict(), false
	}
	s.lastSubmitted = sub.Code

	obs.Record("tool_called", fmt.Sprintf("candidate submitted (%d bytes): %s", len(sub.Code), sub.Reason), LevelTool, nil)

	verifyStart := time.Now()
	var verdict verifier.Verdict
	if len(s.task.Assertions) > 0 {
		verdict = e.verifier.Verify(ctx, sub.Code, s.task.Assertions)
	} else {
		// No assertions declared: the smoke convention treats a clean run
		// as sufficient.
		if err := e.verifier.Run(ctx, sub.Code); err != nil {
			verdict = verifier.Verdict{Diagnostic: "runtime error: " + err.Error()}
		} else {
			verdict = verifier.Verdict{Accepted: true, Diagnostic: "code runs without errors"}
		}
	}
	s.verifications++
	e.metrics.ObserveVerification(time.Since(verifyStart), verdict.Accepted)

	if verdict.Accepted {
		obs.Record("all_pass", verdict.Diagnostic, LevelSuccess, nil)
	} else {
		obs.Record("tests_failed", fmt.Sprintf("%d/%d passed", verdict.TestsPassed, verdict.TestsTotal), LevelError, nil)
	}
	return verdict, true
}

// temperature implements the adaptive-sampling policy: explore early,
// converge once the session is stuck, settle in between.
func (e *Engine) temperature(s *session) float64 {
	switch {
	case s.verifications < e.explorationWindow():
		return pickTemperature(e.cfg.ExploreTemperature, 0.7)
	case s.consecutiveFailures >= e.stuckThreshold():
		return pickTemperature(e.cfg.FocusTemperature, 0.3)
	default:
		return pickTemperature(e.cfg.SettleTemperature, 0.5)
	}
}

func pickTemperature(configured, fallback float64) float64 {
	if configured > 0 {
		return configured
	}
	return fallback
}

func (e *Engine) iterationBudget() int {
	if e.cfg.MaxIterations > 0 {
		return e.cfg.MaxIterations
	}
	return 10
}

func (e *Engine) retryAttempts() int {
	if e.cfg.ServiceRetries > 0 {
		return e.cfg.ServiceRetries
	}
	return 3
}

func (e *Engine) retryBackoff() time.Duration {
	if e.cfg.RetryBackoff > 0 {
		return e.cfg.RetryBackoff
	}
	return 2 * time.Second
}

func (e *Engine) explorationWindow() int {
	if e.cfg.ExplorationWindow > 0 {
		return e.cfg.ExplorationWindow
	}
	return 3
}

func (e *Engine) stuckThreshold() int {
	if e.cfg.StuckThreshold > 0 {
		return e.cfg.StuckThreshold
	}
	return 3
}

// stuckVerdict is synthesized for a duplicate submission to steer the
// model toward a different approach without spending a verification.
func stuckVerdict() verifier.Verdict {
	return verifier.Verdict{
		Diagnostic: "WARNING: you submitted the EXACT SAME code as your previous attempt. " +
			"The tests are failing, which means this fix does not work. " +
			"Re-read the failures and try a DIFFERENT approach.",
	}
}
