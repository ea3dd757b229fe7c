// Package eval runs the repair engine over a benchmark dataset and scores
// the returned sources independently of what the sessions reported.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/repair"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/task"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/verifier"
)

// TaskResult is the scored outcome for one dataset entry.
type TaskResult struct {
	TaskID     string         `json:"task_id"`
	Passed     bool           `json:"passed"`
	Outcome    repair.Outcome `json:"outcome"`
	Iterations int            `json:"iterations"`
	Elapsed    float64        `json:"elapsed_seconds"`
	Diagnostic string         `json:"diagnostic,omitempty"`
	Source     string         `json:"source"`
}

// Report aggregates a full dataset run.
type Report struct {
	StartedAt time.Time    `json:"started_at"`
	Elapsed   float64      `json:"elapsed_seconds"`
	Total     int          `json:"total"`
	Passed    int          `json:"passed"`
	Failed    int          `json:"failed"`
	PassRate  float64      `json:"pass_rate"`
	Tasks     []TaskResult `json:"tasks"`
}

// Runner repairs each task in sequence and re-verifies every returned source
// with a fresh verifier pass, so a session cannot grade its own homework.
type Runner struct {
	engine   *repair.Engine
	verifier *verifier.Verifier
	logger   *zap.Logger
}

// NewRunner creates a Runner. Logger may be nil.
func NewRunner(engine *repair.Engine, v *verifier.Verifier, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{engine: engine, verifier: v, logger: logger}
}

// Run processes the tasks sequentially. Cancellation stops between tasks;
// results collected so far are still returned.
func (r *Runner) Run(ctx context.Context, tasks []task.Task) Report {
	started := time.Now()
	report := Report{StartedAt: started, Tasks: make([]TaskResult, 0, len(tasks))}

	for i, t := range tasks {
		if ctx.Err() != nil {
			r.logger.Warn("evaluation cancelled", zap.Int("completed", i), zap.Int("total", len(tasks)))
			break
		}

		r.logger.Info("evaluating task",
			zap.String("task", t.ID),
			zap.Int("index", i+1),
			zap.Int("total", len(tasks)))

		res := r.engine.Repair(ctx, t)
		scored := r.score(ctx, t, res)
		report.Tasks = append(report.Tasks, scored)
		report.Total++
		if scored.Passed {
			report.Passed++
		} else {
			report.Failed++
		}

		r.logger.Info("task finished",
			zap.String("task", t.ID),
			zap.Bool("passed", scored.Passed),
			zap.String("outcome", string(res.Outcome)),
			zap.Int("iterations", res.Iterations))
	}

	report.Elapsed = time.Since(started).Seconds()
	if report.Total > 0 {
		report.PassRate = float64(report.Passed) / float64(report.Total)
	}
	return report
}

// score re-verifies the final source against the task's assertions. A task
// with no assertions can never be scored as passed.
func (r *Runner) score(ctx context.Context, t task.Task, res repair.Result) TaskResult {
	out := TaskResult{
		TaskID:     t.ID,
		Outcome:    res.Outcome,
		Iterations: res.Iterations,
		Elapsed:    res.Elapsed.Seconds(),
		Source:     res.Source,
	}

	if len(t.Assertions) == 0 {
		out.Diagnostic = "no assertions declared; task cannot be scored"
		return out
	}

	verdict := r.verifier.Verify(ctx, res.Source, t.Assertions)
	out.Passed = verdict.Accepted
	out.Diagnostic = verdict.Diagnostic
	return out
}

// WriteReport serializes the report as indented JSON.
func WriteReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
