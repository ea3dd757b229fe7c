package repair

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level classifies session log entries.
type Level string

const (
	LevelInfo    Level = "info"
	LevelTool    Level = "tool"
	LevelAgent   Level = "agent"
	LevelModel   Level = "model"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Entry is one timestamped session log record.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Elapsed   time.Duration  `json:"elapsed"`
	Action    string         `json:"action"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// Summary aggregates a finished session log.
type Summary struct {
	TotalEntries int           `json:"total_entries"`
	Elapsed      time.Duration `json:"elapsed"`
	Actions      []string      `json:"actions"`
	Errors       []Entry       `json:"errors,omitempty"`
}

// Observer is the append-only session log. It records loop events for
// diagnostics and post-hoc summaries and has no control-flow effect.
type Observer struct {
	mu      sync.Mutex
	start   time.Time
	entries []Entry
	logger  *zap.Logger
}

// NewObserver creates an observer mirroring entries to the given logger.
func NewObserver(logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{logger: logger}
}

// Start resets the elapsed-time origin for a new session.
func (o *Observer) Start(taskID string) {
	o.mu.Lock()
	o.start = time.Now()
	o.mu.Unlock()
	o.Record("session_start", "starting task: "+taskID, LevelInfo, nil)
}

// Record appends an entry. History is never trimmed or rewritten.
func (o *Observer) Record(action, message string, level Level, data map[string]any) {
	o.mu.Lock()
	now := time.Now()
	elapsed := time.Duration(0)
	if !o.start.IsZero() {
		elapsed = now.Sub(o.start)
	}
	o.entries = append(o.entries, Entry{
		Timestamp: now,
		Elapsed:   elapsed,
		Action:    action,
		Level:     level,
		Message:   message,
		Data:      data,
	})
	o.mu.Unlock()

	fields := []zap.Field{zap.String("action", action), zap.Duration("elapsed", elapsed)}
	switch level {
	case LevelError:
		o.logger.Error(message, fields...)
	case LevelSuccess:
		o.logger.Info(message, append(fields, zap.Bool("success", true))...)
	default:
		o.logger.Info(message, append(fields, zap.String("level", string(level)))...)
	}
}

// Entries returns a copy of the recorded history.
func (o *Observer) Entries() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Entry, len(o.entries))
	copy(out, o.entries)
	return out
}

// Summary returns aggregate counts and the error-level entries.
func (o *Observer) Summary() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Summary{TotalEntries: len(o.entries)}
	if !o.start.IsZero() {
		s.Elapsed = time.Since(o.start)
	}
	for _, e := range o.entries {
		s.Actions = append(s.Actions, e.Action)
		if e.Level == LevelError {
			s.Errors = append(s.Errors, e)
		}
	}
	return s
}
