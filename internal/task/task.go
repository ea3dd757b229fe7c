// Package task defines repair problems and loads them from JSONL datasets.
package task

import (
	"errors"
	"fmt"
	"strings"
)

// Task is one immutable repair problem: a known-buggy source, the
// assertions it must satisfy, and a short description of the defect.
type Task struct {
	ID          string   `json:"task_id"`
	Source      string   `json:"buggy_source"`
	Assertions  []string `json:"assertions"`
	Description string   `json:"description,omitempty"`
}

// Validate reports whether the task is well-formed. A malformed task is a
// configuration error and is never retried.
func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("task id is required")
	}
	if strings.TrimSpace(t.Source) == "" {
		return fmt.Errorf("task %s: buggy source is required", t.ID)
	}
	for i, a := range t.Assertions {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("task %s: assertion %d is empty", t.ID, i+1)
		}
	}
	return nil
}
