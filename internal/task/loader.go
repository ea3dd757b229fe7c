package task

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// record mirrors the dataset row shape. Assertions may arrive either as a
// list or as a single newline-separated test block.
type record struct {
	TaskID      string   `json:"task_id"`
	Source      string   `json:"buggy_source"`
	Declaration string   `json:"declaration,omitempty"`
	Assertions  []string `json:"assertions,omitempty"`
	Tests       string   `json:"tests,omitempty"`
	Description string   `json:"description,omitempty"`
}

// LoadFile reads tasks from a JSONL dataset file. Blank lines are skipped;
// a negative or zero limit loads everything.
func LoadFile(path string, limit int) ([]Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var tasks []Task
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if limit > 0 && len(tasks) >= limit {
			break
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("dataset line %d: %w", lineNo, err)
		}

		t := fromRecord(rec, lineNo)
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("dataset line %d: %w", lineNo, err)
		}
		tasks = append(tasks, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return tasks, nil
}

func fromRecord(rec record, lineNo int) Task {
	id := rec.TaskID
	if id == "" {
		id = fmt.Sprintf("task_%d", lineNo)
	}

	// Some dataset variants split the signature off from the buggy body.
	source := rec.Source
	if rec.Declaration != "" && !strings.Contains(source, rec.Declaration) {
		source = rec.Declaration + source
	}

	assertions := append([]string(nil), rec.Assertions...)
	if len(assertions) == 0 && rec.Tests != "" {
		assertions = splitTestBlock(rec.Tests)
	}

	return Task{
		ID:          id,
		Source:      source,
		Assertions:  assertions,
		Description: rec.Description,
	}
}

// splitTestBlock extracts one assertion per non-empty line from a raw test
// block, skipping comments and scaffolding.
func splitTestBlock(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, line)
	}
	return out
}
