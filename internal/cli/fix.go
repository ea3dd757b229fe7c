package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/repair"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/task"
)

// NewFixCmd repairs a single buggy source file against its test assertions.
func NewFixCmd(opts *Options) *cobra.Command {
	var testFile string
	var assertionFlags []string
	var taskID string
	var description string
	var outPath string
	var showLog bool

	cmd := &cobra.Command{
		Use:   "fix <source-file>",
		Short: "Repair one buggy source file until its tests pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort

			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}

			assertions := append([]string(nil), assertionFlags...)
			if testFile != "" {
				fromFile, err := readAssertionFile(testFile)
				if err != nil {
					return err
				}
				assertions = append(assertions, fromFile...)
			}

			t := task.Task{
				ID:          taskID,
				Source:      string(source),
				Assertions:  assertions,
				Description: description,
			}
			if t.ID == "" {
				t.ID = args[0]
			}
			if err := t.Validate(); err != nil {
				return err
			}

			engine, _, _, err := buildEngine(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res := engine.Repair(ctx, t)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "outcome: %s (%d iteration(s), %s)\n", res.Outcome, res.Iterations, res.Elapsed.Round(10*time.Millisecond))
			if res.LastVerdict != nil {
				fmt.Fprintf(out, "verdict: %s\n", res.LastVerdict.Diagnostic)
			}
			if showLog {
				if data, err := json.MarshalIndent(res.Log, "", "  "); err == nil {
					fmt.Fprintln(out, string(data))
				}
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(res.Source), 0o644); err != nil {
					return fmt.Errorf("write repaired source: %w", err)
				}
				fmt.Fprintf(out, "repaired source written to %s\n", outPath)
			} else {
				fmt.Fprintln(out, res.Source)
			}

			if res.Outcome != repair.OutcomeSuccess {
				return fmt.Errorf("repair did not succeed: %s", res.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&testFile, "tests", "", "File with one boolean test expression per line")
	cmd.Flags().StringArrayVar(&assertionFlags, "assert", nil, "Boolean test expression (repeatable)")
	cmd.Flags().StringVar(&taskID, "id", "", "Task identifier (default: source path)")
	cmd.Flags().StringVar(&description, "description", "", "Natural-language description of intended behaviour")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the repaired source to this path instead of stdout")
	cmd.Flags().BoolVar(&showLog, "show-log", false, "Print the session log summary")
	return cmd
}

// readAssertionFile loads test expressions, one per line. Blank lines and
// comment lines are skipped.
func readAssertionFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tests: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
