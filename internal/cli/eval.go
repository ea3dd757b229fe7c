package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/eval"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/task"
)

// NewEvalCmd runs the repair engine over a JSONL benchmark dataset.
func NewEvalCmd(opts *Options) *cobra.Command {
	var limit int
	var resultsPath string

	cmd := &cobra.Command{
		Use:   "eval <dataset.jsonl>",
		Short: "Repair every task in a dataset and report the pass rate",
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

			tasks, err := task.LoadFile(args[0], limit)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				return fmt.Errorf("dataset %s contains no tasks", args[0])
			}

			engine, v, metrics, err := buildEngine(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Metrics.Enabled {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
				srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Warn("metrics listener failed", zap.Error(err))
					}
				}()
				defer srv.Close()
				logger.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
			}

			runner := eval.NewRunner(engine, v, logger)
			report := runner.Run(ctx, tasks)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tasks: %d, passed: %d, failed: %d, pass rate: %.1f%%\n",
				report.Total, report.Passed, report.Failed, report.PassRate*100)

			if resultsPath != "" {
				if err := eval.WriteReport(resultsPath, report); err != nil {
					return err
				}
				fmt.Fprintf(out, "results written to %s\n", resultsPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Evaluate at most N tasks (0 = all)")
	cmd.Flags().StringVarP(&resultsPath, "results", "r", "", "Write the full JSON report to this path")
	return cmd
}
