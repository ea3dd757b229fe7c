package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/config"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/llm"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/llm/providers/openai"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/logging"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/observability"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/repair"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/verifier"
	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/version"
)

// Options holds global CLI options.
type Options struct {
	ConfigPath string
}

// NewRootCmd constructs the base CLI command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:           "agentfix",
		Short:         "agentfix – LLM-driven test-verified code repair",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to config file (default: configs/config.yaml)")

	cmd.AddCommand(NewFixCmd(opts))
	cmd.AddCommand(NewEvalCmd(opts))
	cmd.AddCommand(NewDoctorCmd(opts))
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig wraps config loading with shared options.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// buildEngine assembles the repair stack from configuration: one provider
// per credential feeding the rotator, a sandboxed verifier, and metrics.
func buildEngine(cfg *config.Config, logger *zap.Logger) (*repair.Engine, *verifier.Verifier, *observability.Metrics, error) {
	keys := cfg.Credentials.Keys()
	providers := make([]llm.Provider, 0, len(keys))
	for _, key := range keys {
		providers = append(providers, openai.NewProvider(cfg.Provider.Type, cfg.Provider.BaseURL, key, cfg.Provider.Timeout))
	}

	rotator, err := llm.NewRotator(providers)
	if err != nil {
		return nil, nil, nil, err
	}

	v := verifier.New(cfg.Verifier.Timeout(), cfg.Verifier.MaxReported)
	metrics := observability.NewMetrics()

	repairCfg := cfg.Repair
	if repairCfg.Model == "" {
		repairCfg.Model = cfg.ModelName()
	}

	return repair.NewEngine(rotator, v, repairCfg, logger, metrics), v, metrics, nil
}

// newLogger builds the application logger from config.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
}
