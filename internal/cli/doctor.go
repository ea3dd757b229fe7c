package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDoctorCmd returns a health-check command validating config and environment.
func NewDoctorCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config OK. Provider: %s, model: %s, credentials: %d\n",
				cfg.Provider.Type, cfg.ModelName(), len(cfg.Credentials.Keys()))
			fmt.Fprintf(out, "Iteration budget: %d, verifier timeout: %s, metrics: %v\n",
				cfg.Repair.MaxIterations, cfg.Verifier.Timeout(), cfg.Metrics.Enabled)
			return nil
		},
	}
}
