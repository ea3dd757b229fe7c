package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahmedehabb/LLM-Based-Agentic-Systems-for-Software-Development-Tasks/internal/version"
)

// NewVersionCmd prints the compiled version details.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show agentfix version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}
