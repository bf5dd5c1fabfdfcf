package cmd

import (
	"github.com/spf13/cobra"

	"github.com/osamaafana/BookScaner/internal/evalcmd"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Metadata resolver evaluation tools",
		Long: `Evaluation tools for measuring how accurately the metadata resolver
identifies books from spine text.

Supports running evaluations against ground-truth catalog dumps,
inspecting datasets, and reporting on saved runs.`,
	}

	// Add eval subcommands
	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())

	return cmd
}
