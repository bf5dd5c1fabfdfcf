package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookscanner",
		Short: "Bookshelf photo scanner with OCR and catalog metadata resolution",
		Long: `BookScanner turns photos of bookshelves into canonical book records.

It runs OCR across a chain of vision providers, groups the detected text
into per-book spines, and resolves each spine against OpenLibrary and
Google Books. An evaluation CLI measures resolver accuracy against
ground-truth catalog dumps.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}
