package evalcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osamaafana/BookScaner/internal/eval/dataset"
)

func NewInspectCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect <dataset>",
		Short: "Print a sample of a ground-truth dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeInspect(args[0], limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of records to print")

	return cmd
}

func executeInspect(path string, limit int) error {
	records, err := dataset.NewLoader(path).LoadSample(limit)
	if err != nil {
		return err
	}

	for _, r := range records {
		fmt.Printf("id:        %s\n", r.ID)
		fmt.Printf("title:     %s\n", r.Title)
		fmt.Printf("author:    %s\n", r.Author)
		if isbn := r.PrimaryISBN(); isbn != "" {
			fmt.Printf("isbn:      %s\n", isbn)
		}
		if r.SpineText != "" {
			fmt.Printf("spine:     %q\n", r.SpineText)
		}
		if r.Year != 0 {
			fmt.Printf("year:      %d\n", r.Year)
		}
		fmt.Println()
	}
	fmt.Printf("%d record(s)\n", len(records))
	return nil
}
