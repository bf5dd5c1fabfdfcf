package evalcmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/osamaafana/BookScaner/internal/eval/results"
)

func NewReportCmd() *cobra.Command {
	var worst int

	cmd := &cobra.Command{
		Use:   "report <eval-file.yaml>",
		Short: "Summarize a saved evaluation run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(args[0], worst)
		},
	}

	cmd.Flags().IntVarP(&worst, "worst", "w", 10, "Show the N lowest-scoring resolved records")

	return cmd
}

func executeReport(path string, worst int) error {
	spec, err := results.LoadFromYAML(path)
	if err != nil {
		return err
	}

	fmt.Printf("Dataset:          %s\n", spec.Config.DatasetPath)
	fmt.Printf("Catalogs:         %s\n", spec.Config.Catalogs)
	fmt.Printf("Run at:           %s\n", spec.Config.Timestamp)
	fmt.Printf("Records:          %d\n", spec.Summary.Records)
	fmt.Printf("Resolved:         %d (%.1f%%)\n", spec.Summary.Resolved, spec.Summary.ResolutionRate*100)
	fmt.Printf("Mean title score: %.3f\n", spec.Summary.MeanTitleScore)
	fmt.Printf("Mean author score: %.3f\n", spec.Summary.MeanAuthorScore)
	fmt.Printf("ISBN matches:     %d\n", spec.Summary.ISBNMatches)

	unresolved := 0
	resolved := make([]results.EvalResult, 0, len(spec.Results))
	for _, r := range spec.Results {
		if r.Resolved {
			resolved = append(resolved, r)
		} else {
			unresolved++
		}
	}

	if unresolved > 0 {
		fmt.Printf("\nUnresolved records: %d\n", unresolved)
		for _, r := range spec.Results {
			if !r.Resolved {
				fmt.Printf("  %s  %q / %q\n", r.Identifier, r.Title, r.Author)
			}
		}
	}

	if worst > 0 && len(resolved) > 0 {
		sort.Slice(resolved, func(i, j int) bool {
			return resolved[i].TitleScore < resolved[j].TitleScore
		})
		if worst > len(resolved) {
			worst = len(resolved)
		}
		fmt.Printf("\nLowest title scores:\n")
		for _, r := range resolved[:worst] {
			fmt.Printf("  %.3f  %s  expected %q, got %q\n", r.TitleScore, r.Identifier, r.Title, r.ResolvedTitle)
		}
	}

	return nil
}
