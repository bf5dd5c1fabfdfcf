// Package evalcmd implements the resolver evaluation subcommands.
package evalcmd

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/osamaafana/BookScaner/internal/cache"
	"github.com/osamaafana/BookScaner/internal/config"
	"github.com/osamaafana/BookScaner/internal/eval/dataset"
	"github.com/osamaafana/BookScaner/internal/eval/results"
	"github.com/osamaafana/BookScaner/internal/fingerprint"
	"github.com/osamaafana/BookScaner/internal/metadata"
	"github.com/osamaafana/BookScaner/internal/models"
)

func NewRunCmd() *cobra.Command {
	var (
		datasetPath string
		sample      int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run resolver accuracy evaluation against the live catalogs",
		Long: `Resolves every ground-truth record through the metadata pipeline and
scores the results with the same fuzzy similarity the resolver ranks with.

Results are written to evals/ as YAML for later reporting.`,
		Example: `  # Evaluate 50 records from a parquet dump
  bookscanner eval run --dataset books.parquet --sample 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd.Context(), datasetPath, sample, concurrency)
		},
	}

	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Path to a .parquet or .jsonl ground-truth dataset")
	cmd.Flags().IntVarP(&sample, "sample", "s", 0, "Evaluate only the first N records (0 = all)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Concurrent resolutions")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func executeRun(ctx context.Context, datasetPath string, sample, concurrency int) error {
	slog.Info("Starting evaluation run", "dataset", datasetPath, "sample", sample)

	records, err := dataset.NewLoader(datasetPath).LoadSample(sample)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Info("Dataset loaded", "records", len(records))

	cfg := config.Load()
	resolver, catalogs := buildResolver(cfg)
	if catalogs == "" {
		return fmt.Errorf("no catalogs enabled, nothing to evaluate")
	}

	if concurrency < 1 {
		concurrency = 1
	}
	slog.Info("Resolving records", "concurrency", concurrency, "catalogs", catalogs)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)
	resultsChan := make(chan results.EvalResult, len(records))

	for i, record := range records {
		wg.Add(1)
		go func(idx int, record dataset.GroundTruthRecord) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			slog.Info("Resolving record", "id", record.ID, "progress", fmt.Sprintf("%d/%d", idx+1, len(records)))
			resultsChan <- scoreRecord(ctx, resolver, record)
		}(i, record)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	var evalResults []results.EvalResult
	for r := range resultsChan {
		evalResults = append(evalResults, r)
	}
	sort.Slice(evalResults, func(i, j int) bool {
		return evalResults[i].Identifier < evalResults[j].Identifier
	})

	summary := results.Summarize(evalResults)
	slog.Info("Evaluation complete",
		"records", summary.Records,
		"resolved", summary.Resolved,
		"resolution_rate", fmt.Sprintf("%.2f", summary.ResolutionRate),
		"mean_title_score", fmt.Sprintf("%.2f", summary.MeanTitleScore))

	path, err := results.SaveToYAML(datasetPath, catalogs, sample, evalResults)
	if err != nil {
		return err
	}
	fmt.Printf("Evaluation results saved to: %s\n", path)
	return nil
}

// buildResolver wires the same catalog chain the server uses, but over
// an in-memory cache so eval runs never pollute the shared store.
func buildResolver(cfg config.Config) (*metadata.Resolver, string) {
	gateway := cache.NewGateway(cache.NewMemoryStore())

	var primary, fallback metadata.Catalog
	names := []string{}
	if cfg.OpenLibraryEnabled {
		primary = metadata.NewOpenLibrary()
		names = append(names, "openlibrary")
	}
	fallback = metadata.NewGoogleBooks(cfg.GoogleBooksAPIKey)
	names = append(names, "googlebooks")

	return metadata.NewResolver(gateway, primary, fallback, cfg.MetadataTTL), strings.Join(names, ",")
}

// scoreRecord resolves one ground-truth record the way a scan would:
// spine text through the naive split, then the catalog chain.
func scoreRecord(ctx context.Context, resolver *metadata.Resolver, record dataset.GroundTruthRecord) results.EvalResult {
	out := results.EvalResult{
		Identifier:   record.ID,
		Title:        record.Title,
		Author:       record.Author,
		ExpectedISBN: fingerprint.NormalizeISBN(record.PrimaryISBN()),
	}

	partial := metadata.SplitSpineText(models.Spine{Text: record.Spine(), CandidateISBN: record.PrimaryISBN()})
	book := resolver.Resolve(ctx, partial)
	if book == nil {
		return out
	}

	out.Resolved = true
	out.ResolvedTitle = book.Title
	out.ResolvedAuthor = book.Author
	out.ResolvedISBN = book.ISBN
	out.TitleScore = metadata.Similarity(record.Title, book.Title)
	out.AuthorScore = metadata.Similarity(record.Author, book.Author)
	out.ISBNMatch = out.ExpectedISBN != "" && out.ExpectedISBN == book.ISBN
	return out
}
