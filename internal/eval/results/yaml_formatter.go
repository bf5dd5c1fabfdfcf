// Package results persists resolver evaluation runs as YAML files so
// runs can be diffed across catalog and prompt changes.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EvalConfig is the configuration section of the eval YAML.
type EvalConfig struct {
	DatasetPath string `yaml:"datasetpath"`
	SampleSize  int    `yaml:"samplesize"`
	Catalogs    string `yaml:"catalogs"`
	Timestamp   string `yaml:"timestamp"`
}

// EvalResult is one record's resolution outcome.
type EvalResult struct {
	Identifier     string  `yaml:"identifier"`
	Title          string  `yaml:"title"`
	Author         string  `yaml:"author,omitempty"`
	ExpectedISBN   string  `yaml:"expectedisbn,omitempty"`
	Resolved       bool    `yaml:"resolved"`
	ResolvedTitle  string  `yaml:"resolvedtitle,omitempty"`
	ResolvedAuthor string  `yaml:"resolvedauthor,omitempty"`
	ResolvedISBN   string  `yaml:"resolvedisbn,omitempty"`
	TitleScore     float64 `yaml:"titlescore"`
	AuthorScore    float64 `yaml:"authorscore"`
	ISBNMatch      bool    `yaml:"isbnmatch"`
	Error          string  `yaml:"error,omitempty"`
}

// EvalSummary aggregates a run.
type EvalSummary struct {
	Records         int     `yaml:"records"`
	Resolved        int     `yaml:"resolved"`
	ResolutionRate  float64 `yaml:"resolutionrate"`
	MeanTitleScore  float64 `yaml:"meantitlescore"`
	MeanAuthorScore float64 `yaml:"meanauthorscore"`
	ISBNMatches     int     `yaml:"isbnmatches"`
}

// EvalSpec is the complete evaluation file.
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Summary EvalSummary  `yaml:"summary"`
	Results []EvalResult `yaml:"results"`
}

// Summarize computes the aggregate section from individual results.
func Summarize(results []EvalResult) EvalSummary {
	s := EvalSummary{Records: len(results)}
	if len(results) == 0 {
		return s
	}

	var titleSum, authorSum float64
	for _, r := range results {
		if r.Resolved {
			s.Resolved++
		}
		if r.ISBNMatch {
			s.ISBNMatches++
		}
		titleSum += r.TitleScore
		authorSum += r.AuthorScore
	}
	s.ResolutionRate = float64(s.Resolved) / float64(s.Records)
	s.MeanTitleScore = titleSum / float64(s.Records)
	s.MeanAuthorScore = authorSum / float64(s.Records)
	return s
}

// SaveToYAML writes an eval run into the evals/ directory and returns
// the file path.
func SaveToYAML(datasetPath, catalogs string, sampleSize int, evalResults []EvalResult) (string, error) {
	if err := os.MkdirAll("evals", 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	spec := EvalSpec{
		Config: EvalConfig{
			DatasetPath: datasetPath,
			SampleSize:  sampleSize,
			Catalogs:    catalogs,
			Timestamp:   timestamp,
		},
		Summary: Summarize(evalResults),
		Results: evalResults,
	}

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	filename := fmt.Sprintf("evals/resolver-%s.yaml", timestamp)
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	absPath, _ := filepath.Abs(filename)
	return absPath, nil
}

// LoadFromYAML reads a previously saved eval run.
func LoadFromYAML(path string) (*EvalSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read eval file: %w", err)
	}
	var spec EvalSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse eval file: %w", err)
	}
	return &spec, nil
}
