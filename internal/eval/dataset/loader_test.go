package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoader(t *testing.T) {
	path := "./test.parquet"
	loader := NewLoader(path)

	if loader.datasetPath != path {
		t.Errorf("Expected path %s, got %s", path, loader.datasetPath)
	}
}

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}
	return path
}

func TestLoadJSONL(t *testing.T) {
	path := writeDataset(t, "books.jsonl", `{"id":"b1","title":"The Hobbit","author":"J.R.R. Tolkien","isbn":["9780261103344"]}

{"id":"b2","title":"Dune","author":"Frank Herbert","spine_text":"DUNE\nHERBERT"}
`)

	records, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Title != "The Hobbit" || records[0].PrimaryISBN() != "9780261103344" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].Spine() != "DUNE\nHERBERT" {
		t.Errorf("Spine() = %q", records[1].Spine())
	}
}

func TestLoadJSONLSample(t *testing.T) {
	path := writeDataset(t, "books.jsonl", `{"id":"b1","title":"A"}
{"id":"b2","title":"B"}
{"id":"b3","title":"C"}
`)

	records, err := NewLoader(path).LoadSample(2)
	if err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestLoadJSONLBadLine(t *testing.T) {
	path := writeDataset(t, "books.jsonl", `{"id":"b1","title":"A"}
not json
`)

	if _, err := NewLoader(path).Load(); err == nil {
		t.Fatal("want a parse error with the line number")
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	if _, err := NewLoader("books.csv").Load(); err == nil {
		t.Fatal("want an unsupported-format error")
	}
}

func TestSpineFallsBackToTitleAuthor(t *testing.T) {
	tests := []struct {
		name   string
		record GroundTruthRecord
		want   string
	}{
		{"title and author", GroundTruthRecord{Title: "Dune", Author: "Frank Herbert"}, "Dune\nFrank Herbert"},
		{"title only", GroundTruthRecord{Title: "Dune"}, "Dune"},
		{"captured spine wins", GroundTruthRecord{Title: "Dune", SpineText: "DUNE"}, "DUNE"},
		{"empty", GroundTruthRecord{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Spine(); got != tt.want {
				t.Errorf("Spine() = %q, want %q", got, tt.want)
			}
		})
	}
}
