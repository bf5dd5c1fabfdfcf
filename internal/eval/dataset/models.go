package dataset

import "strings"

// GroundTruthRecord is one known-good bibliographic record used to
// measure resolver accuracy. Datasets are exported from catalog dumps
// as Parquet or JSONL with these column names.
type GroundTruthRecord struct {
	ID     string   `json:"id" parquet:"id"`
	Title  string   `json:"title" parquet:"title"`
	Author string   `json:"author" parquet:"author"`
	ISBN   []string `json:"isbn" parquet:"isbn,list"`

	// SpineText simulates what OCR would read off the shelf. Optional;
	// when empty the eval feeds title/author directly.
	SpineText string `json:"spine_text" parquet:"spine_text"`

	Publisher string `json:"publisher" parquet:"publisher"`
	Year      int    `json:"year" parquet:"year"`
}

// PrimaryISBN returns the record's first ISBN, if any.
func (r *GroundTruthRecord) PrimaryISBN() string {
	if len(r.ISBN) == 0 {
		return ""
	}
	return r.ISBN[0]
}

// Spine returns the text a scanner would see for this record, falling
// back to "Title\nAuthor" when the dataset has no captured spine text.
func (r *GroundTruthRecord) Spine() string {
	if r.SpineText != "" {
		return r.SpineText
	}
	parts := []string{}
	if r.Title != "" {
		parts = append(parts, r.Title)
	}
	if r.Author != "" {
		parts = append(parts, r.Author)
	}
	return strings.Join(parts, "\n")
}
