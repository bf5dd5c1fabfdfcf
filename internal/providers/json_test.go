package providers

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain json untouched",
			input: `{"spines":[]}`,
			want:  `{"spines":[]}`,
		},
		{
			name:  "code fence stripped",
			input: "Here you go:\n```\n{\"spines\":[]}\n```",
			want:  `{"spines":[]}`,
		},
		{
			name:  "fenced with json language tag",
			input: "```json\n{\"spines\":[]}\n```",
			want:  `{"spines":[]}`,
		},
		{
			name:  "bare json prefix stripped",
			input: `json {"spines":[]}`,
			want:  `{"spines":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeSpines(t *testing.T) {
	res, err := DecodeSpines("groq", `{"spines":[
		{"text":"The Hobbit","candidate_isbn":"9780261103344","bbox":{"x":0.12345,"y":0.2,"w":0.1,"h":0.5}},
		{"text":"   ","candidate_isbn":null,"bbox":null},
		{"text":"Dune"}
	]}`)
	if err != nil {
		t.Fatalf("DecodeSpines: %v", err)
	}
	if len(res.Spines) != 2 {
		t.Fatalf("got %d spines, want 2 (blank text dropped)", len(res.Spines))
	}
	if res.Spines[0].Text != "The Hobbit" || res.Spines[0].CandidateISBN != "9780261103344" {
		t.Errorf("first spine = %+v", res.Spines[0])
	}
	if res.Spines[0].BBox == nil || res.Spines[0].BBox.X != 0.1234 {
		t.Errorf("bbox not rounded to 4 decimals: %+v", res.Spines[0].BBox)
	}
}

func TestDecodeSpinesFailsClosed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty content", ""},
		{"not json", "sorry, I cannot help with that"},
		{"missing spines field", `{"books":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSpines("nim", tt.input)
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("got %v, want *providers.Error", err)
			}
			if perr.Kind != KindParse {
				t.Errorf("Kind = %q, want parse", perr.Kind)
			}
			if perr.Provider != "nim" {
				t.Errorf("Provider = %q", perr.Provider)
			}
		})
	}
}

func TestDecodeSpinesEmptyListIsSuccess(t *testing.T) {
	res, err := DecodeSpines("groq", `{"spines":[]}`)
	if err != nil {
		t.Fatalf("empty spines must be a successful no-books result: %v", err)
	}
	if len(res.Spines) != 0 {
		t.Fatalf("got %d spines", len(res.Spines))
	}
}
