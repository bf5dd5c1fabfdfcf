package nim

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/osamaafana/BookScaner/internal/models"
	"github.com/osamaafana/BookScaner/internal/providers"
)

func fragments() *models.FragmentSet {
	return &models.FragmentSet{
		FullText: "THE HOBBIT TOLKIEN",
		Fragments: []models.Fragment{
			{Text: "THE", BBox: models.BBox{X: 0, Y: 0, W: 0.25, H: 0.25}},
			{Text: "HOBBIT", BBox: models.BBox{X: 0.3, Y: 0, W: 0.7, H: 0.25}},
			{Text: "TOLKIEN", BBox: models.BBox{X: 0, Y: 0.5, W: 0.5, H: 0.25}},
		},
	}
}

func serveMessage(t *testing.T, msg map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if len(body.Messages) != 2 || !strings.Contains(body.Messages[1].Content, `"candidates":[`) {
			t.Errorf("user message must carry compact candidate JSON, got %+v", body.Messages)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": msg}},
		})
	}))
}

func TestAggregate(t *testing.T) {
	srv := serveMessage(t, map[string]string{
		"content": `{"spines":[{"text":"The Hobbit\nTolkien","bbox":{"x":0,"y":0,"w":1,"h":0.75}}]}`,
	})
	defer srv.Close()

	res, err := New("key", srv.URL, "").Aggregate(context.Background(), fragments())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Spines) != 1 || !strings.HasPrefix(res.Spines[0].Text, "The Hobbit") {
		t.Fatalf("spines = %+v", res.Spines)
	}
}

func TestAggregateReasoningContentFallback(t *testing.T) {
	srv := serveMessage(t, map[string]string{
		"content":           "",
		"reasoning_content": "```json\n{\"spines\":[{\"text\":\"Dune\"}]}\n```",
	})
	defer srv.Close()

	res, err := New("", srv.URL, "m").Aggregate(context.Background(), fragments())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(res.Spines) != 1 || res.Spines[0].Text != "Dune" {
		t.Fatalf("spines = %+v", res.Spines)
	}
}

func TestAggregateEmptyMessage(t *testing.T) {
	srv := serveMessage(t, map[string]string{"content": ""})
	defer srv.Close()

	_, err := New("", srv.URL, "").Aggregate(context.Background(), fragments())
	var perr *providers.Error
	if !errors.As(err, &perr) || perr.Kind != providers.KindParse {
		t.Fatalf("got %v, want parse failure", err)
	}
}

func TestAggregateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New("", srv.URL, "").Aggregate(context.Background(), fragments())
	var perr *providers.Error
	if !errors.As(err, &perr) || perr.Kind != providers.KindUnavailable {
		t.Fatalf("got %v, want unavailable", err)
	}
}
