package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/osamaafana/BookScaner/internal/models"
)

// EnrichBooks resolves a batch of title/author/isbn guesses against the
// catalogs without going through OCR. Used by clients that already have
// text, e.g. manual entry or a re-resolve of an old scan.
func (h *Handler) EnrichBooks(w http.ResponseWriter, r *http.Request) {
	var partials []models.PartialBook
	if err := json.NewDecoder(r.Body).Decode(&partials); err != nil {
		h.writeError(w, "Body must be a JSON array of {title, author, isbn}", http.StatusBadRequest)
		return
	}

	books := h.resolver.ResolveMany(r.Context(), partials)
	h.writeJSON(w, map[string]any{"books": books})
}
