// Package handlers implements the HTTP surface of the scan service.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/osamaafana/BookScaner/internal/cache"
	"github.com/osamaafana/BookScaner/internal/metadata"
	"github.com/osamaafana/BookScaner/internal/ratelimit"
	"github.com/osamaafana/BookScaner/internal/vision"
)

type Handler struct {
	vision   *vision.Service
	resolver *metadata.Resolver
	limiter  *ratelimit.Limiter
	store    cache.Store

	maxUploadBytes int64
	groqEnabled    bool
}

type Options struct {
	Vision      *vision.Service
	Resolver    *metadata.Resolver
	Limiter     *ratelimit.Limiter
	Store       cache.Store
	MaxUploadMB int
	GroqEnabled bool
}

func New(opts Options) *Handler {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 10
	}
	return &Handler{
		vision:         opts.Vision,
		resolver:       opts.Resolver,
		limiter:        opts.Limiter,
		store:          opts.Store,
		maxUploadBytes: int64(opts.MaxUploadMB) * 1024 * 1024,
		groqEnabled:    opts.GroqEnabled,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Health reports liveness plus whether the cache backend is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	cacheStatus := "ok"
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Warn("Cache backend unreachable", "err", err)
		cacheStatus = "unreachable"
	}
	h.writeJSON(w, map[string]string{"status": status, "cache": cacheStatus})
}
