package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/osamaafana/BookScaner/internal/cache"
	"github.com/osamaafana/BookScaner/internal/config"
	"github.com/osamaafana/BookScaner/internal/gcv"
	"github.com/osamaafana/BookScaner/internal/gemini"
	"github.com/osamaafana/BookScaner/internal/groq"
	"github.com/osamaafana/BookScaner/internal/handlers"
	"github.com/osamaafana/BookScaner/internal/metadata"
	"github.com/osamaafana/BookScaner/internal/nim"
	"github.com/osamaafana/BookScaner/internal/ratelimit"
	"github.com/osamaafana/BookScaner/internal/spend"
	"github.com/osamaafana/BookScaner/internal/vision"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scan API server",
		Long: `Starts the BookScanner HTTP API.

The API accepts bookshelf photos on /v1/scan, resolves detected spines
against the book catalogs, and exposes Prometheus metrics on /metrics.`,
		Example: `  # Start server on the configured port
  bookscanner serve

  # Start server on a custom port
  bookscanner serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.Port = port
			}

			store := newStore(cfg.RedisURL)
			handler := newHandler(cfg, store)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("POST /v1/scan", handler.Scan)
			mux.HandleFunc("POST /v1/books/enrich", handler.EnrichBooks)
			mux.HandleFunc("GET /health", handler.Health)
			mux.Handle("GET /metrics", promhttp.Handler())

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("BookScanner API listening", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")

	return cmd
}

// newStore connects to Redis, falling back to the in-process store so a
// dev instance runs without infrastructure. Counters and caches are
// per-process in that mode.
func newStore(redisURL string) cache.Store {
	store, err := cache.NewRedisStore(redisURL)
	if err != nil {
		slog.Warn("Redis unavailable, using in-memory store", "err", err)
		return cache.NewMemoryStore()
	}
	return store
}

// newHandler wires the full pipeline: providers are only registered
// when their API keys are configured, and the orchestrator falls back
// across whatever is present.
func newHandler(cfg config.Config, store cache.Store) *handlers.Handler {
	gateway := cache.NewGateway(store)
	guard := spend.NewGuard(store)

	opts := vision.Options{
		Costs:       cfg.ScanCosts,
		MaxBase64MB: cfg.MaxImageBase64MB,
	}
	if cfg.GroqAPIKey != "" {
		opts.Primary = groq.New(cfg.GroqAPIKey, cfg.GroqModel)
	}
	if cfg.GeminiAPIKey != "" {
		opts.Alternate = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if cfg.GoogleVisionAPIKey != "" {
		opts.Detector = gcv.New(cfg.GoogleVisionAPIKey)
		opts.Aggregator = nim.New(cfg.NvidiaAPIKey, cfg.NvidiaBaseURL, cfg.NvidiaModel)
	}

	var primary metadata.Catalog
	if cfg.OpenLibraryEnabled {
		primary = metadata.NewOpenLibrary()
	}
	resolver := metadata.NewResolver(gateway, primary, metadata.NewGoogleBooks(cfg.GoogleBooksAPIKey), cfg.MetadataTTL)

	return handlers.New(handlers.Options{
		Vision:      vision.NewService(gateway, guard, opts),
		Resolver:    resolver,
		Limiter:     ratelimit.New(store, cfg.RateLimits),
		Store:       store,
		MaxUploadMB: cfg.MaxUploadMB,
		GroqEnabled: cfg.GroqEnabled,
	})
}
