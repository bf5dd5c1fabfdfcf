// Package config collects the environment-driven settings for the scan
// service. Every value has a workable default so a dev instance starts
// with nothing but provider keys set.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/osamaafana/BookScaner/internal/cache"
	"github.com/osamaafana/BookScaner/internal/images"
	"github.com/osamaafana/BookScaner/internal/ratelimit"
)

type Config struct {
	Port        string
	RedisURL    string
	MaxUploadMB int

	GroqAPIKey  string
	GroqModel   string
	GroqEnabled bool

	GeminiAPIKey string
	GeminiModel  string

	GoogleVisionAPIKey string

	NvidiaAPIKey  string
	NvidiaBaseURL string
	NvidiaModel   string

	GoogleBooksAPIKey  string
	OpenLibraryEnabled bool

	MetadataTTL      time.Duration
	MaxImageBase64MB float64

	RateLimits ratelimit.Config

	// Estimated per-scan USD cost by provider name. Defaults to 0 and
	// relies on provider console limits until real unit prices are set.
	ScanCosts map[string]float64
}

func Load() Config {
	limits := ratelimit.DefaultConfig()
	limits.IPPerMinute = envInt("RATE_LIMIT_PER_IP_PER_MIN", limits.IPPerMinute)
	limits.IPPerDay = envInt("RATE_LIMIT_PER_IP_DAILY", limits.IPPerDay)
	limits.DevicePerHour = envInt("RATE_LIMIT_PER_DEVICE_HOURLY", limits.DevicePerHour)
	limits.DevicePerDay = envInt("RATE_LIMIT_PER_DEVICE_DAILY", limits.DevicePerDay)

	return Config{
		Port:        env("PORT", "8000"),
		RedisURL:    env("REDIS_URL", "redis://localhost:6379/0"),
		MaxUploadMB: envInt("MAX_UPLOAD_MB", 10),

		GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
		GroqModel:   os.Getenv("GROQ_VISION_MODEL"),
		GroqEnabled: envBool("GROQ_ENABLED", true),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GEMINI_MODEL"),

		GoogleVisionAPIKey: os.Getenv("GOOGLE_VISION_API_KEY"),

		NvidiaAPIKey:  os.Getenv("NVIDIA_API_KEY"),
		NvidiaBaseURL: os.Getenv("NVIDIA_BASE_URL"),
		NvidiaModel:   os.Getenv("NVIDIA_MODEL_NAME"),

		GoogleBooksAPIKey:  os.Getenv("GOOGLEBOOKS_API_KEY"),
		OpenLibraryEnabled: envBool("OPENLIBRARY_ENABLED", true),

		MetadataTTL:      time.Duration(envInt("METADATA_TTL_SECS", int(cache.DefaultMetaTTL/time.Second))) * time.Second,
		MaxImageBase64MB: envFloat("MAX_IMAGE_BASE64_MB", images.DefaultMaxBase64MB),

		RateLimits: limits,

		ScanCosts: map[string]float64{
			"groq":   envFloat("SCAN_COST_GROQ_USD", 0),
			"gemini": envFloat("SCAN_COST_GEMINI_USD", 0),
			"gcv":    envFloat("SCAN_COST_GCV_USD", 0),
			"nim":    envFloat("SCAN_COST_NIM_USD", 0),
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
