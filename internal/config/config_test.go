package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.MaxUploadMB != 10 {
		t.Errorf("MaxUploadMB = %d", cfg.MaxUploadMB)
	}
	if !cfg.GroqEnabled || !cfg.OpenLibraryEnabled {
		t.Error("groq and openlibrary default to enabled")
	}
	if cfg.MetadataTTL != 180*24*time.Hour {
		t.Errorf("MetadataTTL = %v", cfg.MetadataTTL)
	}
	if cfg.RateLimits.IPPerMinute != 20 || cfg.RateLimits.DevicePerDay != 30 {
		t.Errorf("RateLimits = %+v", cfg.RateLimits)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GROQ_ENABLED", "false")
	t.Setenv("METADATA_TTL_SECS", "60")
	t.Setenv("RATE_LIMIT_PER_IP_PER_MIN", "5")
	t.Setenv("SCAN_COST_GROQ_USD", "0.002")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GroqEnabled {
		t.Error("GROQ_ENABLED=false must disable groq")
	}
	if cfg.MetadataTTL != time.Minute {
		t.Errorf("MetadataTTL = %v", cfg.MetadataTTL)
	}
	if cfg.RateLimits.IPPerMinute != 5 {
		t.Errorf("IPPerMinute = %d", cfg.RateLimits.IPPerMinute)
	}
	if cfg.ScanCosts["groq"] != 0.002 {
		t.Errorf("ScanCosts = %+v", cfg.ScanCosts)
	}
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	t.Setenv("GROQ_ENABLED", "maybe")

	cfg := Load()
	if cfg.MaxUploadMB != 10 || !cfg.GroqEnabled {
		t.Errorf("garbage values must fall back to defaults, got %+v", cfg)
	}
}
