package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.QRTokenTTL != 2*time.Hour {
		t.Errorf("expected default QR token TTL of 2h, got %s", cfg.QRTokenTTL)
	}
	if cfg.PatientSearchCacheTTL != 30*time.Second {
		t.Errorf("expected default patient search cache TTL of 30s, got %s", cfg.PatientSearchCacheTTL)
	}
	if cfg.MaxUploadSizeMB != 10 {
		t.Errorf("expected default upload limit of 10MB, got %d", cfg.MaxUploadSizeMB)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("QR_TOKEN_TTL", "45m")
	t.Setenv("ALLOWED_MIME_TYPES", "image/png, application/pdf")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port override 9999, got %s", cfg.Port)
	}
	if cfg.QRTokenTTL != 45*time.Minute {
		t.Errorf("expected QR token TTL 45m, got %s", cfg.QRTokenTTL)
	}
	if len(cfg.AllowedMIMETypes) != 2 || cfg.AllowedMIMETypes[0] != "image/png" {
		t.Errorf("unexpected MIME allowlist: %v", cfg.AllowedMIMETypes)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("expected rate limit 2.5 rps, got %f", cfg.RateLimitRPS)
	}
}

func TestMaxUploadSizeBytes(t *testing.T) {
	cfg := &Config{MaxUploadSizeMB: 5}
	if got := cfg.MaxUploadSizeBytes(); got != 5*1024*1024 {
		t.Errorf("expected 5MiB in bytes, got %d", got)
	}
}
