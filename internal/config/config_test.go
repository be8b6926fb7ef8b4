package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("TRIAL_DAYS", "")
	t.Setenv("MIRROR_WRITE_TIMEOUT", "")
	t.Setenv("ROLLOVER_ENABLED", "")
	t.Setenv("BUSINESS_TIMEZONE", "")

	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Fatalf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
	if cfg.TrialDays != 14 {
		t.Fatalf("TrialDays = %d, want 14", cfg.TrialDays)
	}
	if cfg.MirrorWriteTimeout != 5*time.Second {
		t.Fatalf("MirrorWriteTimeout = %s, want 5s", cfg.MirrorWriteTimeout)
	}
	if !cfg.RolloverEnabled {
		t.Fatal("RolloverEnabled should default to true")
	}
	if cfg.BusinessTimezone != "Asia/Kolkata" {
		t.Fatalf("BusinessTimezone = %q", cfg.BusinessTimezone)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("TRIAL_DAYS", "30")
	t.Setenv("MIRROR_WRITE_TIMEOUT", "750ms")
	t.Setenv("ROLLOVER_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()
	if cfg.TrialDays != 30 {
		t.Fatalf("TrialDays = %d, want 30", cfg.TrialDays)
	}
	if cfg.MirrorWriteTimeout != 750*time.Millisecond {
		t.Fatalf("MirrorWriteTimeout = %s", cfg.MirrorWriteTimeout)
	}
	if cfg.RolloverEnabled {
		t.Fatal("RolloverEnabled should be false")
	}
	origins := cfg.CORSOriginList()
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Fatalf("CORSOriginList = %v", origins)
	}
}

func TestLocation_FallsBackToIST(t *testing.T) {
	cfg := &Config{BusinessTimezone: "Not/AZone"}
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, cfg.Location()).Zone()
	if offset != 19800 {
		t.Fatalf("offset = %d, want 19800", offset)
	}
}
