package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/medibook_test")
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("expected default env to be development")
	}
	if cfg.ReminderInterval != 60 {
		t.Errorf("expected default reminder interval 60, got %d", cfg.ReminderInterval)
	}
	if cfg.ReminderLookahead != 24 {
		t.Errorf("expected default reminder lookahead 24, got %d", cfg.ReminderLookahead)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_DevFallbackJWTSecret(t *testing.T) {
	setRequiredEnv(t)
	os.Unsetenv("JWT_SECRET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JWTSecret == "" {
		t.Error("expected development fallback JWT secret")
	}
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := &Config{
		Env:               "production",
		JWTExpiryHours:    24,
		ReminderInterval:  60,
		ReminderLookahead: 24,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT_SECRET in production")
	}

	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsBadTimezone(t *testing.T) {
	cfg := &Config{
		Env:               "development",
		JWTSecret:         "secret",
		JWTExpiryHours:    24,
		ReminderInterval:  60,
		ReminderLookahead: 24,
		ClinicTimezone:    "Not/AZone",
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid timezone")
	}
}

func TestClinicLocation(t *testing.T) {
	cfg := &Config{ClinicTimezone: ""}
	loc, err := cfg.ClinicLocation()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != time.UTC {
		t.Errorf("expected UTC for empty timezone, got %v", loc)
	}

	cfg.ClinicTimezone = "America/New_York"
	loc, err = cfg.ClinicLocation()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "America/New_York" {
		t.Errorf("unexpected location %v", loc)
	}
}
