package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.Path != "./storage/bucketd.db" {
		t.Errorf("unexpected default database path: %s", cfg.Database.Path)
	}
	if cfg.Storage.MaxUploadSize != 100*1024*1024 {
		t.Errorf("unexpected default max upload size: %d", cfg.Storage.MaxUploadSize)
	}
	if cfg.IsProduction {
		t.Error("expected development mode by default")
	}
}

func TestValidateDevelopment(t *testing.T) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Errorf("development defaults should validate, got: %v", err)
	}
}

func TestValidateProductionRequiresSecret(t *testing.T) {
	cfg := Load()
	cfg.IsProduction = true
	cfg.Auth.JWTSecret = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing JWT_SECRET in production")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateProductionShortSecret(t *testing.T) {
	cfg := Load()
	cfg.IsProduction = true
	cfg.Auth.JWTSecret = "too-short"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short JWT_SECRET in production")
	}
}

func TestValidateProductionWildcardOrigins(t *testing.T) {
	cfg := Load()
	cfg.IsProduction = true
	cfg.Auth.JWTSecret = strings.Repeat("s", 32)
	cfg.Server.AllowOrigins = "*"
	cfg.Observability.MetricsEnabled = false

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for wildcard origins in production")
	}
}

func TestValidateBadPort(t *testing.T) {
	cfg := Load()
	cfg.Server.Port = "not-a-port"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidateProductionMetricsToken(t *testing.T) {
	cfg := Load()
	cfg.IsProduction = true
	cfg.Auth.JWTSecret = strings.Repeat("s", 32)
	cfg.Server.AllowOrigins = "https://app.example.com"
	cfg.Observability.MetricsEnabled = true
	cfg.Observability.MetricsToken = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for metrics enabled without token in production")
	}
}
