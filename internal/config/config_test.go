package config

import (
	"testing"
	"time"
)

func devConfig() *Config {
	return &Config{
		Port:            "8000",
		Env:             "development",
		DatabaseURL:     "postgres://localhost/medrec",
		DBMaxConns:      20,
		DBMinConns:      5,
		JWTIssuer:       "medrec",
		JWTAudience:     "medrec-api",
		AccessTokenTTL:  15,
		RefreshTokenTTL: 168,
	}
}

func TestValidate_DevAllowsEmptySecret(t *testing.T) {
	cfg := devConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "production"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT_SECRET in production")
	}

	cfg.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short JWT_SECRET")
	}

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with valid secret: %v", err)
	}
}

func TestValidate_TokenTTLs(t *testing.T) {
	cfg := devConfig()
	cfg.AccessTokenTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero access TTL")
	}

	cfg = devConfig()
	cfg.RefreshTokenTTL = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative refresh TTL")
	}
}

func TestTokenDurations(t *testing.T) {
	cfg := devConfig()
	if cfg.AccessTokenDuration() != 15*time.Minute {
		t.Errorf("unexpected access duration: %v", cfg.AccessTokenDuration())
	}
	if cfg.RefreshTokenDuration() != 168*time.Hour {
		t.Errorf("unexpected refresh duration: %v", cfg.RefreshTokenDuration())
	}
}

func TestEnvPredicates(t *testing.T) {
	cfg := devConfig()
	if !cfg.IsDev() || cfg.IsProduction() {
		t.Error("expected development mode")
	}
	cfg.Env = "production"
	if cfg.IsDev() || !cfg.IsProduction() {
		t.Error("expected production mode")
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/medrec")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.AccessTokenTTL != 15 {
		t.Errorf("expected default access TTL 15, got %d", cfg.AccessTokenTTL)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
}
