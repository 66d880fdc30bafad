package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if cfg.EndpointAddrHTTP != ":8080" {
		t.Errorf("EndpointAddrHTTP = %q, want :8080", cfg.EndpointAddrHTTP)
	}
	if cfg.AccessTokenValidityDuration != 15*time.Minute {
		t.Errorf("AccessTokenValidityDuration = %v, want 15m", cfg.AccessTokenValidityDuration)
	}
	if cfg.RefreshTokenValidityDuration != 720*time.Hour {
		t.Errorf("RefreshTokenValidityDuration = %v, want 720h", cfg.RefreshTokenValidityDuration)
	}
	if cfg.VerificationTokenValidity != 24*time.Hour {
		t.Errorf("VerificationTokenValidity = %v, want 24h", cfg.VerificationTokenValidity)
	}
	if cfg.ResetTokenValidity != 30*time.Minute {
		t.Errorf("ResetTokenValidity = %v, want 30m", cfg.ResetTokenValidity)
	}
	if !cfg.RateLimitEnabled || cfg.RateLimitRequests != 10 || cfg.RateLimitWindow != time.Minute {
		t.Errorf("unexpected rate limit defaults: %+v", cfg)
	}
	if cfg.AMQPURL != "" {
		t.Errorf("AMQPURL default should be empty, got %q", cfg.AMQPURL)
	}
}

func TestParseJson_OverridesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{
		"endpoint_addr_http": ":9090",
		"secret_key": "file-secret",
		"access_token_validity_duration": "5m",
		"cleanup_interval": 60000000000,
		"rate_limit_enabled": false
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"server", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	if cfg.EndpointAddrHTTP != ":9090" {
		t.Errorf("EndpointAddrHTTP = %q, want :9090", cfg.EndpointAddrHTTP)
	}
	if cfg.SecretKey != "file-secret" {
		t.Errorf("SecretKey = %q, want file-secret", cfg.SecretKey)
	}
	if cfg.AccessTokenValidityDuration != 5*time.Minute {
		t.Errorf("AccessTokenValidityDuration = %v, want 5m", cfg.AccessTokenValidityDuration)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("CleanupInterval = %v, want 1m", cfg.CleanupInterval)
	}
	if cfg.RateLimitEnabled {
		t.Errorf("RateLimitEnabled should be overridden to false")
	}

	// untouched fields keep their defaults
	if cfg.RefreshTokenValidityDuration != 720*time.Hour {
		t.Errorf("RefreshTokenValidityDuration = %v, want default 720h", cfg.RefreshTokenValidityDuration)
	}
	if cfg.RateLimitRequests != 10 {
		t.Errorf("RateLimitRequests = %d, want default 10", cfg.RateLimitRequests)
	}
}

func TestParseFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"server", "-a", ":7070", "-d", "postgres://x", "-s", "flag-secret", "-t", "20", "-r", "120", "-q", "amqp://localhost"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	if cfg.EndpointAddrHTTP != ":7070" {
		t.Errorf("EndpointAddrHTTP = %q, want :7070", cfg.EndpointAddrHTTP)
	}
	if cfg.DatabaseDSN != "postgres://x" {
		t.Errorf("DatabaseDSN = %q", cfg.DatabaseDSN)
	}
	if cfg.SecretKey != "flag-secret" {
		t.Errorf("SecretKey = %q", cfg.SecretKey)
	}
	if cfg.AccessTokenValidityDuration != 20*time.Minute {
		t.Errorf("AccessTokenValidityDuration = %v, want 20m", cfg.AccessTokenValidityDuration)
	}
	if cfg.RefreshTokenValidityDuration != 120*time.Minute {
		t.Errorf("RefreshTokenValidityDuration = %v, want 2h", cfg.RefreshTokenValidityDuration)
	}
	if cfg.AMQPURL != "amqp://localhost" {
		t.Errorf("AMQPURL = %q", cfg.AMQPURL)
	}
}
