package config

import (
	"encoding/base64"
	"strings"
	"testing"
)

func setRequiredCrypto(t *testing.T) {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
	t.Setenv("HMAC_SECRET", "test-hmac-secret")
	t.Setenv("JWT_SECRET", "test-jwt-secret")
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	setRequiredCrypto(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if len(cfg.EncryptionKey) != 32 {
		t.Fatalf("expected 32-byte encryption key, got %d", len(cfg.EncryptionKey))
	}
}

func TestLoadFailsWithoutEncryptionKey(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")
	t.Setenv("HMAC_SECRET", "test-hmac-secret")
	t.Setenv("JWT_SECRET", "test-jwt-secret")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail without ENCRYPTION_KEY")
	}
	if !strings.Contains(err.Error(), "ENCRYPTION_KEY") {
		t.Fatalf("error should mention ENCRYPTION_KEY, got: %s", err)
	}
}

func TestLoadRejectsShortEncryptionKey(t *testing.T) {
	setRequiredCrypto(t)
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 16)))
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with a 16-byte key")
	}
	if !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("error should mention required key length, got: %s", err)
	}
}

func TestLoadRejectsNonBase64Key(t *testing.T) {
	setRequiredCrypto(t)
	t.Setenv("ENCRYPTION_KEY", "not-base64!!!")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with non-base64 key")
	}
}

func TestLoadFailsWithoutHMACSecret(t *testing.T) {
	setRequiredCrypto(t)
	t.Setenv("HMAC_SECRET", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail without HMAC_SECRET")
	}
	if !strings.Contains(err.Error(), "HMAC_SECRET") {
		t.Fatalf("error should mention HMAC_SECRET, got: %s", err)
	}
}

func TestLoadFailsWithoutJWTSecret(t *testing.T) {
	setRequiredCrypto(t)
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail without JWT_SECRET")
	}
}

func TestEnvIntFallback(t *testing.T) {
	if v := envInt("TEST_INT_MISSING", 99); v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvDurationValid(t *testing.T) {
	t.Setenv("TEST_DUR", "5s")
	if v := envDuration("TEST_DUR", 0); v.Seconds() != 5 {
		t.Fatalf("expected 5s, got %s", v)
	}
}
