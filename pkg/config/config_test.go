package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"MONZO_API_URL", "BUDGET_DATA_DIR", "SYNC_INTERVAL", "SYNC_RUN_TIMEOUT", "DIGEST_HOUR",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Monzo.APIURL != "https://api.monzo.com" {
		t.Errorf("APIURL = %q", cfg.Monzo.APIURL)
	}
	if cfg.Data.Dir != "./data" {
		t.Errorf("Data.Dir = %q", cfg.Data.Dir)
	}
	if cfg.Sync.Interval != 30*time.Minute {
		t.Errorf("Interval = %v", cfg.Sync.Interval)
	}
	if cfg.Sync.RunTimeout != 10*time.Minute {
		t.Errorf("RunTimeout = %v", cfg.Sync.RunTimeout)
	}
	if cfg.Sync.DigestHour != 8 {
		t.Errorf("DigestHour = %d", cfg.Sync.DigestHour)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MONZO_CLIENT_ID", "client-id")
	t.Setenv("SYNC_INTERVAL", "15m")
	t.Setenv("DIGEST_HOUR", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Monzo.ClientID != "client-id" {
		t.Errorf("ClientID = %q", cfg.Monzo.ClientID)
	}
	if cfg.Sync.Interval != 15*time.Minute {
		t.Errorf("Interval = %v", cfg.Sync.Interval)
	}
	if cfg.Sync.DigestHour != 20 {
		t.Errorf("DigestHour = %d", cfg.Sync.DigestHour)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("SYNC_INTERVAL", "soon")
		if _, err := Load(); err == nil {
			t.Error("Load() accepted an invalid duration")
		}
	})

	t.Run("digest hour out of range", func(t *testing.T) {
		t.Setenv("DIGEST_HOUR", "24")
		if _, err := Load(); err == nil {
			t.Error("Load() accepted an out-of-range digest hour")
		}
	})
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Monzo.ClientID = "set"

	if err := cfg.Validate("monzo.clientId"); err != nil {
		t.Errorf("Validate() = %v for a set key", err)
	}
	if err := cfg.Validate("monzo.clientSecret"); err == nil {
		t.Error("Validate() passed with a missing key")
	}
	if err := cfg.Validate("monzo.apiKey"); err == nil {
		t.Error("Validate() accepted an unknown key")
	}
}
