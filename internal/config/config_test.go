package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected http address: %q", cfg.HTTPAddress)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("unexpected database driver: %q", cfg.DatabaseDriver)
	}
	if !cfg.Rate.Enabled {
		t.Fatalf("expected rate limiting enabled by default")
	}
	if cfg.Rate.Global.Limit != 200 || cfg.Rate.Global.Window != 24*time.Hour {
		t.Fatalf("unexpected global policy: %+v", cfg.Rate.Global)
	}
	if cfg.Rate.SessionCreate.Limit != 5 || cfg.Rate.SessionCreate.Window != time.Minute {
		t.Fatalf("unexpected session-create policy: %+v", cfg.Rate.SessionCreate)
	}
	if cfg.Rate.Document.Limit != 60 || cfg.Rate.Document.Window != time.Minute {
		t.Fatalf("unexpected document policy: %+v", cfg.Rate.Document)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	configViper := NewViper()
	configViper.Set("database.driver", "oracle")

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected unknown driver to fail validation")
	}
}

func TestLoadRejectsNonPositivePolicies(t *testing.T) {
	configViper := NewViper()
	configViper.Set("rate.document.limit", 0)

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected zero limit to fail validation")
	}
}

func TestLoadAllowsDisabledRateLimiting(t *testing.T) {
	configViper := NewViper()
	configViper.Set("rate.enabled", false)
	configViper.Set("rate.document.limit", 0)

	if _, err := Load(configViper); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
