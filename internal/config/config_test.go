package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.MaxSteps != 12 {
		t.Errorf("expected default max_steps 12, got %d", cfg.Engine.MaxSteps)
	}
	if cfg.Remote.Enabled {
		t.Error("remote catalog should be disabled by default")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Engine.MaxSteps = 4
	cfg.Engine.MaxCalls = 2
	cfg.Remote.Enabled = true
	cfg.Remote.BaseURL = "http://localhost:9300"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Engine.MaxSteps != 4 || got.Engine.MaxCalls != 2 {
		t.Errorf("budgets not round-tripped: %+v", got.Engine)
	}
	if !got.Remote.Enabled || got.Remote.BaseURL != "http://localhost:9300" {
		t.Errorf("remote config not round-tripped: %+v", got.Remote)
	}
}

func TestValidateRejectsBadBudgets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.MaxSteps = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max_steps=0")
	}

	cfg = DefaultConfig()
	cfg.Engine.MaxCalls = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative max_calls")
	}
}

func TestDurationParsing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.CacheTTL = "45s"

	ttl, err := cfg.RemoteCacheTTL()
	if err != nil {
		t.Fatalf("RemoteCacheTTL failed: %v", err)
	}
	if ttl != 45*time.Second {
		t.Errorf("got %v, want 45s", ttl)
	}

	cfg.Remote.CacheTTL = "not-a-duration"
	if _, err := cfg.RemoteCacheTTL(); err == nil {
		t.Error("expected error for malformed duration")
	}

	cfg.Remote.CacheTTL = ""
	ttl, err = cfg.RemoteCacheTTL()
	if err != nil || ttl != 30*time.Second {
		t.Errorf("empty TTL should default to 30s, got %v err=%v", ttl, err)
	}
}

func TestEnvOverride(t *testing.T) {
	os.Setenv("CONCIERGE_API_KEY", "sk-test-123")
	defer os.Unsetenv("CONCIERGE_API_KEY")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test-123" {
		t.Errorf("env override not applied, got %q", cfg.LLM.APIKey)
	}
}
