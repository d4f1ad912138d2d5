package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate_RequiresKeyPrefix(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.APIKey = "sk_wrong_prefix"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected prefix validation error, got nil")
	}
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
}

func TestValidate_RequiresKey(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing key error, got nil")
	}

	cfg.APIKey = "cm_test_123"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestFromSettings_Defaults(t *testing.T) {
	t.Parallel()
	cfg := FromSettings(map[string]any{"apiKey": "cm_abc"})
	if !cfg.AutoRecall || !cfg.AutoCapture {
		t.Fatal("expected auto_recall and auto_capture to default on")
	}
	if cfg.RecallLimit != 5 {
		t.Fatalf("RecallLimit = %d, want 5", cfg.RecallLimit)
	}
	if cfg.RecallThreshold != 0.3 {
		t.Fatalf("RecallThreshold = %v, want 0.3", cfg.RecallThreshold)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Fatalf("BaseURL = %q, want default", cfg.BaseURL)
	}
}

func TestFromSettings_Overrides(t *testing.T) {
	t.Parallel()
	cfg := FromSettings(map[string]any{
		"apiKey":          "cm_abc",
		"agentId":         "agent-7",
		"autoRecall":      false,
		"recallLimit":     3,
		"recallThreshold": 0.5,
		"baseUrl":         "https://clawmemory.local/v1/",
	})
	if cfg.AutoRecall {
		t.Fatal("expected autoRecall override to stick")
	}
	if cfg.AgentID != "agent-7" || cfg.RecallLimit != 3 || cfg.RecallThreshold != 0.5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if strings.HasSuffix(cfg.BaseURL, "/") {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BaseURL)
	}
}

func TestLoad_EnvOverridesKey(t *testing.T) {
	t.Setenv("CLAWMEMORY_API_KEY", "cm_from_env")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "cm_from_env" {
		t.Fatalf("APIKey = %q, want env value", cfg.APIKey)
	}
}

func TestExpandPath(t *testing.T) {
	t.Parallel()
	got := ExpandPath("~/clawmemory.yaml")
	if got == "~/clawmemory.yaml" {
		t.Fatalf("expected home-expanded path, got %q", got)
	}
	if !strings.Contains(got, "clawmemory.yaml") {
		t.Fatalf("expected expanded path to contain file name, got %q", got)
	}
}
