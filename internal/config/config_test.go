package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if !cfg.Agent.DryRun {
		t.Fatal("default must be dry run")
	}
	if cfg.Agent.MinRelevanceScore != 6 {
		t.Fatalf("min relevance %v", cfg.Agent.MinRelevanceScore)
	}
	if cfg.Agent.MaxRepliesPerDay != 30 {
		t.Fatalf("daily cap %d", cfg.Agent.MaxRepliesPerDay)
	}
	if cfg.Account.Platform != "twitter" {
		t.Fatalf("platform %q", cfg.Account.Platform)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model == "" {
		t.Fatalf("llm defaults %+v", cfg.LLM)
	}
	if len(cfg.Schedule.QuietHours) == 0 {
		t.Fatal("no default quiet hours")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Account.ID = "acct-1"
	cfg.Account.Username = "forgers"
	cfg.Agent.DryRun = false
	cfg.Agent.TestQueryOverride = "hiring is broken"
	cfg.Agent.PostDelay = 45 * time.Second

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Account.ID != "acct-1" || got.Account.Username != "forgers" {
		t.Fatalf("account %+v", got.Account)
	}
	if got.Agent.DryRun {
		t.Fatal("dry run flipped back on")
	}
	if got.Agent.TestQueryOverride != "hiring is broken" {
		t.Fatalf("override %q", got.Agent.TestQueryOverride)
	}
	if got.Agent.PostDelay != 45*time.Second {
		t.Fatalf("post delay %v", got.Agent.PostDelay)
	}
}

func TestSaveEmptyPath(t *testing.T) {
	if err := Save("", Default()); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("X_BEARER_TOKEN", "bearer-from-env")
	t.Setenv("OPENAI_API_KEY", "key-from-env")
	cfg := Default()
	cfg.ResolveEnv()
	if cfg.Credentials.BearerToken != "bearer-from-env" {
		t.Fatalf("bearer %q", cfg.Credentials.BearerToken)
	}
	if cfg.LLM.APIKey != "key-from-env" {
		t.Fatalf("api key %q", cfg.LLM.APIKey)
	}

	cfg2 := Default()
	cfg2.Credentials.BearerToken = "explicit"
	cfg2.ResolveEnv()
	if cfg2.Credentials.BearerToken != "explicit" {
		t.Fatalf("env overrode explicit value: %q", cfg2.Credentials.BearerToken)
	}
}

func TestCooldownWindow(t *testing.T) {
	a := AgentConfig{CooldownMinutes: 90}
	if a.CooldownWindow() != 90*time.Minute {
		t.Fatalf("window %v", a.CooldownWindow())
	}
	if (AgentConfig{}).CooldownWindow() != 0 {
		t.Fatal("zero minutes should mean zero window")
	}
}
