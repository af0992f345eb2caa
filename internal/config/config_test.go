package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ope.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/eval.db
gamma: 0.9
reward_shift: -1.5
split_by_episode: true
policy:
  type: tabular
  table_path: table.json
  timeout: 2s
acceptance:
  min_gain: 1.05
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/eval.db" || cfg.Gamma != 0.9 || cfg.RewardShift != -1.5 {
		t.Errorf("unexpected core fields: %+v", cfg)
	}
	if !cfg.SplitByEpisode {
		t.Error("expected split_by_episode=true")
	}
	if cfg.Policy.Type != "tabular" || cfg.Policy.TablePath != "table.json" {
		t.Errorf("unexpected policy: %+v", cfg.Policy)
	}
	if cfg.Policy.Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", cfg.Policy.Timeout)
	}
	// untouched fields keep their defaults
	if cfg.Concurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.Concurrency)
	}
	if cfg.Acceptance.MinBatches != 1 || cfg.Acceptance.MinGain != 1.05 {
		t.Errorf("unexpected acceptance: %+v", cfg.Acceptance)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Error("expected defaults for empty path")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "gamma: [not, a, number]\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OPE_DB", "env.db")
	t.Setenv("OPE_POLICY_ADDR", "policy:9000")
	t.Setenv("OPE_GAMMA", "0.5")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.DBPath != "env.db" || cfg.Policy.Addr != "policy:9000" || cfg.Gamma != 0.5 {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestApplyEnv_BadGamma(t *testing.T) {
	t.Setenv("OPE_GAMMA", "high")
	cfg := Default()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("expected error for non-numeric OPE_GAMMA")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"gamma above one", func(c *Config) { c.Gamma = 1.01 }},
		{"negative gamma", func(c *Config) { c.Gamma = -0.1 }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"no db", func(c *Config) { c.DBPath = "" }},
		{"unknown policy", func(c *Config) { c.Policy.Type = "oracle" }},
		{"grpc without addr", func(c *Config) { c.Policy.Addr = "" }},
		{"tabular without table", func(c *Config) { c.Policy.Type = "tabular" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
