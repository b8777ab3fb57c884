package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "titlecards.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("exists = true for absent file")
	}
	if resolved == "" {
		t.Error("resolved path should be reported")
	}
	if cfg.Renderer.Binary != "cardcompositor" {
		t.Errorf("Renderer.Binary = %q", cfg.Renderer.Binary)
	}
	if cfg.Workflow.Concurrency != 4 {
		t.Errorf("Workflow.Concurrency = %d", cfg.Workflow.Concurrency)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Errorf("logging defaults = %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	base := t.TempDir()
	path := writeConfig(t, `
[paths]
source_dir = "`+filepath.Join(base, "src")+`"
card_dir = "`+filepath.Join(base, "cards")+`"
data_dir = "`+filepath.Join(base, "data")+`"

[renderer]
binary = "compositor-next"
extension = "png"

[defaults]
card_type = "anime"
template_ids = [" main ", ""]

[workflow]
concurrency = 8
`)

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("exists = false for present file")
	}
	if cfg.Renderer.Binary != "compositor-next" {
		t.Errorf("Renderer.Binary = %q", cfg.Renderer.Binary)
	}
	if cfg.Renderer.Extension != ".png" {
		t.Errorf("Extension = %q, want dot prefix added", cfg.Renderer.Extension)
	}
	if cfg.Workflow.Concurrency != 8 {
		t.Errorf("Concurrency = %d", cfg.Workflow.Concurrency)
	}
	if cfg.Defaults.CardType == nil || *cfg.Defaults.CardType != "anime" {
		t.Errorf("Defaults.CardType = %v", cfg.Defaults.CardType)
	}
	if len(cfg.Defaults.TemplateIDs) != 1 || cfg.Defaults.TemplateIDs[0] != "main" {
		t.Errorf("TemplateIDs = %v, want trimmed [main]", cfg.Defaults.TemplateIDs)
	}
}

func TestLoadKeepsDefaultsUnset(t *testing.T) {
	base := t.TempDir()
	path := writeConfig(t, `
[paths]
source_dir = "`+filepath.Join(base, "src")+`"
card_dir = "`+filepath.Join(base, "cards")+`"
data_dir = "`+filepath.Join(base, "data")+`"

[defaults]
season_text = ""
`)

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Explicit blank decodes as a set pointer; untouched fields stay nil.
	if cfg.Defaults.SeasonText == nil || *cfg.Defaults.SeasonText != "" {
		t.Errorf("SeasonText = %v, want set blank", cfg.Defaults.SeasonText)
	}
	if cfg.Defaults.EpisodeTextFormat != nil {
		t.Errorf("EpisodeTextFormat = %v, want nil", cfg.Defaults.EpisodeTextFormat)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing source dir", func(c *Config) { c.Paths.SourceDir = "" }, "paths.source_dir"},
		{"missing data dir", func(c *Config) { c.Paths.DataDir = "" }, "paths.data_dir"},
		{"zero timeout", func(c *Config) { c.Renderer.TimeoutSeconds = -1 }, "timeout_seconds"},
		{"negative retries", func(c *Config) { c.Renderer.MaxRetries = -1 }, "max_retries"},
		{"zero concurrency", func(c *Config) { c.Workflow.Concurrency = -2 }, "concurrency"},
		{"bad log format", func(c *Config) { c.Logging.Format = "yaml" }, "logging.format"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestLoadRejectsExplicitZeroes(t *testing.T) {
	// A written zero is not the same as an absent key: it must reach
	// Validate instead of being rewritten to the default.
	cases := []struct {
		name string
		body string
		want string
	}{
		{"zero timeout", "[renderer]\ntimeout_seconds = 0\n", "timeout_seconds"},
		{"zero backoff", "[renderer]\nretry_backoff_ms = 0\n", "retry_backoff_ms"},
		{"zero concurrency", "[workflow]\nconcurrency = 0\n", "concurrency"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.body)
			_, _, _, err := Load(path)
			if err == nil {
				t.Fatal("Load should reject an explicit zero")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config failed to load: exists=%t err=%v", exists, err)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = "/tmp/titlecards-data"
	if got := cfg.LedgerPath(); got != "/tmp/titlecards-data/cards.db" {
		t.Errorf("LedgerPath = %q", got)
	}
	if got := cfg.LockPath(); got != "/tmp/titlecards-data/run.lock" {
		t.Errorf("LockPath = %q", got)
	}
}
