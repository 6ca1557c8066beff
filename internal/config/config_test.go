package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"clipturbo/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CLIPTURBO_LLM_API_KEY", "env-key")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "clipturbo", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Paths.TempDir != filepath.Join(tempHome, ".cache", "clipturbo", "render") {
		t.Fatalf("unexpected temp dir: %q", cfg.Paths.TempDir)
	}
	if cfg.Render.MaxConcurrent != 2 {
		t.Fatalf("expected default concurrency 2, got %d", cfg.Render.MaxConcurrent)
	}
	if cfg.RenderTick() != time.Second {
		t.Fatalf("expected 1s tick, got %s", cfg.RenderTick())
	}
	if cfg.WorkflowRetention() != 24*time.Hour {
		t.Fatalf("expected 24h retention, got %s", cfg.WorkflowRetention())
	}
	if cfg.Content.APIKey != "env-key" {
		t.Fatalf("expected api key from env, got %q", cfg.Content.APIKey)
	}
	if cfg.Intake.Enabled {
		t.Fatal("expected intake disabled by default")
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "clipturbo.toml")

	custom := config.Default()
	custom.Paths.OutputDir = filepath.Join(dir, "out")
	custom.Render.MaxConcurrent = 4
	custom.Render.DefaultQuality = "HIGH_quality"
	custom.Render.OutputFormat = ".MOV"
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Render.MaxConcurrent != 4 {
		t.Fatalf("expected concurrency override, got %d", cfg.Render.MaxConcurrent)
	}
	if cfg.Render.DefaultQuality != "high" {
		t.Fatalf("expected normalized quality, got %q", cfg.Render.DefaultQuality)
	}
	if cfg.Render.OutputFormat != "mov" {
		t.Fatalf("expected normalized format, got %q", cfg.Render.OutputFormat)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
	if cfg.Paths.OutputDir != filepath.Join(dir, "out") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"zero concurrency", func(c *config.Config) { c.Render.MaxConcurrent = 0 }, "render.max_concurrent"},
		{"bad quality", func(c *config.Config) { c.Render.DefaultQuality = "ultra" }, "render.default_quality"},
		{"zero retention", func(c *config.Config) { c.Workflow.RetentionHours = 0 }, "workflow.retention_hours"},
		{"intake without addr", func(c *config.Config) {
			c.Intake.Enabled = true
			c.Intake.RedisAddr = ""
		}, "intake.redis_addr"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Intake.List != "clipturbo:submissions" {
		t.Fatalf("unexpected intake list %q", cfg.Intake.List)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		StateDir:  filepath.Join(base, "state"),
		OutputDir: filepath.Join(base, "out"),
		TempDir:   filepath.Join(base, "tmp"),
		LogDir:    filepath.Join(base, "logs"),
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.OutputDir, cfg.Paths.TempDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
