package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"curator/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnvKey(t *testing.T) {
	t.Setenv("CURATOR_LLM_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "curator", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "curator"); cfg.Paths.DataDir != want {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, want)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "http://localhost:1234/v1/chat/completions" {
		t.Fatalf("unexpected base url: %q", cfg.LLM.BaseURL)
	}
	if cfg.Analysis.DefaultStyle != "classic" {
		t.Fatalf("unexpected default style: %q", cfg.Analysis.DefaultStyle)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if got := cfg.DatabasePath(); got != filepath.Join(cfg.Paths.DataDir, "curator.db") {
		t.Fatalf("unexpected database path: %q", got)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CURATOR_LLM_API_KEY", "")

	configPath := filepath.Join(t.TempDir(), "curator.toml")
	content := `
[paths]
data_dir = "~/curator-data"

[llm]
base_url = "https://openrouter.ai/api/v1/chat/completions"
model = "text-model"
vision_model = "vision-model"
api_key = "file-key"

[analysis]
default_style = "Artistic"
auto_rename = true
batch_limit = 25

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q (%v)", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "curator-data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Analysis.DefaultStyle != "artistic" || !cfg.Analysis.AutoRename || cfg.Analysis.BatchLimit != 25 {
		t.Fatalf("unexpected analysis section: %+v", cfg.Analysis)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging section: %+v", cfg.Logging)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("file api key should win over env, got %q", cfg.LLM.APIKey)
	}
	if got := cfg.TextLLM().Model; got != "text-model" {
		t.Fatalf("unexpected text model: %q", got)
	}
	if got := cfg.VisionLLM().Model; got != "vision-model" {
		t.Fatalf("unexpected vision model: %q", got)
	}
}

func TestVisionLLMFallsBackToTextModel(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Model = "shared"
	if got := cfg.VisionLLM().Model; got != "shared" {
		t.Fatalf("expected fallback to text model, got %q", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(configPath, []byte("[llm]\nmodle = \"typo\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown style", func(c *config.Config) { c.Analysis.DefaultStyle = "baroque" }, "analysis.default_style"},
		{"custom without prompt", func(c *config.Config) { c.Analysis.DefaultStyle = "custom" }, "analysis.custom_prompt"},
		{"zero batch limit", func(c *config.Config) { c.Analysis.BatchLimit = 0 }, "analysis.batch_limit"},
		{"relative base url", func(c *config.Config) { c.LLM.BaseURL = "localhost/v1" }, "llm.base_url"},
		{"negative retries", func(c *config.Config) { c.LLM.MaxRetries = -1 }, "llm.max_retries"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "chatty" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid toml: %v", err)
	}
	if decoded.LLM.BaseURL == "" {
		t.Fatal("expected sample to set llm.base_url")
	}

	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load cleanly, exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LibraryDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}
