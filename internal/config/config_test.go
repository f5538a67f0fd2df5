package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate runs the test from an empty directory with HOME pointing at it so
// no real provokers.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OLLAMA_HOST"} {
		t.Setenv(key, "")
	}
	return dir
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DB.Path != filepath.Join("data", "provokers.db") {
		t.Errorf("DB.Path = %q", cfg.DB.Path)
	}
	if cfg.DB.Driver != "ncruces" {
		t.Errorf("DB.Driver = %q, want ncruces", cfg.DB.Driver)
	}
	if cfg.Model.Provider != "openai" {
		t.Errorf("Model.Provider = %q, want openai", cfg.Model.Provider)
	}
	if cfg.Model.Timeout != 2*time.Minute {
		t.Errorf("Model.Timeout = %s, want 2m", cfg.Model.Timeout)
	}
	if cfg.Model.MaxRetries != 0 {
		t.Errorf("Model.MaxRetries = %d, want 0", cfg.Model.MaxRetries)
	}
	if cfg.Providers.Ollama.Host != "http://localhost:11434" {
		t.Errorf("Ollama.Host = %q", cfg.Providers.Ollama.Host)
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("Server.Transport = %q, want stdio", cfg.Server.Transport)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want none", cfg.File)
	}
}

func TestEnvironmentBinding(t *testing.T) {
	isolate(t)
	t.Setenv("PROVOKERS_DB_DRIVER", "modernc")
	t.Setenv("PROVOKERS_MODEL_PROVIDER", "Ollama")
	t.Setenv("PROVOKERS_MODEL_TIMEOUT", "45s")
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DB.Driver != "modernc" {
		t.Errorf("DB.Driver = %q, want modernc", cfg.DB.Driver)
	}
	if cfg.Model.Provider != "ollama" {
		t.Errorf("Model.Provider = %q, want ollama", cfg.Model.Provider)
	}
	if cfg.Model.Timeout != 45*time.Second {
		t.Errorf("Model.Timeout = %s, want 45s", cfg.Model.Timeout)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-plain" {
		t.Errorf("OpenAI.APIKey = %q", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-ant" {
		t.Errorf("Anthropic.APIKey = %q", cfg.Providers.Anthropic.APIKey)
	}
	if cfg.Providers.Ollama.Host != "http://gpu-box:11434" {
		t.Errorf("Ollama.Host = %q", cfg.Providers.Ollama.Host)
	}
}

func TestPrefixedKeyWins(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("PROVOKERS_PROVIDERS_OPENAI_API_KEY", "sk-prefixed")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-prefixed" {
		t.Errorf("OpenAI.APIKey = %q, want sk-prefixed", cfg.Providers.OpenAI.APIKey)
	}
}

func TestConfigFile(t *testing.T) {
	dir := isolate(t)
	yaml := `
db:
  path: /var/lib/provokers/cases.db
model:
  provider: anthropic
  max_retries: 3
server:
  transport: http
  addr: ":9090"
`
	if err := os.WriteFile(filepath.Join(dir, "provokers.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.Path != "/var/lib/provokers/cases.db" {
		t.Errorf("DB.Path = %q", cfg.DB.Path)
	}
	if cfg.Model.Provider != "anthropic" || cfg.Model.MaxRetries != 3 {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if cfg.Server.Transport != "http" || cfg.Server.Addr != ":9090" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if filepath.Base(cfg.File) != "provokers.yaml" {
		t.Errorf("File = %q", cfg.File)
	}

	// Environment overrides the file.
	t.Setenv("PROVOKERS_SERVER_ADDR", ":7070")
	cfg, err = Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %q, want :7070", cfg.Server.Addr)
	}
}

func TestExplicitFileMustExist(t *testing.T) {
	dir := isolate(t)
	if _, err := Load(New(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"PROVOKERS_DB_DRIVER": "postgres"}},
		{"unknown transport", map[string]string{"PROVOKERS_SERVER_TRANSPORT": "grpc"}},
		{"unknown log format", map[string]string{"PROVOKERS_LOG_FORMAT": "xml"}},
		{"negative retries", map[string]string{"PROVOKERS_MODEL_MAX_RETRIES": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, val := range tt.env {
				t.Setenv(k, val)
			}
			if _, err := Load(New(), ""); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
