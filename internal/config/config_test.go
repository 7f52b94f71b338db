// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:ABC-DEF"

backend:
  api_key: "mm-key"
  base_url: "https://api.minimax.chat"
  model: "abab6.5s-chat"
  timeout: "90s"

database:
  path: "./test.db"

server:
  http_addr: "0.0.0.0:9090"
  pid_file: "/tmp/test.pid"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telegram.Token != "123456:ABC-DEF" {
		t.Errorf("telegram.token = %q", cfg.Telegram.Token)
	}
	if cfg.Backend.Model != "abab6.5s-chat" {
		t.Errorf("backend.model = %q", cfg.Backend.Model)
	}
	if cfg.Backend.Timeout != 90*time.Second {
		t.Errorf("backend.timeout = %v, want 90s", cfg.Backend.Timeout)
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if cfg.Server.HTTPAddr != "0.0.0.0:9090" {
		t.Errorf("server.http_addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_RELAY_TOKEN", "999:TOKEN")
	t.Setenv("TEST_RELAY_KEY", "secret-key")

	path := writeConfig(t, `
telegram:
  token: "${TEST_RELAY_TOKEN}"
backend:
  api_key: "${TEST_RELAY_KEY}"
  model: "abab6.5s-chat"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telegram.Token != "999:TOKEN" {
		t.Errorf("telegram.token = %q, want expanded value", cfg.Telegram.Token)
	}
	if cfg.Backend.APIKey != "secret-key" {
		t.Errorf("backend.api_key = %q, want expanded value", cfg.Backend.APIKey)
	}
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "${DEFINITELY_UNSET_RELAY_VAR}"
backend:
  api_key: "key"
  model: "m"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for empty token")
	}
	if !strings.Contains(err.Error(), "telegram.token") {
		t.Errorf("error = %v, want mention of telegram.token", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:ABC"
backend:
  api_key: "key"
  model: "abab6.5s-chat"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "coven-relay.db" {
		t.Errorf("database.path default = %q", cfg.Database.Path)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("server.http_addr default = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.PIDFile == "" {
		t.Error("server.pid_file default is empty")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name: "missing api key",
			content: `
telegram:
  token: "123:ABC"
backend:
  model: "m"
`,
			want: "backend.api_key",
		},
		{
			name: "missing model",
			content: `
telegram:
  token: "123:ABC"
backend:
  api_key: "key"
`,
			want: "backend.model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:ABC"
backend:
  api_key: "key"
  model: "m"
  timeout: "not-a-duration"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected duration parse error")
	}
	if !strings.Contains(err.Error(), "backend.timeout") {
		t.Errorf("error = %v, want mention of backend.timeout", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultPath_EnvOverride(t *testing.T) {
	t.Setenv("COVEN_RELAY_CONFIG", "/etc/coven/custom.yaml")
	if got := DefaultPath(); got != "/etc/coven/custom.yaml" {
		t.Errorf("DefaultPath = %q", got)
	}
}

func TestDefaultPath_XDG(t *testing.T) {
	t.Setenv("COVEN_RELAY_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/home/u/.config")
	want := filepath.Join("/home/u/.config", "coven", "relay.yaml")
	if got := DefaultPath(); got != want {
		t.Errorf("DefaultPath = %q, want %q", got, want)
	}
}
