package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleTOML = `
[settings]
enabled = true
notify_on_expand = true
keystroke_delay_ms = 5
shell_timeout_ms = 2000
socket_path = "/tmp/expandd-test.sock"

[settings.logging]
level = "debug"
format = "json"
output = "stderr"

[[snippets]]
trigger = ";email"
replace = "alice@example.com"

[[snippets]]
trigger = ";sig"
replace = "Best regards,\nAlice"
propagate_case = true
word_boundary = true

[variables]
signature = "Alice"

[variables.user]
email = "alice@example.com"
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeTemp(t, "config.toml", sampleTOML)

	loader := NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.Settings.EnabledGlobal() {
		t.Error("expected enabled global")
	}
	if cfg.Settings.KeystrokeDelayMs != 5 {
		t.Errorf("keystroke_delay_ms = %d, want 5", cfg.Settings.KeystrokeDelayMs)
	}
	if cfg.Settings.KeystrokeDelay() != 5*time.Millisecond {
		t.Errorf("KeystrokeDelay() = %v", cfg.Settings.KeystrokeDelay())
	}
	if len(cfg.Snippets) != 2 {
		t.Fatalf("len(snippets) = %d, want 2", len(cfg.Snippets))
	}
	if cfg.Snippets[0].Trigger != ";email" {
		t.Errorf("snippet 0 trigger = %q", cfg.Snippets[0].Trigger)
	}
	if !cfg.Snippets[0].IsEnabled() {
		t.Error("snippet without enabled field should default to enabled")
	}
	if !cfg.Snippets[1].WordBoundary || !cfg.Snippets[1].PropagateCase {
		t.Error("snippet 1 flags not decoded")
	}
	if cfg.Variables["signature"] != "Alice" {
		t.Errorf("variables.signature = %v", cfg.Variables["signature"])
	}
	user, ok := cfg.Variables["user"].(map[string]any)
	if !ok || user["email"] != "alice@example.com" {
		t.Errorf("variables.user not decoded as a nested table: %v", cfg.Variables["user"])
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeTemp(t, "config.json", `{
		"settings": {
			"shell_timeout_ms": 1500,
			"socket_path": "/tmp/e.sock"
		},
		"snippets": [
			{"trigger": ";id", "replace": "{{uuid}}", "enabled": false}
		]
	}`)

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Settings.ShellTimeoutMs != 1500 {
		t.Errorf("shell_timeout_ms = %d", cfg.Settings.ShellTimeoutMs)
	}
	// Defaults survive partial configs.
	if cfg.Settings.KeystrokeDelayMs != DefaultKeystrokeDelayMs {
		t.Errorf("keystroke_delay_ms = %d, want default %d", cfg.Settings.KeystrokeDelayMs, DefaultKeystrokeDelayMs)
	}
	if cfg.Snippets[0].IsEnabled() {
		t.Error("explicitly disabled snippet reported enabled")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
settings:
  shell_timeout_ms: 3000
  socket_path: /tmp/e.sock
snippets:
  - trigger: ";date"
    replace: "{{date:%Y-%m-%d}}"
variables:
  user:
    name: Alice
`)

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Snippets) != 1 || cfg.Snippets[0].Trigger != ";date" {
		t.Fatalf("snippets = %+v", cfg.Snippets)
	}
	user, ok := cfg.Variables["user"].(map[string]any)
	if !ok || user["name"] != "Alice" {
		t.Errorf("variables.user not decoded: %v", cfg.Variables["user"])
	}
}

func TestValidationRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing trigger", `
[settings]
shell_timeout_ms = 3000
socket_path = "/tmp/e.sock"
[[snippets]]
replace = "x"
`},
		{"delay out of range", `
[settings]
keystroke_delay_ms = 9999
shell_timeout_ms = 3000
socket_path = "/tmp/e.sock"
`},
		{"bad log level", `
[settings]
shell_timeout_ms = 3000
socket_path = "/tmp/e.sock"
[settings.logging]
level = "loud"
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTemp(t, "config.toml", tc.body)
			if _, err := NewLoader(path).Load(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EXPANDD_LOG_LEVEL", "debug")
	t.Setenv("EXPANDD_SHELL_TIMEOUT_MS", "500")

	path := writeTemp(t, "config.toml", `
[settings]
shell_timeout_ms = 3000
socket_path = "/tmp/e.sock"
`)
	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Settings.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Settings.Logging.Level)
	}
	if cfg.Settings.ShellTimeoutMs != 500 {
		t.Errorf("shell_timeout_ms = %d, want 500", cfg.Settings.ShellTimeoutMs)
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate() error: %v", err)
	}
	if !created {
		t.Error("expected config file to be created")
	}
	if cfg.Settings.ShellTimeoutMs != DefaultShellTimeoutMs {
		t.Errorf("shell_timeout_ms = %d", cfg.Settings.ShellTimeoutMs)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not written: %v", err)
	}

	// Second call loads the existing file.
	_, created, err = LoadOrCreate(path)
	if err != nil {
		t.Fatalf("second LoadOrCreate() error: %v", err)
	}
	if created {
		t.Error("expected existing file to be loaded, not recreated")
	}
}

func TestHotReload(t *testing.T) {
	path := writeTemp(t, "config.toml", sampleTOML)

	loader := NewLoader(path)
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	changed := make(chan *Config, 1)
	loader.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err := loader.Watch(); err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer loader.Close()

	updated := sampleTOML + "\n[[snippets]]\ntrigger = \";new\"\nreplace = \"added\"\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-changed:
		if len(cfg.Snippets) != 3 {
			t.Errorf("reloaded snippets = %d, want 3", len(cfg.Snippets))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestReloadKeepsOldConfigOnError(t *testing.T) {
	path := writeTemp(t, "config.toml", sampleTOML)

	loader := NewLoader(path)
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := loader.Watch(); err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer loader.Close()

	if err := os.WriteFile(path, []byte("this is { not [ valid"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case err := <-loader.Errors():
		if err == nil {
			t.Fatal("nil error from Errors()")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	cfg := loader.Config()
	if len(cfg.Snippets) != 2 {
		t.Errorf("old config not retained, snippets = %d", len(cfg.Snippets))
	}
}
