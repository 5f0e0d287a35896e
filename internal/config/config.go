// Package config handles configuration loading, validation, and hot
// reloading for expandd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds the complete daemon configuration: global settings, the
// ordered snippet list, and the user-defined variable table. Declaration
// order matters; it breaks ties between equal-length triggers.
type Config struct {
	Settings Settings  `toml:"settings" json:"settings" yaml:"settings"`
	Snippets []Snippet `toml:"snippets" json:"snippets" yaml:"snippets"`

	// Variables holds user-defined values referenced from replacement
	// templates as {{name}} or {{table.key}}. Nested tables are addressed
	// with dot notation.
	Variables map[string]any `toml:"variables,omitempty" json:"variables,omitempty" yaml:"variables,omitempty"`
}

// Settings holds global daemon settings.
type Settings struct {
	// Enabled toggles expansion globally. Snippets stay loaded while
	// disabled; only matching stops.
	Enabled *bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// NotifyOnExpand shows a desktop notification after each expansion.
	NotifyOnExpand bool `toml:"notify_on_expand" json:"notify_on_expand" yaml:"notify_on_expand"`

	// KeystrokeDelayMs is the delay between synthetic keystrokes when
	// typing a replacement.
	KeystrokeDelayMs int `toml:"keystroke_delay_ms" json:"keystroke_delay_ms" yaml:"keystroke_delay_ms"`

	// ShellTimeoutMs bounds {{shell:...}} and clipboard evaluation.
	ShellTimeoutMs int `toml:"shell_timeout_ms" json:"shell_timeout_ms" yaml:"shell_timeout_ms"`

	// SocketPath is the control socket path for expandctl.
	SocketPath string `toml:"socket_path" json:"socket_path" yaml:"socket_path"`

	// YdotoolSocket overrides the ydotoold socket path. Empty uses the
	// ydotool default.
	YdotoolSocket string `toml:"ydotool_socket,omitempty" json:"ydotool_socket,omitempty" yaml:"ydotool_socket,omitempty"`

	// History configures the expansion history store.
	History HistorySettings `toml:"history" json:"history" yaml:"history"`

	// Logging configures structured logging.
	Logging LoggingSettings `toml:"logging" json:"logging" yaml:"logging"`
}

// HistorySettings configures the SQLite expansion log.
type HistorySettings struct {
	Enabled    bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Path       string `toml:"path" json:"path" yaml:"path"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
}

// LoggingSettings configures log output.
type LoggingSettings struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	Format     string `toml:"format" json:"format" yaml:"format"`
	Output     string `toml:"output" json:"output" yaml:"output"`
	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int64  `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// Snippet is a single text expansion rule. Trigger text is not required to
// be unique; collisions are resolved by longest trigger first, then
// declaration order.
type Snippet struct {
	// Trigger is the exact character sequence that fires the expansion.
	Trigger string `toml:"trigger" json:"trigger" yaml:"trigger"`

	// Replace is the replacement template ({{variable}} syntax, optional
	// $|$ cursor marker).
	Replace string `toml:"replace" json:"replace" yaml:"replace"`

	// Label is an optional human-readable description.
	Label string `toml:"label,omitempty" json:"label,omitempty" yaml:"label,omitempty"`

	// Enabled defaults to true when omitted.
	Enabled *bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// PropagateCase mirrors the typed trigger's capitalization onto the
	// replacement. Triggers on such snippets match case-insensitively so
	// the uppercase variants can fire at all.
	PropagateCase bool `toml:"propagate_case" json:"propagate_case" yaml:"propagate_case"`

	// WordBoundary requires a non-word character (or nothing) directly
	// before the trigger.
	WordBoundary bool `toml:"word_boundary" json:"word_boundary" yaml:"word_boundary"`

	// CursorMarker enables cursor placement at the $|$ marker.
	CursorMarker bool `toml:"cursor_marker" json:"cursor_marker" yaml:"cursor_marker"`
}

// IsEnabled reports the effective enabled state (default true).
func (s *Snippet) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// EnabledGlobal reports the effective global toggle (default true).
func (s *Settings) EnabledGlobal() bool {
	return s.Enabled == nil || *s.Enabled
}

// KeystrokeDelay returns the inter-keystroke delay as a duration.
func (s *Settings) KeystrokeDelay() time.Duration {
	return time.Duration(s.KeystrokeDelayMs) * time.Millisecond
}

// ShellTimeout returns the shell/clipboard timeout as a duration.
func (s *Settings) ShellTimeout() time.Duration {
	return time.Duration(s.ShellTimeoutMs) * time.Millisecond
}

// Validate checks the configuration for usability. A config that fails
// validation is never published to the engine.
func (c *Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	for i := range c.Snippets {
		if err := c.Snippets[i].Validate(); err != nil {
			return fmt.Errorf("snippet %d: %w", i, err)
		}
	}
	return nil
}

// Validate validates the global settings.
func (s *Settings) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.KeystrokeDelayMs, validation.Min(0), validation.Max(1000)),
		validation.Field(&s.ShellTimeoutMs, validation.Required, validation.Min(100), validation.Max(60000)),
		validation.Field(&s.SocketPath, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return s.Logging.Validate()
}

// Validate validates the logging settings.
func (l *LoggingSettings) Validate() error {
	err := validation.ValidateStruct(l,
		validation.Field(&l.Level, validation.In("", "debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("", "text", "json")),
		validation.Field(&l.Output, validation.In("", "stdout", "stderr", "file", "both")),
	)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Validate validates one snippet.
func (s *Snippet) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Trigger, validation.Required),
	)
}

// ApplyEnvOverrides applies EXPANDD_* environment overrides on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("EXPANDD_LOG_LEVEL"); v != "" {
		c.Settings.Logging.Level = v
	}
	if v := os.Getenv("EXPANDD_LOG_FORMAT"); v != "" {
		c.Settings.Logging.Format = v
	}
	if v := os.Getenv("EXPANDD_SOCKET_PATH"); v != "" {
		c.Settings.SocketPath = v
	}
	if v := os.Getenv("EXPANDD_SHELL_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Settings.ShellTimeoutMs = ms
		}
	}
}

// ConfigPath returns the default config file path
// ($XDG_CONFIG_HOME/expandd/config.toml).
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, _ := os.UserHomeDir()
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "expandd", "config.toml")
}
