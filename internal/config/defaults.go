package config

import (
	"os"
	"path/filepath"
)

// Default settings values.
const (
	DefaultKeystrokeDelayMs = 12
	DefaultShellTimeoutMs   = 3000
	DefaultHistoryMaxAge    = 90
)

// DefaultConfig returns a configuration with sensible defaults and no
// snippets.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			KeystrokeDelayMs: DefaultKeystrokeDelayMs,
			ShellTimeoutMs:   DefaultShellTimeoutMs,
			SocketPath:       DefaultSocketPath(),
			History: HistorySettings{
				Enabled:    true,
				Path:       defaultStatePath("history.db"),
				MaxAgeDays: DefaultHistoryMaxAge,
			},
			Logging: LoggingSettings{
				Level:      "info",
				Format:     "text",
				Output:     "stderr",
				FilePath:   defaultStatePath("expandd.log"),
				MaxSizeMB:  20,
				MaxBackups: 3,
			},
		},
	}
}

// DefaultSocketPath returns the control socket path, preferring
// XDG_RUNTIME_DIR.
func DefaultSocketPath() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "expandd.sock")
	}
	return defaultStatePath("expandd.sock")
}

func defaultStatePath(name string) string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		homeDir, _ := os.UserHomeDir()
		stateHome = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateHome, "expandd", name)
}
