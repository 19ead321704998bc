package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "segfetch"

// GetSegfetchDir returns the per-user config root based on OS conventions.
// SEGFETCH_HOME overrides it.
func GetSegfetchDir() string {
	if home := os.Getenv("SEGFETCH_HOME"); home != "" {
		return home
	}
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(appData, appDirName)
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", appDirName)
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, _ := os.UserHomeDir()
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, appDirName)
	}
}

// GetRuntimeDir returns the directory for lock files.
// Linux: $XDG_RUNTIME_DIR/segfetch or fallback to GetStateDir() if unset
// macOS: $TMPDIR/segfetch-runtime
// Windows: %TEMP%/segfetch
func GetRuntimeDir() string {
	if os.Getenv("SEGFETCH_HOME") != "" {
		return filepath.Join(GetSegfetchDir(), "run")
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.TempDir(), appDirName)
	case "darwin":
		return filepath.Join(os.TempDir(), appDirName+"-runtime")
	default:
		if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
			return filepath.Join(runtimeDir, appDirName)
		}
		// e.g. containers and headless sessions
		return GetStateDir()
	}
}

// GetStateDir returns the directory for the history database.
func GetStateDir() string {
	return filepath.Join(GetSegfetchDir(), "state")
}

// GetLogsDir returns the directory for debug logs.
func GetLogsDir() string {
	return filepath.Join(GetSegfetchDir(), "logs")
}

// GetSettingsPath returns the default location of settings.yaml.
func GetSettingsPath() string {
	return filepath.Join(GetSegfetchDir(), "settings.yaml")
}

// GetHistoryDBPath returns the default location of the history database.
func GetHistoryDBPath() string {
	return filepath.Join(GetStateDir(), "history.db")
}

// EnsureDirs creates all required directories.
func EnsureDirs() error {
	dirs := []string{GetSegfetchDir(), GetStateDir(), GetLogsDir(), GetRuntimeDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
