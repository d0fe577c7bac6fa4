package config

import (
	"os"
	"path/filepath"

	"json-decode-bench/internal/domain"
)

// appDirName is the per-user directory holding settings and datasets.
const appDirName = ".json-decode-bench"

// DefaultSettings returns baseline local configuration for first launch.
// An empty source path selects the bundled sample document.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		SourcePath: "",
		Threads:    1,
		Files:      domain.DefaultReplicationFactor,
		Strategy:   domain.StrategyAuto,
		Codec:      domain.CodecStd,
	}
}

// AppDir returns the per-user application directory.
func AppDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, appDirName)
}

// DefaultSettingsPath returns where settings are persisted.
func DefaultSettingsPath() string {
	return filepath.Join(AppDir(), "settings.json")
}

// DefaultDatasetDir returns where generated datasets are written.
func DefaultDatasetDir() string {
	return filepath.Join(AppDir(), "datasets")
}
