package bootstrap

import (
	"fmt"
	"path/filepath"
	"strings"

	"json-decode-bench/internal/dataset"
	"json-decode-bench/internal/domain"
)

// datasetSeed keeps generated presets identical across machines.
const datasetSeed = 20240601

// GetDatasets returns synthetic dataset presets, marking those already generated.
func (a *App) GetDatasets() []domain.DatasetOption {
	options := dataset.Presets()
	if a.datasetDir != "" {
		dataset.MarkGenerated(options, a.datasetDir)
	}
	return options
}

// GenerateDataset writes the selected preset and points settings.SourcePath at it.
func (a *App) GenerateDataset(datasetID string) (domain.Settings, error) {
	id := strings.TrimSpace(datasetID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("dataset id is required")
	}

	preset, found := dataset.Lookup(id)
	if !found {
		return domain.Settings{}, fmt.Errorf("unknown dataset id: %s", id)
	}
	if a.Store == nil {
		return domain.Settings{}, fmt.Errorf("settings store is not configured")
	}
	if strings.TrimSpace(a.datasetDir) == "" {
		return domain.Settings{}, fmt.Errorf("dataset directory is not configured")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	targetPath := filepath.Join(a.datasetDir, preset.FileName)
	if err := dataset.WriteFile(targetPath, preset.Records, datasetSeed); err != nil {
		return domain.Settings{}, fmt.Errorf("generate dataset %s: %w", preset.Name, err)
	}

	settings.SourcePath = targetPath
	settings = settings.Normalize()
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}
