package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"json-decode-bench/internal/diagnostics"
	"json-decode-bench/internal/domain"
)

// FixDiagnostic applies the remediation for one failed or warned diagnostic item.
func (a *App) FixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = settings.Normalize()

	settingsChanged := false
	var fixErr error

	switch id {
	case diagnostics.CheckSourcePath:
		settingsChanged = settings.SourcePath != ""
		settings.SourcePath = ""
	case diagnostics.CheckThreads:
		if limit := domain.AvailableParallelism(); settings.Threads > limit {
			settings.Threads = limit
			settingsChanged = true
		}
	case diagnostics.CheckDatasetDir:
		fixErr = fixDatasetDir(a.datasetDir)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

func fixDatasetDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("dataset directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset directory %s: %w", dir, err)
	}
	return nil
}
