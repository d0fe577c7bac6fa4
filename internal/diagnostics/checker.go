package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/romshark/jscan/v2"

	"json-decode-bench/internal/domain"
)

// Check IDs reported by Run.
const (
	CheckSourcePath = "source_path"
	CheckThreads    = "threads"
	CheckDatasetDir = "dataset_dir"
)

// Checker validates the configured source document and local paths before a run.
type Checker struct {
	datasetDir string
	numCPU     func() int
	stat       func(string) (os.FileInfo, error)
	readFile   func(string) ([]byte, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker(datasetDir string) *Checker {
	return &Checker{
		datasetDir: datasetDir,
		numCPU:     domain.AvailableParallelism,
		stat:       os.Stat,
		readFile:   os.ReadFile,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// DatasetDir returns the directory checked for write access.
func (c *Checker) DatasetDir() string {
	return c.datasetDir
}

// Run executes all preflight checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkSourcePath(settings.SourcePath),
		c.checkThreads(settings.Threads),
		c.checkDatasetDir(c.datasetDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkSourcePath verifies the source exists and holds a JSON array.
func (c *Checker) checkSourcePath(sourcePath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   CheckSourcePath,
		Name: "Source document",
	}

	path := strings.TrimSpace(sourcePath)
	if path == "" {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "Using the bundled sample document."
		return item
	}

	info, err := c.stat(path)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Fixable = true
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Source file does not exist: %s", path)
		} else {
			item.Message = fmt.Sprintf("Cannot access source file: %s", path)
		}
		item.Hint = "Pick another file or reset to the bundled sample."
		return item
	}
	if info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Fixable = true
		item.Message = fmt.Sprintf("Source path is a directory: %s", path)
		item.Hint = "Point the source at a .json file."
		return item
	}

	data, err := c.readFile(path)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Fixable = true
		item.Message = fmt.Sprintf("Cannot read source file: %s", path)
		item.Hint = "Check permissions for the source file."
		return item
	}

	if err := jscan.Validate(data); err.IsErr() {
		item.Status = domain.DiagnosticStatusFail
		item.Fixable = true
		item.Message = fmt.Sprintf("Source is not valid JSON: %s", err.Error())
		item.Hint = "Fix the document or generate a synthetic dataset."
		return item
	}
	if trimmed := strings.TrimLeft(string(data), " \t\r\n"); !strings.HasPrefix(trimmed, "[") {
		item.Status = domain.DiagnosticStatusFail
		item.Fixable = true
		item.Message = "Source document is not a JSON array."
		item.Hint = "The top-level value must be an array of records."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Valid JSON array (%d bytes): %s", info.Size(), path)
	return item
}

// checkThreads warns when the requested width exceeds the CPU count.
func (c *Checker) checkThreads(threads int) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   CheckThreads,
		Name: "Concurrency width",
	}

	limit := c.numCPU()
	if threads > limit {
		item.Status = domain.DiagnosticStatusWarn
		item.Fixable = true
		item.Message = fmt.Sprintf("%d threads requested, %d CPUs available; width will be clamped.", threads, limit)
		item.Hint = "Lower the thread count to measure the width that actually runs."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("%d of %d CPUs", max(threads, 1), limit)
	return item
}

// checkDatasetDir validates dataset directory existence and write access.
func (c *Checker) checkDatasetDir(dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   CheckDatasetDir,
		Name: "Dataset directory",
	}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = "Dataset directory is not configured."
		item.Hint = "Synthetic datasets cannot be generated."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Fixable = true
		item.Message = fmt.Sprintf("Cannot create dataset directory: %s", dir)
		item.Hint = "Adjust filesystem permissions for the application directory."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Dataset directory is not writable: %s", dir)
		item.Hint = "Adjust filesystem permissions for the application directory."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	datasetDir string,
	numCPU func() int,
	stat func(string) (os.FileInfo, error),
	readFile func(string) ([]byte, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		datasetDir: datasetDir,
		numCPU:     numCPU,
		stat:       stat,
		readFile:   readFile,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
