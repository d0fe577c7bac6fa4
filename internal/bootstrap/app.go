package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"json-decode-bench/internal/bench"
	"json-decode-bench/internal/config"
	"json-decode-bench/internal/diagnostics"
	"json-decode-bench/internal/domain"
	"json-decode-bench/internal/jobs"
	"json-decode-bench/internal/metrics"
	"json-decode-bench/internal/pool"
	"json-decode-bench/internal/source"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const (
	jobEventName      = "job:event"
	settingsEventName = "settings:changed"
	historyLimit      = 50
)

var sourceDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "JSON documents",
		Pattern:     "*.json",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the benchmark runner, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Runner      jobRunner
	History     *jobs.History
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	pools       *pool.Manager
	logger      *slog.Logger
	datasetDir  string

	mu          sync.Mutex
	activeJobID string
	cancel      context.CancelFunc
	stopWatch   context.CancelFunc
	events      *jobs.EventBus
	runtimeCtx  context.Context
}

// jobRunner isolates the benchmark runner behind an interface.
type jobRunner interface {
	Run(ctx context.Context, req bench.Request) (domain.JobResult, error)
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	store := config.NewJSONStore(config.DefaultSettingsPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger := slog.Default()
	engine := bench.NewEngine(logger, metrics.New())
	checker := diagnostics.NewChecker(config.DefaultDatasetDir())

	return &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Runner:      engine.Runner,
		History:     jobs.NewHistory(historyLimit),
		Diagnostics: checker.Run(settings),
		assets:      assets,
		checker:     checker,
		pools:       engine.Pools,
		logger:      logger,
		datasetDir:  config.DefaultDatasetDir(),
		events:      jobs.NewEventBus(1000),
	}, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "JSON Decode Bench",
		Width:       980,
		Height:      720,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events and starts watching
// the settings file for external edits.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	store, ok := a.Store.(*config.JSONStore)
	if !ok {
		return
	}
	watchCtx, stop := context.WithCancel(ctx)
	a.mu.Lock()
	a.stopWatch = stop
	a.mu.Unlock()

	go func() {
		err := config.Watch(watchCtx, store, a.log(), a.applyExternalSettings)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log().Warn("settings watch stopped", slog.String("error", err.Error()))
		}
	}()
}

// Shutdown cancels any running job, stops the settings watch and tears
// down pooled workers.
func (a *App) Shutdown(context.Context) {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
	a.runtimeCtx = nil
	a.mu.Unlock()

	if a.pools != nil {
		a.pools.Close()
	}
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetLimits returns the bounds offered for thread and file counts.
func (a *App) GetLimits() domain.Limits {
	return domain.Limits{
		MaxThreads:   domain.AvailableParallelism(),
		DefaultFiles: domain.DefaultReplicationFactor,
	}
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := settings.Normalize()
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(normalized)
	return normalized, nil
}

// PickSourceFile opens a native file dialog for the source document.
func (a *App) PickSourceFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select JSON document",
		Filters: sourceDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// RefreshDiagnostics reloads settings and reruns preflight checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	return a.refreshDiagnosticsFromSettings(settings), nil
}

// StartRun persists the chosen settings, creates a job and runs it
// asynchronously. Only one job may run at a time.
func (a *App) StartRun(settings domain.Settings) (domain.Job, error) {
	settings = settings.Normalize()
	params := settings.Parameters()

	jobID := jobs.NewID()
	if err := a.Jobs.Start(jobID, params); err != nil {
		return domain.Job{}, err
	}

	if err := a.Store.Save(settings); err != nil {
		a.log().Warn("persist run settings", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.activeJobID = jobID
	a.cancel = cancel
	a.Settings = settings
	a.mu.Unlock()

	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  domain.JobStatusLoading,
		Message: "Job started",
		Params:  &params,
	})

	go a.runBenchmarkJob(ctx, jobID, settings, params)
	return a.Jobs.Current(), nil
}

// CancelRun asks the running job to stop. The cancelled phase is reported
// once its workers are released.
func (a *App) CancelRun() error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel == nil {
		return jobs.ErrNoRunningJob
	}
	if err := a.Jobs.RequestCancel(); err != nil {
		return err
	}
	cancel()
	return nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// RunHistory returns finished runs, newest first.
func (a *App) RunHistory() []jobs.RunRecord {
	return a.History.List()
}

// ClearHistory drops the result list.
func (a *App) ClearHistory() {
	a.History.Clear()
}

// runBenchmarkJob executes one job and maps its outcome to job events.
// The terminal phase is applied after Run returns so a follow-up job can
// never observe the runner as busy.
func (a *App) runBenchmarkJob(ctx context.Context, jobID string, settings domain.Settings, params domain.JobParameters) {
	defer a.clearActiveJob(jobID)

	loader := source.ForPath(settings.SourcePath)
	result, err := a.Runner.Run(ctx, bench.Request{
		Params: params,
		Loader: loader,
		OnPhase: func(status domain.JobStatus) {
			if isTerminal(status) || a.Jobs.Current().Status == status {
				return
			}
			if err := a.Jobs.Transition(status); err == nil {
				a.publishStatus(jobID, status, phaseMessage(status))
			}
		},
	})

	status := domain.JobStatusCompleted
	switch {
	case err == nil:
	case bench.Kind(err) == bench.KindCancelled:
		status = domain.JobStatusCancelled
	default:
		status = domain.JobStatusFailed
	}

	if transErr := a.Jobs.Transition(status); transErr != nil {
		a.log().Warn("apply terminal phase", slog.String("error", transErr.Error()))
	}
	a.publishStatus(jobID, status, phaseMessage(status))

	switch status {
	case domain.JobStatusCompleted:
		a.publishEvent(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeResult,
			Status:  status,
			Message: fmt.Sprintf("Decoded %d records in %d ms", result.TotalItemCount, result.ElapsedMillis),
			Params:  &params,
			Result:  &result,
		})
	case domain.JobStatusFailed:
		a.publishEvent(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeError,
			Status:  status,
			Message: err.Error(),
			Params:  &params,
			Result:  &result,
		})
	}

	a.History.Add(jobs.RunRecord{
		JobID:  jobID,
		Source: source.Describe(loader),
		Params: params,
		Status: status,
		Result: result,
	})
}

// applyExternalSettings handles settings edited outside the app.
func (a *App) applyExternalSettings(settings domain.Settings) {
	a.refreshDiagnosticsFromSettings(settings)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, settingsEventName, settings)
	}
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.JobStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, jobEventName, published)
	}
}

// clearActiveJob clears cancellation handles for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		if a.cancel != nil {
			a.cancel()
		}
		a.activeJobID = ""
		a.cancel = nil
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

func (a *App) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

func isTerminal(status domain.JobStatus) bool {
	switch status {
	case domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled:
		return true
	default:
		return false
	}
}

func phaseMessage(status domain.JobStatus) string {
	switch status {
	case domain.JobStatusLoading:
		return "Loading source"
	case domain.JobStatusScheduling:
		return "Scheduling work units"
	case domain.JobStatusAwaiting:
		return "Waiting for decoders"
	case domain.JobStatusCompleted:
		return "Job completed"
	case domain.JobStatusFailed:
		return "Job failed"
	case domain.JobStatusCancelled:
		return "Job cancelled"
	default:
		return string(status)
	}
}
