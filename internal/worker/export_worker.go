package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"duoledger/internal/core"
	"duoledger/internal/mirror"
	"duoledger/internal/sheets"
)

// ExportWorkerConfig holds configuration for the export worker
type ExportWorkerConfig struct {
	// Schedule is a standard cron spec or descriptor (default: "@every 1m")
	Schedule string

	// Timeout bounds a single export (default: 30s)
	Timeout time.Duration
}

// DefaultExportWorkerConfig returns sensible defaults
func DefaultExportWorkerConfig() ExportWorkerConfig {
	return ExportWorkerConfig{
		Schedule: "@every 1m",
		Timeout:  30 * time.Second,
	}
}

// TransactionSource yields the current transactions snapshot.
type TransactionSource interface {
	Transactions() mirror.Snapshot[core.Transaction]
}

// ExportWorker rewrites the spreadsheet with the mirrored transactions on a
// cron schedule, skipping runs where the snapshot has not changed.
type ExportWorker struct {
	source   TransactionSource
	exporter sheets.TransactionExporter
	config   ExportWorkerConfig
	logger   *slog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cron    *cron.Cron

	exportMu    sync.Mutex
	lastVersion uint64
}

func NewExportWorker(source TransactionSource, exporter sheets.TransactionExporter, config ExportWorkerConfig, logger *slog.Logger) *ExportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Schedule == "" {
		config.Schedule = DefaultExportWorkerConfig().Schedule
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultExportWorkerConfig().Timeout
	}
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		config:   config,
		logger:   logger.With("component", "worker"),
	}
}

// Start schedules the export job. Returns an error if already running or if
// the schedule does not parse.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("export worker is already running")
	}

	cl := cronLogger{w.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(w.config.Schedule, func() {
		if _, err := w.ExportIfChanged(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Export failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", w.config.Schedule, err)
	}

	c.Start()
	w.cron = c
	w.running = true
	w.logger.InfoContext(ctx, "Export worker started", "schedule", w.config.Schedule)
	return nil
}

// Stop gracefully stops the schedule and waits for a running export.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	c := w.cron
	w.running = false
	w.cron = nil
	w.mu.Unlock()

	select {
	case <-c.Stop().Done():
		w.logger.InfoContext(ctx, "Export worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the worker is currently scheduled
func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// ExportIfChanged exports the current snapshot unless it was already
// exported. It reports whether an export happened.
func (w *ExportWorker) ExportIfChanged(ctx context.Context) (bool, error) {
	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	snap := w.source.Transactions()
	if snap.Version == 0 || snap.Version == w.lastVersion {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	n, err := w.exporter.ReplaceTransactions(ctx, snap.Records)
	if err != nil {
		return false, fmt.Errorf("export snapshot %d: %w", snap.Version, err)
	}
	w.lastVersion = snap.Version
	w.logger.InfoContext(ctx, "Snapshot exported", "version", snap.Version, "rows", n)
	return true, nil
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
