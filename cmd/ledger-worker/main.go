package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"duoledger/internal/cli"
	"duoledger/internal/config"
	applog "duoledger/internal/log"
	"duoledger/internal/services"
	gsheet "duoledger/internal/sheets/google"
	"duoledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting ledger-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if !cfg.ExportEnabled() {
		logger.Error("Google Sheets export disabled - set GOOGLE_SPREADSHEET_ID to run the worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ledger-worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("ledger-worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close store", applog.FieldError, err)
		}
	}()

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger.WithComponent(applog.ComponentSheets).Logger)
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	views, err := services.OpenViews(ctx, app.Backend.Store, app.Cols, cfg.Ledger(), nil, logger.Logger)
	if err != nil {
		return err
	}
	defer views.Close()

	exportWorker := worker.NewExportWorker(views, sheetsClient, worker.ExportWorkerConfig{
		Schedule: cfg.ExportSchedule,
	}, logger.Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Backend.RunRelay(gctx)
	})
	g.Go(func() error {
		if err := exportWorker.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		// Final export so the sheet reflects writes made just before shutdown.
		if _, err := exportWorker.ExportIfChanged(stopCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			logger.Error("Final export failed", applog.FieldOperation, applog.OpExport, applog.FieldError, err)
		}
		return exportWorker.Stop(stopCtx)
	})

	return g.Wait()
}
