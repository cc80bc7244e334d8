// Package cli provides the initialization shared by cmd/ledgerd,
// cmd/ledger and cmd/ledger-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"duoledger/internal/backend"
	"duoledger/internal/config"
	"duoledger/internal/importer"
	"duoledger/internal/ledger"
	applog "duoledger/internal/log"
	"duoledger/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = cfg.LogFormat
	lc.Component = component
	lc.Output = os.Stderr

	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App bundles what every binary needs: the store, the mutation gateway and
// the collection names.
type App struct {
	Config  *config.Config
	Logger  *applog.Logger
	Backend *backend.BackendResult
	Cols    ledger.Collections
	Ledger  *services.LedgerService
}

// Bootstrap opens the configured store backend and builds the ledger
// service on top of it. Callers must Close the App.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	rules, err := importer.LoadRules(cfg.ClassifierRulesFile)
	if err != nil {
		return nil, fmt.Errorf("load classifier rules: %w", err)
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	cols := ledger.CollectionNames(cfg.CollectionPrefix)
	svc := services.NewLedgerService(res.Store, cols, cfg.Ledger(), rules, nil, logger.Logger)

	logger.InfoContext(ctx, "Ledger initialized",
		applog.FieldOperation, applog.OpStartup,
		"backend", cfg.StoreBackend,
		"cycle_start_day", cfg.CycleStartDay,
		"rules", len(rules))

	return &App{
		Config:  cfg,
		Logger:  logger,
		Backend: res,
		Cols:    cols,
		Ledger:  svc,
	}, nil
}

// Close releases the store and the relay connection.
func (a *App) Close() error {
	if a.Backend == nil || a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
	}()
	return ctx, stop
}
