package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"duoledger/internal/auth"
	"duoledger/internal/cache"
	"duoledger/internal/cli"
	"duoledger/internal/config"
	apphttp "duoledger/internal/http"
	applog "duoledger/internal/log"
	"duoledger/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ledgerd stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("ledgerd stopped")
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

	pins, err := auth.Open(cfg.PrefsFile, logger.Logger)
	if err != nil {
		return err
	}

	viewCache := cache.NewLRUCache[services.CycleView](256, 10*time.Minute)
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register(viewCache)
	cacheManager.StartCleanup(5 * time.Minute)
	defer cacheManager.Stop()

	views, err := services.OpenViews(ctx, app.Backend.Store, app.Cols, cfg.Ledger(), viewCache, logger.Logger)
	if err != nil {
		return err
	}
	defer views.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      net.JoinHostPort("", cfg.Port),
		Ledger:    app.Ledger,
		Views:     views,
		PINs:      pins,
		Household: cfg.Ledger().Household,
		Logger:    logger,
		ViewCache: viewCache,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.Backend.RunRelay(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.Info("Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
