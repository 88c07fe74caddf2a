package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-ledger/internal/config"
	"parking-ledger/internal/logging"
	"parking-ledger/internal/parking"
	"parking-ledger/internal/server"
	"parking-ledger/internal/store"
)

var (
	mode = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port = flag.String("port", "", "Port for HTTP server (overrides APP_PORT)")
)

type app struct {
	cfg       *config.Config
	service   *parking.InstrumentedService
	telemetry *parking.TelemetryProvider
	writer    *store.AsyncWriter
	closers   []io.Closer
}

func main() {
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	logging.Init(cfg.OTelConfig.ServiceName, cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := setup(ctx, cfg)
	if err != nil {
		logging.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		a.runCLI(ctx, cancel, sigChan)
	case "server":
		a.runServer(ctx, cancel, sigChan)
	case "both":
		a.runBoth(ctx, cancel, sigChan)
	default:
		logging.Error(ctx, "invalid mode, must be cli, server, or both", "mode", *mode)
		a.shutdown()
		os.Exit(2)
	}

	a.shutdown()
}

func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	telemetry, err := parking.NewTelemetryProvider(ctx, cfg.OTelConfig.ServiceName, cfg.OTelConfig.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}
	a := &app{cfg: cfg, telemetry: telemetry}

	backend, err := a.openStore(ctx)
	if err != nil {
		if shutdownErr := telemetry.Shutdown(ctx); shutdownErr != nil {
			logging.Error(ctx, "telemetry shutdown", "error", shutdownErr)
		}
		return nil, err
	}
	a.writer = store.NewAsyncWriter(backend)

	svc := parking.NewService(a.writer, parking.RateTable{
		CarHourlyRate:        cfg.CarRate,
		MotorcycleHourlyRate: cfg.MotorcycleRate,
	})
	svc.Restore(ctx)

	a.service, err = parking.NewInstrumentedService(svc, telemetry)
	if err != nil {
		a.shutdown()
		return nil, fmt.Errorf("instrument service: %w", err)
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) (parking.Store, error) {
	switch a.cfg.StoreDriver {
	case "memory":
		logging.Info(ctx, "using in-memory state store")
		return store.NewMemoryStore(), nil
	case "sqlite":
		s, err := store.OpenSQLite(ctx, a.cfg.SQLitePath, a.cfg.StateKey)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, s)
		logging.Info(ctx, "using sqlite state store", "path", a.cfg.SQLitePath)
		return s, nil
	case "postgres":
		s, err := store.OpenPostgres(ctx, a.cfg.DatabaseURL, a.cfg.StateKey)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		a.closers = append(a.closers, s)
		logging.Info(ctx, "using postgres state store")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", a.cfg.StoreDriver)
	}
}

func (a *app) newServer() *server.Server {
	return server.NewServer(a.cfg.Port, a.service, a.cfg.OTelConfig.ServiceName)
}

func (a *app) runCLI(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		cancel()
	}()

	shell := parking.NewShell(a.service, a.telemetry, os.Stdin, os.Stdout)
	shell.Run(ctx)
}

func (a *app) runServer(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	srv := a.newServer()

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		a.stopServer(srv)
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx, "server error", "error", err)
	}
}

func (a *app) runBoth(ctx context.Context, cancel context.CancelFunc, sigChan chan os.Signal) {
	srv := a.newServer()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		shell := parking.NewShell(a.service, a.telemetry, os.Stdin, os.Stdout)
		shell.Run(ctx)
		close(cliDone)
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "server error", "error", err)
		}
	case <-cliDone:
		logging.Info(ctx, "CLI exited")
		a.stopServer(srv)
	case <-sigChan:
		logging.Info(ctx, "received shutdown signal")
		a.stopServer(srv)
	}
	cancel()
}

func (a *app) stopServer(srv *server.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "server shutdown error", "error", err)
	}
}

// shutdown flushes the pending state write before closing storage, then
// stops telemetry last so the flush is still traced.
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if a.writer != nil {
		if err := a.writer.Close(ctx); err != nil {
			logging.Error(ctx, "state writer did not drain", "error", err)
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logging.Error(ctx, "closing store", "error", err)
		}
	}

	logging.Info(ctx, "shutting down telemetry")
	if err := a.telemetry.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
	}
}
