package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"SignalRelay/internal/usecase"
	"SignalRelay/pkg/config"
	xhttp "SignalRelay/pkg/http"
	applogger "SignalRelay/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	collector  *usecase.SignalCollector
	httpServer *xhttp.Server
	closers    []io.Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.SignalCollector,
	handler xhttp.Handler,
	closers ...io.Closer,
) *App {
	httpServer := xhttp.NewServer(handler, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	)

	return &App{
		cfg:        cfg,
		logger:     log,
		collector:  collector,
		httpServer: httpServer,
		closers:    closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.collector.Start(ctx); err != nil {
		a.logger.Error("collector start error", applogger.Error(err))
		return err
	}
	a.logger.Info("collector started",
		applogger.Strings("sources", a.cfg.Bus.Sources),
		applogger.String("destination", a.cfg.Bus.Destination),
		applogger.String("backend", a.cfg.Bus.Backend),
	)

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.collector.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("collector stop error", applogger.Error(err))
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
