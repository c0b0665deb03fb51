package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TradeDesk/internal/usecase"
	"TradeDesk/pkg/config"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	sessions   *usecase.SessionStore
	cleanup    []func()
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, httpServer *xhttp.Server, sessions *usecase.SessionStore) *App {
	return &App{cfg: cfg, log: log, httpServer: httpServer, sessions: sessions}
}

// OnShutdown registers a release func run after the HTTP server stops, in
// reverse registration order.
func (a *App) OnShutdown(fn func()) {
	if fn != nil {
		a.cleanup = append(a.cleanup, fn)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return a.RunContext(ctx)
}

// RunContext is Run with caller-controlled cancellation.
func (a *App) RunContext(ctx context.Context) error {
	restored, err := a.sessions.Restore(ctx)
	switch {
	case err != nil:
		a.log.Warn("session restore failed", applogger.Error(err))
	case restored:
		if s, err := a.sessions.Current(); err == nil {
			a.log.Info("session restored", applogger.String("email", s.Email))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("dashboard started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("backend", a.cfg.Backend.BaseURL),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var stopErr error
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		stopErr = err
	}
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}

	a.log.Info("shutdown complete")
	return stopErr
}
