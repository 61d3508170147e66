package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"roverchat/internal/poll/interfaces"
	"roverchat/internal/providers"
	"roverchat/internal/realtime"
	"roverchat/internal/structures"
	"strconv"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	WebServer *http.Server

	conf     *structures.Config
	logger   providers.Logger
	engine   interfaces.EngineInterface
	registry realtime.RegistryInterface
}

func NewApp(
	router providers.RouterProviderInterface,
	engine interfaces.EngineInterface,
	registry realtime.RegistryInterface,
	conf *structures.Config,
	logger providers.Logger,
) *App {
	return &App{
		WebServer: &http.Server{
			Addr:              conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:           router.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		conf:     conf,
		logger:   logger,
		engine:   engine,
		registry: registry,
	}
}

// Run serves until ctx is cancelled, SIGINT/SIGTERM arrives or the listener fails.
// On the way out it closes the open poll, stops accepting connections and ends
// every websocket session.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Infof(providers.TypeApp, "Starting %s", a.conf.AppName)

	pollCtx, cancelPoll := context.WithCancel(context.Background())
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		a.engine.Run(pollCtx)
	}()
	stopPoll := func() {
		cancelPoll()
		<-pollDone
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Infof(providers.TypeApp, "Listening websocket clients on %s", a.WebServer.Addr)
		if err := a.WebServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		stopPoll()
		a.registry.Close()
		return fmt.Errorf("server error: %w", err)
	}

	stopPoll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := a.WebServer.Shutdown(shutdownCtx)
	// Hijacked websocket connections are not tracked by Shutdown.
	a.registry.Close()
	if err != nil {
		return err
	}

	a.logger.Infof(providers.TypeApp, "gracefully stopped")
	return nil
}
