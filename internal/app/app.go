package app

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/core"
	transporthttp "github.com/vovakirdan/roomrelay/internal/transport/http"
	"github.com/vovakirdan/roomrelay/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	hub             *core.Hub
	tcp             *tcp.Server
	http            *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger

	mu        sync.Mutex
	httpLn    net.Listener
	httpReady chan struct{}
	readyOnce sync.Once
}

// New constructs the application with provided configuration. The HTTP
// frontend is only built when cfg.HTTPAddr is set.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	hubLogger := logger.With().Str("component", "hub").Logger()
	hub := core.NewHub(&hubLogger)

	a := &App{
		hub:             hub,
		tcp:             tcp.NewServer(hub, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
		httpReady:       make(chan struct{}),
	}
	if cfg.HTTPAddr != "" {
		a.http = transporthttp.NewServer(hub, cfg, logger)
	}
	return a
}

// Hub exposes the registry, mainly for tests.
func (a *App) Hub() *core.Hub {
	return a.hub
}

// TCP returns the TCP frontend.
func (a *App) TCP() *tcp.Server {
	return a.tcp
}

// HTTPAddr returns the bound HTTP address once Run is listening. It is nil
// when the HTTP frontend is disabled or failed to listen.
func (a *App) HTTPAddr() net.Addr {
	if a.http == nil {
		return nil
	}
	<-a.httpReady
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpLn == nil {
		return nil
	}
	return a.httpLn.Addr()
}

// Run starts the hub and every frontend and blocks until ctx is cancelled or
// one of them fails. A failing frontend stops the others.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		return a.tcp.ListenAndServe(ctx)
	})

	if a.http != nil {
		// Upgraded WebSocket connections are not tracked by Shutdown; tie
		// their request contexts to the group instead.
		a.http.BaseContext = func(net.Listener) context.Context { return ctx }

		g.Go(func() error {
			var lc net.ListenConfig
			ln, err := lc.Listen(ctx, "tcp", a.http.Addr)
			if err != nil {
				a.readyOnce.Do(func() { close(a.httpReady) })
				return err
			}
			a.mu.Lock()
			a.httpLn = ln
			a.mu.Unlock()
			a.readyOnce.Do(func() { close(a.httpReady) })

			a.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
			if err := a.http.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
			defer cancel()

			a.log.Info().Msg("shutting down http server")
			if err := a.http.Shutdown(shutdownCtx); err != nil {
				a.log.Warn().Err(err).Msg("http shutdown")
				return a.http.Close()
			}
			return nil
		})
	}

	return g.Wait()
}
