package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

type namedServer struct {
	name string
	*http.Server
}

func (a *App) servers() []namedServer {
	return []namedServer{
		{name: "http", Server: a.httpServer},
		{name: "sse", Server: a.sseServer},
	}
}

// Start runs both servers and returns a channel that is closed on SIGINT,
// SIGTERM or SIGHUP. A server that fails to listen ends the process.
func (a *App) Start() <-chan struct{} {
	for _, s := range a.servers() {
		go func() {
			slog.Info("server listening", "name", s.name, "address", s.Addr)
			if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				fatal("server stopped unexpectedly", err, "name", s.name)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		<-ctx.Done()
		slog.Info("termination signal received", "cause", context.Cause(ctx))

		a.cancel()
		close(done)
	}()

	return done
}

// Serve runs only the API server on l.
func (a *App) Serve(l net.Listener) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		errc <- a.httpServer.Serve(l)
	}()
	return errc
}

// Stop drains the servers, waits for background publishes and then runs the
// closers in registration order. Token streams end through the SSE server's
// shutdown hook.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	for _, s := range a.servers() {
		if err := s.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to shutdown server", "name", s.name, "error", err)
		}
	}

	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background tasks ended with error", "error", err)
	}

	for _, c := range a.closers {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application stopped")
}
