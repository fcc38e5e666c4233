package devapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/fanpulse/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// App runs the devapi HTTP server until the context ends or a termination
// signal arrives.
type App struct {
	config *Config
	logger logging.Logger
	server *Server
}

func NewApp(c *Config, logger logging.Logger) *App {
	users := NewUsers()
	tokens := NewTokenManager(c.JWTSecret, c.TokenTTL)
	return &App{config: c, logger: logger, server: NewServer(users, tokens, logger)}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run listens on the configured address and blocks until shutdown.
func (app *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.config.Addr)
	if err != nil {
		return err
	}
	return app.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (app *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Handler:           app.server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	app.logger.Info(ctx, "Starting devapi...", "addr", ln.Addr().String())

	var (
		wg       sync.WaitGroup
		serveErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown", "error", err)
	}
	wg.Wait()

	app.logger.Info(shutdownCtx, "devapi stopped")
	return serveErr
}
