package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/fanpulse/internal/client/client"
	"github.com/dmitrijs2005/fanpulse/internal/client/config"
	"github.com/dmitrijs2005/fanpulse/internal/client/services"
	"github.com/dmitrijs2005/fanpulse/internal/client/session"
	"github.com/dmitrijs2005/fanpulse/internal/client/storage"
	"github.com/dmitrijs2005/fanpulse/internal/client/subscription"
	"github.com/dmitrijs2005/fanpulse/internal/logging"
	"github.com/dmitrijs2005/fanpulse/internal/telemetry"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const pingTimeout = 3 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          storage.Storage
	store       *session.Store
	resolver    *subscription.Resolver
	guard       *session.Guard
	authService services.AuthService
	reader      *bufio.Reader
	out         io.Writer
	unwatch     []func()

	modeMu sync.RWMutex
	mode   Mode
}

// NewApp opens local storage and the API client named by c.
func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, level)

	db, err := storage.OpenSQLite(ctx, c.StoragePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewHTTPClient(c.APIBaseURL, client.WithTimeout(c.RequestTimeout))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newApp(c, db, apiClient, logger, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, db storage.Storage, api client.Client, logger logging.Logger, in io.Reader, out io.Writer) *App {
	store := session.NewStore(db, logger)
	resolver := subscription.NewResolver(db, logger)

	a := &App{
		config:      c,
		logger:      logger,
		db:          db,
		store:       store,
		resolver:    resolver,
		authService: services.NewAuthService(api, store, resolver, logger),
		reader:      bufio.NewReader(in),
		out:         out,
	}
	a.guard = session.NewGuard(store, api, consolePresenter{w: out}, logger,
		session.WithVerifyTimeout(c.RequestTimeout))
	a.watchChanges()
	return a
}

// watchChanges logs every session status and plan transition. The callbacks
// run inside store and resolver writes and must only log.
func (a *App) watchChanges() {
	ctx := context.Background()

	last := a.store.Status()
	a.unwatch = append(a.unwatch, a.store.Subscribe(func(snap session.Snapshot) {
		if st := snap.Status(); st != last {
			last = st
			a.logger.Info(ctx, "session status changed", "status", st)
		}
	}))
	a.unwatch = append(a.unwatch, a.resolver.Subscribe(func(t subscription.Tier) {
		a.logger.Info(ctx, "plan changed", "tier", t)
	}))
}

// boot hydrates the session store and the resolver and returns ctx carrying
// both, so commands can reach them without holding the App.
func (a *App) boot(ctx context.Context) (context.Context, error) {
	if err := a.store.Hydrate(ctx); err != nil {
		return ctx, fmt.Errorf("hydrate session: %w", err)
	}
	if err := a.resolver.Hydrate(ctx); err != nil {
		return ctx, fmt.Errorf("hydrate subscription: %w", err)
	}
	ctx = session.NewContext(ctx, a.store)
	ctx = subscription.NewContext(ctx, a.resolver)
	return ctx, nil
}

// Run boots the client, starts the connectivity watcher and blocks in the
// REPL until the user exits.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		for _, unwatch := range a.unwatch {
			unwatch()
		}
		if err := a.db.Close(); err != nil {
			a.logger.Error(ctx, "close database", "error", err)
		}
	}()

	shutdown := telemetry.Setup(ctx, "fanpulse-cli", a.logger)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		_ = shutdown(sctx)
	}()

	ctx, err := a.boot(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	fmt.Fprintln(a.out, "Welcome to FanPulse CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
	return nil
}

func (a *App) Mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "switched mode", "mode", mode)
	}
}

// isLoggedIn reports whether a credential is held. It may still be rejected
// when a protected command verifies it.
func (a *App) isLoggedIn() bool {
	_, ok := a.store.Credential()
	return ok
}

func (a *App) getStatus() string {
	s := ""
	if u := a.store.User(); u != nil {
		s = u.Email + " "
	}
	s += string(a.resolver.Tier())
	if m := a.Mode(); m != "" {
		s += " " + string(m)
	}
	return fmt.Sprintf("(%s)", s)
}

// StartOnlineStatusWatcher pings the backend every interval and flips the
// mode between online and offline until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.authService.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
}

// consolePresenter is what protected commands show instead of their output.
type consolePresenter struct {
	w io.Writer
}

func (p consolePresenter) ShowLoading() {
	fmt.Fprintln(p.w, "Verifying session...")
}

func (p consolePresenter) RedirectToLogin() {
	fmt.Fprintln(p.w, "You are not logged in. Type 'login' to continue.")
}
