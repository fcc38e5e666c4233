package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/fanpulse/internal/client/models"
	"github.com/dmitrijs2005/fanpulse/internal/logging"
)

var (
	// ErrRedirected is returned by Render when the user was sent to login.
	ErrRedirected = errors.New("not authenticated: redirected to login")
	// ErrUnmounted is returned by Render on a mount that was already torn down.
	ErrUnmounted = errors.New("guard unmounted")
)

// State is the verifier state of one mount.
type State int

const (
	StateVerifying State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "verifying"
	}
}

// Identity resolves a credential to a profile ("who am I").
type Identity interface {
	Me(ctx context.Context, token string) (*models.User, error)
}

// Presenter is what the guard shows instead of protected content.
type Presenter interface {
	ShowLoading()
	RedirectToLogin()
}

type nopPresenter struct{}

func (nopPresenter) ShowLoading()     {}
func (nopPresenter) RedirectToLogin() {}

// Guard gates protected content on a verified session.
type Guard struct {
	store     *Store
	identity  Identity
	presenter Presenter
	log       logging.Logger
	timeout   time.Duration
}

type GuardOption func(*Guard)

// WithVerifyTimeout bounds the identity call. A timeout counts as a failed
// verification. Zero (the default) waits for as long as the mount lives.
func WithVerifyTimeout(d time.Duration) GuardOption {
	return func(g *Guard) { g.timeout = d }
}

func NewGuard(store *Store, identity Identity, presenter Presenter, log logging.Logger, opts ...GuardOption) *Guard {
	if presenter == nil {
		presenter = nopPresenter{}
	}
	g := &Guard{
		store:     store,
		identity:  identity,
		presenter: presenter,
		log:       log.With("component", "guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount starts a new mount lifetime. Verification happens on the first
// Render and never again for this mount.
func (g *Guard) Mount() *Mount {
	return &Mount{guard: g, state: StateVerifying}
}

// Protect verifies the session on a fresh mount and runs child only when it
// is authenticated.
func (g *Guard) Protect(ctx context.Context, child func(ctx context.Context, u *models.User) error) error {
	m := g.Mount()
	defer m.Unmount()
	return m.Render(ctx, child)
}

// Mount is one mount of the guard.
type Mount struct {
	guard *Guard
	once  sync.Once

	mu        sync.Mutex
	state     State
	user      *models.User
	err       error
	cancel    context.CancelFunc
	unmounted bool
}

func (m *Mount) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Unmount aborts an in-flight verification; its result is discarded.
func (m *Mount) Unmount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmounted = true
	if m.cancel != nil {
		m.cancel()
	}
}

// Render runs child with the verified profile when the session is
// authenticated and returns child's error. Nothing but the presenter's
// loading indicator is shown while verifying. When the session cannot be
// verified the presenter redirects and ErrRedirected is returned. If ctx is
// cancelled or the mount is unmounted mid-verification, ctx's error (or
// ErrUnmounted) is returned and the store is left as it was.
func (m *Mount) Render(ctx context.Context, child func(ctx context.Context, u *models.User) error) error {
	m.once.Do(func() { m.verify(ctx) })

	m.mu.Lock()
	state, user, err := m.state, m.user.Clone(), m.err
	m.mu.Unlock()

	switch state {
	case StateAuthenticated:
		return child(ctx, user)
	case StateUnauthenticated:
		return ErrRedirected
	default:
		return err
	}
}

func (m *Mount) verify(parent context.Context) {
	g := m.guard

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	m.mu.Lock()
	if m.unmounted {
		m.err = ErrUnmounted
		m.mu.Unlock()
		return
	}
	m.cancel = cancel
	m.mu.Unlock()

	if err := g.store.Hydrate(ctx); err != nil {
		g.log.Error(ctx, "cannot read persisted credential", "error", err)
	}

	token, ok := g.store.Credential()
	if !ok {
		g.log.Debug(ctx, "no credential, redirecting to login")
		m.deny()
		return
	}

	g.store.SetLoading(true)
	defer g.store.SetLoading(false)
	g.presenter.ShowLoading()

	callCtx := ctx
	if g.timeout > 0 {
		var cancelCall context.CancelFunc
		callCtx, cancelCall = context.WithTimeout(ctx, g.timeout)
		defer cancelCall()
	}

	user, err := g.identity.Me(callCtx, token)

	if ctx.Err() != nil {
		m.discard(ctx.Err())
		g.log.Debug(ctx, "verification abandoned", "reason", ctx.Err())
		return
	}

	if err == nil && user == nil {
		err = errors.New("identity returned no profile")
	}
	if err != nil {
		g.log.Info(ctx, "session verification failed", "error", err)
		if revokeErr := g.store.revoke(ctx, token); errors.Is(revokeErr, ErrCredentialChanged) {
			m.discard(revokeErr)
			return
		} else if revokeErr != nil {
			g.log.Error(ctx, "logout after failed verification", "error", revokeErr)
		}
		m.deny()
		return
	}

	if err := g.store.setVerifiedUser(token, user); err != nil {
		m.discard(err)
		g.log.Info(ctx, "verification result dropped", "reason", err)
		return
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.user = user.Clone()
	m.mu.Unlock()
	g.log.Debug(ctx, "session verified", "email", user.Email)
}

func (m *Mount) deny() {
	m.mu.Lock()
	m.state = StateUnauthenticated
	m.mu.Unlock()
	m.guard.presenter.RedirectToLogin()
}

func (m *Mount) discard(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unmounted && errors.Is(err, context.Canceled) {
		err = ErrUnmounted
	}
	m.err = err
}
