package devapi

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/fanpulse/internal/client/client"
	"github.com/dmitrijs2005/fanpulse/internal/client/models"
	"github.com/dmitrijs2005/fanpulse/internal/client/services"
	"github.com/dmitrijs2005/fanpulse/internal/client/session"
	"github.com/dmitrijs2005/fanpulse/internal/client/storage"
	"github.com/dmitrijs2005/fanpulse/internal/client/subscription"
	"github.com/dmitrijs2005/fanpulse/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clientStack is the client side as the CLI wires it, on a fresh database.
type clientStack struct {
	db       storage.Storage
	store    *session.Store
	resolver *subscription.Resolver
	api      *client.HTTPClient
	auth     services.AuthService
	guard    *session.Guard
}

func newClientStack(t *testing.T, baseURL, dbPath string) *clientStack {
	t.Helper()
	ctx := context.Background()

	db, err := storage.OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	api, err := client.NewHTTPClient(baseURL, client.WithTimeout(5*time.Second))
	require.NoError(t, err)

	store := session.NewStore(db, logging.Nop())
	resolver := subscription.NewResolver(db, logging.Nop())
	require.NoError(t, store.Hydrate(ctx))
	require.NoError(t, resolver.Hydrate(ctx))

	return &clientStack{
		db:       db,
		store:    store,
		resolver: resolver,
		api:      api,
		auth:     services.NewAuthService(api, store, resolver, logging.Nop()),
		guard:    session.NewGuard(store, api, nil, logging.Nop()),
	}
}

func TestEndToEnd_LoginThenProtectedCommand(t *testing.T) {
	s, ts := newTestServer(t)
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "fanpulse.db")

	u, err := s.Users().Create("ana@label.fm", "password1", "Ana")
	require.NoError(t, err)
	require.NoError(t, s.Users().SetTier(u.ID, "pro"))

	c := newClientStack(t, ts.URL, dbPath)

	err = c.guard.Protect(ctx, func(context.Context, *models.User) error {
		t.Fatal("no session yet")
		return nil
	})
	require.ErrorIs(t, err, session.ErrRedirected)

	_, err = c.auth.Login(ctx, "ana@label.fm", "password1")
	require.NoError(t, err)
	assert.Equal(t, subscription.TierPro, c.resolver.Tier())
	assert.True(t, c.resolver.HasFeature(subscription.FeatureAITools))
	assert.False(t, c.resolver.HasFeature(subscription.FeatureWhiteLabel))

	runs := 0
	err = c.guard.Protect(ctx, func(_ context.Context, me *models.User) error {
		runs++
		assert.Equal(t, "Ana", me.FullName)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestEndToEnd_SessionSurvivesRestart(t *testing.T) {
	s, ts := newTestServer(t)
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "fanpulse.db")

	_, err := s.Users().Create("ana@label.fm", "password1", "")
	require.NoError(t, err)

	first := newClientStack(t, ts.URL, dbPath)
	_, err = first.auth.Login(ctx, "ana@label.fm", "password1")
	require.NoError(t, err)
	require.NoError(t, first.db.Close())

	second := newClientStack(t, ts.URL, dbPath)
	tok, ok := second.store.Credential()
	require.True(t, ok)
	exp, ok := session.CredentialExpiry(tok)
	require.True(t, ok)
	assert.True(t, exp.After(time.Now()))

	var got *models.User
	require.NoError(t, second.guard.Protect(ctx, func(_ context.Context, me *models.User) error {
		got = me
		return nil
	}))
	assert.Equal(t, "ana@label.fm", got.Email)
}

func TestEndToEnd_RejectedCredentialIsCleared(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "fanpulse.db")

	c := newClientStack(t, ts.URL, dbPath)
	require.NoError(t, c.store.SetCredential(ctx, "forged-token"))

	err := c.guard.Protect(ctx, func(context.Context, *models.User) error {
		t.Fatal("forged credential must not pass")
		return nil
	})
	require.ErrorIs(t, err, session.ErrRedirected)

	_, ok := c.store.Credential()
	assert.False(t, ok)
	_, persisted, err := c.db.Get(ctx, storage.KeyToken)
	require.NoError(t, err)
	assert.False(t, persisted)
}

func TestEndToEnd_BackendDown(t *testing.T) {
	s, ts := newTestServer(t)
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "fanpulse.db")

	_, err := s.Users().Create("ana@label.fm", "password1", "")
	require.NoError(t, err)

	c := newClientStack(t, ts.URL, dbPath)
	_, err = c.auth.Login(ctx, "ana@label.fm", "password1")
	require.NoError(t, err)
	require.NoError(t, c.auth.Ping(ctx))

	ts.Close()
	require.ErrorIs(t, c.auth.Ping(ctx), client.ErrUnavailable)

	err = c.guard.Protect(ctx, func(context.Context, *models.User) error {
		t.Fatal("unverifiable session must not pass")
		return nil
	})
	require.ErrorIs(t, err, session.ErrRedirected)
	_, ok := c.store.Credential()
	assert.False(t, ok)
}
