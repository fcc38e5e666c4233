package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/fanpulse/internal/client/client"
	"github.com/dmitrijs2005/fanpulse/internal/client/models"
	"github.com/dmitrijs2005/fanpulse/internal/client/session"
	"github.com/dmitrijs2005/fanpulse/internal/client/storage"
	"github.com/dmitrijs2005/fanpulse/internal/client/subscription"
	"github.com/dmitrijs2005/fanpulse/internal/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake client ----

type fakeClient struct {
	LoginRet *models.Token
	LoginErr error
	MeRet    *models.User
	MeErr    error
	PingErr  error
	CallErr  error
	OnMe     func()

	LastLoginUser string
	LastLoginPass string
	LastMeToken   string
	LastRegister  models.RegisterRequest
	LastEmail     string
	LastToken     string
	LastPassword  string
	Calls         []string
}

func (f *fakeClient) Me(_ context.Context, token string) (*models.User, error) {
	f.Calls = append(f.Calls, "me")
	f.LastMeToken = token
	if f.OnMe != nil {
		f.OnMe()
	}
	return f.MeRet, f.MeErr
}

func (f *fakeClient) Login(_ context.Context, username, password string) (*models.Token, error) {
	f.Calls = append(f.Calls, "login")
	f.LastLoginUser, f.LastLoginPass = username, password
	return f.LoginRet, f.LoginErr
}

func (f *fakeClient) Register(_ context.Context, req models.RegisterRequest) error {
	f.Calls = append(f.Calls, "register")
	f.LastRegister = req
	return f.CallErr
}

func (f *fakeClient) ForgotPassword(_ context.Context, email string) error {
	f.Calls = append(f.Calls, "forgot")
	f.LastEmail = email
	return f.CallErr
}

func (f *fakeClient) ResetPassword(_ context.Context, token, newPassword string) error {
	f.Calls = append(f.Calls, "reset")
	f.LastToken, f.LastPassword = token, newPassword
	return f.CallErr
}

func (f *fakeClient) VerifyEmail(_ context.Context, token string) error {
	f.Calls = append(f.Calls, "verify")
	f.LastToken = token
	return f.CallErr
}

func (f *fakeClient) ResendVerification(_ context.Context, email string) error {
	f.Calls = append(f.Calls, "resend")
	f.LastEmail = email
	return f.CallErr
}

func (f *fakeClient) Ping(context.Context) error {
	f.Calls = append(f.Calls, "ping")
	return f.PingErr
}

// ---- helpers ----

// ctxStorage refuses every call whose ctx is already done, like SQLite does.
type ctxStorage struct {
	*storage.Memory
}

func (s ctxStorage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Memory.Set(ctx, key, value)
}

func (s ctxStorage) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Memory.Delete(ctx, keys...)
}

type fixture struct {
	mem      *storage.Memory
	store    *session.Store
	resolver *subscription.Resolver
	client   *fakeClient
	svc      AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storage.NewMemory()
	store := session.NewStore(mem, logging.Nop())
	resolver := subscription.NewResolver(mem, logging.Nop())
	require.NoError(t, store.Hydrate(context.Background()))
	require.NoError(t, resolver.Hydrate(context.Background()))

	fc := &fakeClient{}
	return &fixture{
		mem:      mem,
		store:    store,
		resolver: resolver,
		client:   fc,
		svc:      NewAuthService(fc, store, resolver, logging.Nop()),
	}
}

// ---- tests ----

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.client.LoginRet = &models.Token{AccessToken: "jwt-1", TokenType: "bearer"}
	f.client.MeRet = &models.User{ID: "u1", Email: "ana@label.fm", SubscriptionTier: "enterprise"}

	u, err := f.svc.Login(context.Background(), "  Ana@Label.fm ", "secret")
	require.NoError(t, err)

	assert.Equal(t, "ana@label.fm", f.client.LastLoginUser)
	assert.Equal(t, "secret", f.client.LastLoginPass)
	assert.Equal(t, "jwt-1", f.client.LastMeToken)
	assert.Equal(t, []string{"login", "me"}, f.client.Calls)
	assert.Empty(t, cmp.Diff(f.client.MeRet, u))

	tok, ok := f.store.Credential()
	require.True(t, ok)
	assert.Equal(t, "jwt-1", tok)
	assert.Equal(t, session.StatusAuthenticated, f.store.Status())
	assert.Equal(t, subscription.TierEnterprise, f.resolver.Tier())

	persisted, ok, err := f.mem.Get(context.Background(), storage.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "jwt-1", persisted)
}

func TestLogin_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), "   ", "pw")
	require.ErrorIs(t, err, ErrEmptyCredentials)
	_, err = f.svc.Login(context.Background(), "a@b.c", "")
	require.ErrorIs(t, err, ErrEmptyCredentials)
	assert.Empty(t, f.client.Calls)
}

func TestLogin_Rejected(t *testing.T) {
	f := newFixture(t)
	f.client.LoginErr = client.ErrUnauthorized

	_, err := f.svc.Login(context.Background(), "a@b.c", "bad")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Contains(t, err.Error(), "login error")
	_, ok := f.store.Credential()
	assert.False(t, ok)
}

func TestLogin_EmptyToken(t *testing.T) {
	f := newFixture(t)
	f.client.LoginRet = &models.Token{}

	_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
	require.ErrorIs(t, err, client.ErrMalformedResponse)
	assert.Equal(t, []string{"login"}, f.client.Calls)
}

func TestLogin_ProfileFailureDiscardsCredential(t *testing.T) {
	f := newFixture(t)
	f.client.LoginRet = &models.Token{AccessToken: "jwt-1"}
	f.client.MeErr = client.ErrUnavailable

	_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
	require.ErrorIs(t, err, client.ErrUnavailable)

	_, ok := f.store.Credential()
	assert.False(t, ok)
	_, ok, err = f.mem.Get(context.Background(), storage.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogin_CancelledProfileLoadStillRemovesStoredCredential(t *testing.T) {
	mem := storage.NewMemory()
	store := session.NewStore(ctxStorage{mem}, logging.Nop())
	resolver := subscription.NewResolver(mem, logging.Nop())
	require.NoError(t, store.Hydrate(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fc := &fakeClient{
		LoginRet: &models.Token{AccessToken: "jwt-1"},
		MeErr:    context.Canceled,
		OnMe:     cancel,
	}
	svc := NewAuthService(fc, store, resolver, logging.Nop())

	_, err := svc.Login(ctx, "a@b.c", "pw")
	require.ErrorIs(t, err, context.Canceled)

	_, ok := store.Credential()
	assert.False(t, ok)
	_, ok, err = mem.Get(context.Background(), storage.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok, "a failed login must not resume on the next start")
}

func TestLogin_UnknownTierKeepsCurrent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.resolver.SetTier(context.Background(), "pro"))
	f.client.LoginRet = &models.Token{AccessToken: "jwt-1"}
	f.client.MeRet = &models.User{ID: "u1", Email: "a@b.c", SubscriptionTier: "platinum"}

	_, err := f.svc.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, subscription.TierPro, f.resolver.Tier())
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetCredential(context.Background(), "jwt-1"))

	require.NoError(t, f.svc.Logout(context.Background()))
	_, ok := f.store.Credential()
	assert.False(t, ok)
	assert.Empty(t, f.client.Calls, "logout is local only")
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Register(context.Background(), models.RegisterRequest{Email: " Ana@Label.FM", Password: "pw", FullName: " Ana "})
	require.NoError(t, err)
	assert.Equal(t, models.RegisterRequest{Email: "ana@label.fm", Password: "pw", FullName: "Ana"}, f.client.LastRegister)

	require.ErrorIs(t, f.svc.Register(context.Background(), models.RegisterRequest{Password: "pw"}), models.ErrEmptyEmail)
	require.ErrorIs(t, f.svc.Register(context.Background(), models.RegisterRequest{Email: "a@b.c"}), ErrEmptyCredentials)

	f.client.CallErr = &client.APIError{Status: 400, Detail: "Email already registered"}
	err = f.svc.Register(context.Background(), models.RegisterRequest{Email: "a@b.c", Password: "pw"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Email already registered", apiErr.Detail)
}

func TestAccountLifecycleCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.ForgotPassword(ctx, " A@B.c "))
	assert.Equal(t, "a@b.c", f.client.LastEmail)

	require.NoError(t, f.svc.ResendVerification(ctx, "X@Y.z"))
	assert.Equal(t, "x@y.z", f.client.LastEmail)

	require.NoError(t, f.svc.VerifyEmail(ctx, " tok "))
	assert.Equal(t, "tok", f.client.LastToken)

	require.NoError(t, f.svc.ResetPassword(ctx, "rt", "new-pw"))
	assert.Equal(t, "rt", f.client.LastToken)
	assert.Equal(t, "new-pw", f.client.LastPassword)

	assert.Equal(t, []string{"forgot", "resend", "verify", "reset"}, f.client.Calls)
}

func TestAccountLifecycleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.ForgotPassword(ctx, ""), models.ErrEmptyEmail)
	require.ErrorIs(t, f.svc.ResendVerification(ctx, " "), models.ErrEmptyEmail)
	require.ErrorIs(t, f.svc.VerifyEmail(ctx, ""), ErrEmptyToken)
	require.ErrorIs(t, f.svc.ResetPassword(ctx, "", "pw"), ErrEmptyToken)
	require.ErrorIs(t, f.svc.ResetPassword(ctx, "t", ""), ErrEmptyCredentials)
	assert.Empty(t, f.client.Calls)
}

func TestPing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Ping(context.Background()))

	f.client.PingErr = client.ErrUnavailable
	require.True(t, errors.Is(f.svc.Ping(context.Background()), client.ErrUnavailable))
}
