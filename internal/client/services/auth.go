// Package services contains application services for the FanPulse client.
// This file defines the authentication service: login and logout against the
// session store, account lifecycle calls, and the liveness check.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fanpulse/internal/client/client"
	"github.com/dmitrijs2005/fanpulse/internal/client/models"
	"github.com/dmitrijs2005/fanpulse/internal/client/session"
	"github.com/dmitrijs2005/fanpulse/internal/client/subscription"
	"github.com/dmitrijs2005/fanpulse/internal/logging"
)

var (
	ErrEmptyCredentials = errors.New("email and password are required")
	ErrEmptyToken       = errors.New("token is required")
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: exchange email/password for a credential, persist it, and load
//     the profile it belongs to.
//   - Logout: forget the credential locally. The backend is not told.
//   - Register, ForgotPassword, ResetPassword, VerifyEmail,
//     ResendVerification: account lifecycle calls proxied to the backend.
//   - Ping: check backend liveness.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, req models.RegisterRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Ping(ctx context.Context) error
}

type authService struct {
	client   client.Client
	store    *session.Store
	resolver *subscription.Resolver
	log      logging.Logger
}

// NewAuthService constructs an AuthService bound to the API client, the
// session store, and the entitlement resolver.
func NewAuthService(c client.Client, store *session.Store, resolver *subscription.Resolver, log logging.Logger) AuthService {
	return &authService{
		client:   c,
		store:    store,
		resolver: resolver,
		log:      log.With("component", "auth"),
	}
}

// Login authenticates, persists the returned credential, then fetches the
// profile for it. If the profile cannot be loaded the fresh credential is
// discarded again so no unverified session is left behind.
func (a *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	tok, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("login error: %w", client.ErrMalformedResponse)
	}

	if err := a.store.SetCredential(ctx, tok.AccessToken); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	user, err := a.client.Me(ctx, tok.AccessToken)
	if err == nil && user == nil {
		err = client.ErrMalformedResponse
	}
	if err != nil {
		// The caller's ctx is often what failed; the teardown must still reach storage.
		if lerr := a.store.Logout(context.WithoutCancel(ctx)); lerr != nil {
			a.log.Error(ctx, "discard credential after failed profile load", "error", lerr)
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if err := a.store.SetUser(user); err != nil {
		return nil, fmt.Errorf("attach profile: %w", err)
	}
	if err := a.resolver.SyncFromProfile(ctx, user); err != nil {
		a.log.Warn(ctx, "could not adopt profile tier", "error", err)
	}

	a.log.Info(ctx, "logged in", "email", user.Email)
	return user, nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.store.Logout(ctx); err != nil {
		return fmt.Errorf("logout error: %w", err)
	}
	a.log.Info(ctx, "logged out")
	return nil
}

func (a *authService) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := req.Normalize(); err != nil {
		return err
	}
	if req.Password == "" {
		return ErrEmptyCredentials
	}
	if err := a.client.Register(ctx, req); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return nil
}

func (a *authService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.ErrEmptyEmail
	}
	return a.client.ForgotPassword(ctx, email)
}

func (a *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if newPassword == "" {
		return ErrEmptyCredentials
	}
	return a.client.ResetPassword(ctx, token, newPassword)
}

func (a *authService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	return a.client.VerifyEmail(ctx, token)
}

func (a *authService) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.ErrEmptyEmail
	}
	return a.client.ResendVerification(ctx, email)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
