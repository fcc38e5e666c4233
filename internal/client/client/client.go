package client

import (
	"context"

	"github.com/dmitrijs2005/fanpulse/internal/client/models"
)

type Client interface {
	// Me resolves the profile behind a bearer credential.
	Me(ctx context.Context, token string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.Token, error)
	Register(ctx context.Context, req models.RegisterRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Ping(ctx context.Context) error
}
