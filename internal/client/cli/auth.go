package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/fanpulse/internal/client/client"
	"github.com/dmitrijs2005/fanpulse/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// readSecret prompts for a password and returns it as a string, wiping the
// raw bytes.
func (a *App) readSecret(prompt string) (string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer clear(pw)
	return string(pw), nil
}

// Register prompts for email, full name and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	fullName, err := getSimpleText(a.reader, "Enter full name (optional)", a.out)
	if err != nil {
		return err
	}
	password, err := a.readSecret("Enter password")
	if err != nil {
		return err
	}

	req := models.RegisterRequest{Email: email, Password: password, FullName: fullName}
	if err := a.authService.Register(ctx, req); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Account created. Check your email for a verification link, then type 'login'.")
	return nil
}

// Login prompts for credentials, stores the session and adopts the tier of
// the returned profile.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := a.readSecret("Enter password")
	if err != nil {
		return err
	}

	u, err := a.authService.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return errors.New("incorrect email or password")
		}
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s! Plan: %s\n", u.DisplayName(), a.resolver.CurrentPlan().Name)
	if !u.IsVerified {
		fmt.Fprintln(a.out, "Your email is not verified yet. Type 'resend' for a new link.")
	}
	return nil
}

// Logout forgets the local session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if err := a.authService.ForgotPassword(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "If that email is registered, a reset link is on its way. Use 'reset' with the token.")
	return nil
}

func (a *App) ResetPassword(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter reset token", a.out)
	if err != nil {
		return err
	}
	password, err := a.readSecret("Enter new password")
	if err != nil {
		return err
	}
	if err := a.authService.ResetPassword(ctx, token, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password updated. Type 'login' to sign in.")
	return nil
}

func (a *App) VerifyEmail(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter verification token", a.out)
	if err != nil {
		return err
	}
	if err := a.authService.VerifyEmail(ctx, token); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Email verified.")
	return nil
}

// ResendVerification uses the signed-in email when there is one.
func (a *App) ResendVerification(ctx context.Context) error {
	var email string
	if u := a.store.User(); u != nil {
		email = u.Email
	} else {
		var err error
		if email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
			return err
		}
	}
	if err := a.authService.ResendVerification(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Verification email sent.")
	return nil
}

// describe turns command errors into one line for the user.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case client.IsAPIStatus(err, http.StatusInternalServerError):
		return "server error, try again later"
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.Is(err, client.ErrUnauthorized):
		return "not authorized"
	default:
		return err.Error()
	}
}
