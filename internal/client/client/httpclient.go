package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/fanpulse/internal/client/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	RequestIDHeaderName = "X-Request-ID"

	pathMe                 = "/api/auth/me"
	pathLogin              = "/api/auth/login"
	pathRegister           = "/api/auth/register"
	pathForgotPassword     = "/api/auth/forgot-password"
	pathResetPassword      = "/api/auth/reset-password"
	pathVerifyEmail        = "/api/auth/verify-email"
	pathResendVerification = "/api/auth/resend-verification"
	pathHealth             = "/health"

	maxErrorBody = 64 << 10
)

// HTTPClient talks to the FanPulse backend over HTTP/JSON.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client. Its transport is used
// as is, without otelhttp wrapping.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) { h.http.Timeout = d }
}

func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) Me(ctx context.Context, token string) (*models.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathMe, nil, "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var user models.User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	if user.Email == "" {
		return nil, fmt.Errorf("%w: profile without email", ErrMalformedResponse)
	}
	return &user, nil
}

// Login posts the credentials form-encoded, as the backend's OAuth2
// password flow expects.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (*models.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, pathLogin,
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	var tok models.Token
	if err := c.do(req, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access_token", ErrMalformedResponse)
	}
	return &tok, nil
}

func (c *HTTPClient) Register(ctx context.Context, r models.RegisterRequest) error {
	return c.postJSON(ctx, pathRegister, r)
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) error {
	return c.postJSON(ctx, pathForgotPassword, models.EmailRequest{Email: email})
}

func (c *HTTPClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.postJSON(ctx, pathResetPassword, models.ResetPasswordRequest{Token: token, NewPassword: newPassword})
}

func (c *HTTPClient) VerifyEmail(ctx context.Context, token string) error {
	return c.postJSON(ctx, pathVerifyEmail, models.TokenRequest{Token: token})
}

func (c *HTTPClient) ResendVerification(ctx context.Context, email string) error {
	return c.postJSON(ctx, pathResendVerification, models.EmailRequest{Email: email})
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, pathHealth, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(b), "application/json")
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeaderName, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// do sends req and decodes a 2xx body into out (skipped when out is nil).
func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapTransportError(req.Context(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, req.Method, req.URL.Path, err)
	}
	return nil
}

func (c *HTTPClient) mapTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func mapStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	}

	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body models.ErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		apiErr.Detail = body.Detail
	} else {
		apiErr.Detail = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// IsAPIStatus reports whether err is an *APIError with the given status.
func IsAPIStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
