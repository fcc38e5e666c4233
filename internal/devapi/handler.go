package devapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/fanpulse/internal/client/models"
	"github.com/dmitrijs2005/fanpulse/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const minPasswordLen = 8

// Server serves the auth endpoints.
type Server struct {
	users  *Users
	tokens *TokenManager
	log    logging.Logger
}

func NewServer(users *Users, tokens *TokenManager, log logging.Logger) *Server {
	return &Server{users: users, tokens: tokens, log: log.With("component", "devapi")}
}

func (s *Server) Users() *Users { return s.users }

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.Post("/reset-password", s.handleResetPassword)
		r.Post("/verify-email", s.handleVerifyEmail)
		r.Post("/resend-verification", s.handleResendVerification)

		r.With(s.requireBearer).Get("/me", s.handleMe)
	})
	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if strings.TrimSpace(email) == "" || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	u, err := s.users.Authenticate(email, password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	tok, _, err := s.tokens.Issue(u)
	if err != nil {
		s.log.Error(r.Context(), "issue token", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, models.Token{AccessToken: tok, TokenType: "bearer"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Normalize(); err != nil || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusUnprocessableEntity, "A valid email is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusUnprocessableEntity, "Password must be at least 8 characters")
		return
	}

	u, err := s.users.Create(req.Email, req.Password, req.FullName)
	if errors.Is(err, ErrEmailTaken) {
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		s.log.Error(r.Context(), "create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.sendVerification(r.Context(), u)
	writeJSON(w, http.StatusCreated, toProfile(u))
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if u, err := s.users.ByEmail(req.Email); err == nil {
		if tok, err := s.users.IssueResetToken(u.ID); err == nil {
			s.log.Info(r.Context(), "password reset token issued", "email", u.Email, "token", tok)
		}
	}
	writeJSON(w, http.StatusOK, models.Message{Message: "If that email is registered, a reset link has been sent"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		writeError(w, http.StatusUnprocessableEntity, "Password must be at least 8 characters")
		return
	}
	if err := s.users.ResetPassword(req.Token, req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, models.Message{Message: "Password has been reset"})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.users.Verify(req.Token); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, models.Message{Message: "Email verified"})
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if u, err := s.users.ByEmail(req.Email); err == nil && !u.Verified {
		s.sendVerification(r.Context(), u)
	}
	writeJSON(w, http.StatusOK, models.Message{Message: "If that email needs verification, a link has been sent"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	u, err := s.users.ByID(claims.Subject)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, toProfile(u))
}

func (s *Server) sendVerification(ctx context.Context, u *User) {
	tok, err := s.users.IssueVerifyToken(u.ID)
	if err != nil {
		s.log.Error(ctx, "issue verification token", "error", err)
		return
	}
	s.log.Info(ctx, "verification token issued", "email", u.Email, "token", tok)
}

type ctxKey struct{}

// requireBearer rejects requests without a valid access token and stores its
// claims in the request context.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

func claimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(ctxKey{}).(*Claims)
	if c == nil {
		return &Claims{}
	}
	return c
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func toProfile(u *User) models.User {
	return models.User{
		ID:               u.ID,
		Email:            u.Email,
		FullName:         u.FullName,
		SubscriptionTier: u.Tier,
		IsVerified:       u.Verified,
		CreatedAt:        u.CreatedAt,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON payload")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, models.ErrorBody{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
