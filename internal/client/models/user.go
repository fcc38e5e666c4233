// Package models defines the payloads exchanged with the FanPulse backend.
package models

import (
	"errors"
	"strings"
	"time"
)

var ErrEmptyEmail = errors.New("email must not be empty")

// User is the profile returned by GET /api/auth/me.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name,omitempty"`
	SubscriptionTier string    `json:"subscription_tier"`
	IsVerified       bool      `json:"is_verified"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}

// Clone returns a copy that callers may keep or mutate freely.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// DisplayName is the full name when known, the email otherwise.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Email
}

// Token is the body of a successful POST /api/auth/login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// Normalize trims whitespace and lower-cases the email.
func (r *RegisterRequest) Normalize() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	if r.Email == "" {
		return ErrEmptyEmail
	}
	return nil
}

type EmailRequest struct {
	Email string `json:"email"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Message is the generic {"message": "..."} acknowledgement body.
type Message struct {
	Message string `json:"message"`
}

// ErrorBody is the error shape returned by the backend: {"detail": "..."}.
type ErrorBody struct {
	Detail string `json:"detail"`
}
