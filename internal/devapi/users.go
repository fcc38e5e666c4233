package devapi

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrTokenExpired = errors.New("one-time token invalid or expired")
)

// User is a stored account.
type User struct {
	ID           string
	Email        string
	FullName     string
	Tier         string
	Verified     bool
	PasswordHash []byte
	CreatedAt    time.Time
}

type tokenKind int

const (
	kindVerify tokenKind = iota
	kindReset
)

type oneTimeToken struct {
	kind      tokenKind
	userID    string
	expiresAt time.Time
}

const oneTimeTokenTTL = time.Hour

// Users is an in-memory account repository. Safe for concurrent use.
type Users struct {
	mu       sync.RWMutex
	byID     map[string]*User
	byEmail  map[string]string
	oneTime  map[string]oneTimeToken
	hashCost int
	now      func() time.Time
}

func NewUsers() *Users {
	return &Users{
		byID:     make(map[string]*User),
		byEmail:  make(map[string]string),
		oneTime:  make(map[string]oneTimeToken),
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Create stores a new unverified free-tier account.
func (r *Users) Create(email, password, fullName string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.hashCost)
	if err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, ErrEmailTaken
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		Tier:         "free",
		PasswordHash: hash,
		CreatedAt:    r.now().UTC(),
	}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return u.copy(), nil
}

// Authenticate returns the account when password matches.
func (r *Users) Authenticate(email, password string) (*User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[normalizeEmail(email)]
	var u *User
	if ok {
		u = r.byID[id].copy()
	}
	r.mu.RUnlock()

	if u == nil {
		return nil, ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (r *Users) ByID(id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.copy(), nil
}

func (r *Users) ByEmail(email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byID[id].copy(), nil
}

// SetTier changes the subscription tier of an account.
func (r *Users) SetTier(id, tier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Tier = tier
	return nil
}

// IssueVerifyToken returns a one-time email verification token for id.
func (r *Users) IssueVerifyToken(id string) (string, error) {
	return r.issue(id, kindVerify)
}

// IssueResetToken returns a one-time password reset token for id.
func (r *Users) IssueResetToken(id string) (string, error) {
	return r.issue(id, kindReset)
}

func (r *Users) issue(id string, kind tokenKind) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return "", ErrNotFound
	}
	tok := uuid.NewString()
	r.oneTime[tok] = oneTimeToken{kind: kind, userID: id, expiresAt: r.now().Add(oneTimeTokenTTL)}
	return tok, nil
}

// Verify consumes a verification token and marks the account verified.
func (r *Users) Verify(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.consumeLocked(token, kindVerify)
	if err != nil {
		return err
	}
	u.Verified = true
	return nil
}

// ResetPassword consumes a reset token and replaces the password.
func (r *Users) ResetPassword(token, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), r.hashCost)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.consumeLocked(token, kindReset)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (r *Users) consumeLocked(token string, kind tokenKind) (*User, error) {
	t, ok := r.oneTime[token]
	if !ok || t.kind != kind {
		return nil, ErrTokenExpired
	}
	delete(r.oneTime, token)
	if r.now().After(t.expiresAt) {
		return nil, ErrTokenExpired
	}
	u, ok := r.byID[t.userID]
	if !ok {
		return nil, ErrTokenExpired
	}
	return u, nil
}

func (u *User) copy() *User {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &c
}
