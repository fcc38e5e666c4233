// Package session owns "who is logged in" on the client: the persisted
// session store and the guard that verifies a stored credential against the
// backend before any protected command runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fanpulse/internal/client/models"
	"github.com/dmitrijs2005/fanpulse/internal/client/storage"
	"github.com/dmitrijs2005/fanpulse/internal/logging"
)

var (
	ErrNoCredential      = errors.New("no credential held")
	ErrCredentialChanged = errors.New("credential changed during verification")
)

// Phase tracks whether the store has read durable storage yet.
type Phase int

const (
	PhaseCold Phase = iota
	PhaseReady
)

func (p Phase) String() string {
	if p == PhaseReady {
		return "ready"
	}
	return "cold"
}

// Status is the derived session state.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusVerifying       Status = "verifying"
	StatusAuthenticated   Status = "authenticated"
)

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	Phase      Phase
	Credential string
	User       *models.User
	Loading    bool
}

// Status derives the session state. A profile is only ever attached after a
// successful verification, so credential plus profile means authenticated.
func (s Snapshot) Status() Status {
	switch {
	case s.Loading:
		return StatusVerifying
	case s.Credential != "" && s.User != nil:
		return StatusAuthenticated
	default:
		return StatusUnauthenticated
	}
}

// Store is the single writer of the credential and the user profile.
//
// Mutations are serialised and write-through: the durable copy of the
// credential is updated in the same call as the in-memory one. Subscribers
// are called synchronously, in mutation order, after each change; they must
// not mutate the store themselves.
type Store struct {
	storage storage.Storage
	log     logging.Logger

	writeMu sync.Mutex

	mu         sync.RWMutex
	phase      Phase
	credential string
	user       *models.User
	inFlight   int
	listeners  map[int]func(Snapshot)
	nextID     int
}

func NewStore(s storage.Storage, log logging.Logger) *Store {
	return &Store{
		storage:   s,
		log:       log.With("component", "session"),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Hydrate reads the persisted credential and moves the store to PhaseReady.
// It runs at most once successfully; later calls return nil immediately.
func (s *Store) Hydrate(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.Phase() == PhaseReady {
		return nil
	}

	token, _, err := s.storage.Get(ctx, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	s.mu.Lock()
	s.credential = token
	s.phase = PhaseReady
	s.mu.Unlock()

	s.log.Debug(ctx, "session store hydrated", "has_credential", token != "")
	s.notify()
	return nil
}

func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Credential returns the held credential. ok is false while the store is
// cold or when no credential is held.
func (s *Store) Credential() (token string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.phase != PhaseReady || s.credential == "" {
		return "", false
	}
	return s.credential, true
}

// User returns a copy of the profile, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Status() Status {
	return s.Snapshot().Status()
}

// SetCredential persists token and then holds it in memory. A different
// token drops the current profile, which belonged to the old credential.
// An empty token removes the credential. On a storage error nothing changes.
func (s *Store) SetCredential(ctx context.Context, token string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	if token == "" {
		err = s.storage.Delete(ctx, storage.KeyToken)
	} else {
		err = s.storage.Set(ctx, storage.KeyToken, token)
	}
	if err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}

	s.mu.Lock()
	if s.credential != token {
		s.user = nil
	}
	s.credential = token
	s.phase = PhaseReady
	s.mu.Unlock()

	s.notify()
	return nil
}

// SetUser replaces the profile without touching the credential. A profile
// without a credential is refused with ErrNoCredential.
func (s *Store) SetUser(u *models.User) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if u != nil && s.credential == "" {
		s.mu.Unlock()
		return ErrNoCredential
	}
	s.user = u.Clone()
	s.mu.Unlock()

	s.notify()
	return nil
}

// setVerifiedUser attaches u only if token is still the held credential.
func (s *Store) setVerifiedUser(token string, u *models.User) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	switch {
	case s.credential == "":
		s.mu.Unlock()
		return ErrNoCredential
	case s.credential != token:
		s.mu.Unlock()
		return ErrCredentialChanged
	}
	s.user = u.Clone()
	s.mu.Unlock()

	s.notify()
	return nil
}

// SetLoading marks the start (true) or end (false) of one verification.
// Verifications may overlap; the store reports loading until every started
// one has ended. Each true must be paired with exactly one false.
func (s *Store) SetLoading(loading bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	was := s.inFlight > 0
	switch {
	case loading:
		s.inFlight++
	case s.inFlight > 0:
		s.inFlight--
	}
	changed := was != (s.inFlight > 0)
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Logout forgets the credential and the profile. Memory is cleared first and
// unconditionally; the returned error only reports a failure to delete the
// durable copy. No network call is made.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.logoutLocked(ctx)
}

// revoke logs out only if token is still the held credential, so a failed
// verification of an old credential never tears down a newer login.
func (s *Store) revoke(ctx context.Context, token string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	held := s.credential
	s.mu.RUnlock()
	if held != "" && held != token {
		return ErrCredentialChanged
	}
	return s.logoutLocked(ctx)
}

func (s *Store) logoutLocked(ctx context.Context) error {
	s.mu.Lock()
	s.credential = ""
	s.user = nil
	s.phase = PhaseReady
	s.mu.Unlock()

	err := s.storage.Delete(ctx, storage.KeyToken)
	if err != nil {
		s.log.Error(ctx, "failed to delete persisted credential", "error", err)
		err = fmt.Errorf("delete credential: %w", err)
	}

	s.notify()
	return err
}

// Subscribe registers fn for every change. The returned func unregisters it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:      s.phase,
		Credential: s.credential,
		User:       s.user.Clone(),
		Loading:    s.inFlight > 0,
	}
}

// notify must be called with writeMu held and mu released.
func (s *Store) notify() {
	s.mu.RLock()
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the Store stored by NewContext, or nil.
func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(ctxKey{}).(*Store)
	return s
}
