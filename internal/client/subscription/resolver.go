package subscription

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/fanpulse/internal/client/models"
	"github.com/dmitrijs2005/fanpulse/internal/client/storage"
	"github.com/dmitrijs2005/fanpulse/internal/logging"
)

// Quota is a remaining allowance. Finite values are never negative;
// UnlimitedQuota is the only negative value.
type Quota int

const UnlimitedQuota Quota = Unlimited

func (q Quota) IsUnlimited() bool { return q == UnlimitedQuota }

func (q Quota) String() string {
	if q.IsUnlimited() {
		return "unlimited"
	}
	return strconv.Itoa(int(q))
}

// Resolver holds the active tier and answers capability and quota questions
// against its plan. Safe for concurrent use.
//
// Boot is two-phase: a new Resolver is cold and reports DefaultTier; Hydrate
// reads the persisted tier once and marks it ready.
//
// Writes are serialised by writeMu: persist, apply and notify happen as one
// step, so the durable tier always matches the active one and subscribers see
// changes in order. Subscribers must not call SetTier themselves.
type Resolver struct {
	storage storage.Storage
	log     logging.Logger

	writeMu sync.Mutex

	mu        sync.RWMutex
	tier      Tier
	ready     bool
	listeners map[int]func(Tier)
	nextID    int
}

func NewResolver(s storage.Storage, log logging.Logger) *Resolver {
	return &Resolver{
		storage:   s,
		log:       log.With("component", "subscription"),
		tier:      DefaultTier,
		listeners: make(map[int]func(Tier)),
	}
}

// Hydrate loads the persisted tier. A missing or invalid value keeps the
// default; only a storage failure is returned. Calling it again is a no-op.
func (r *Resolver) Hydrate(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.Ready() {
		return nil
	}

	raw, ok, err := r.storage.Get(ctx, storage.KeySubscriptionTier)
	if err != nil {
		return fmt.Errorf("load subscription tier: %w", err)
	}

	r.mu.Lock()
	if ok {
		if t, valid := ParseTier(raw); valid {
			r.tier = t
		} else {
			r.log.Warn(ctx, "ignoring persisted subscription tier", "value", raw)
		}
	}
	r.ready = true
	tier := r.tier
	r.mu.Unlock()

	r.log.Debug(ctx, "subscription tier hydrated", "tier", tier)
	r.notify(tier)
	return nil
}

func (r *Resolver) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// SetTier makes name the active tier and persists it. Names outside
// free/pro/enterprise are ignored and logged; the active tier is unchanged
// and nil is returned. A persistence failure leaves the tier unchanged.
func (r *Resolver) SetTier(ctx context.Context, name string) error {
	t, ok := ParseTier(name)
	if !ok {
		r.log.Warn(ctx, "ignoring invalid subscription tier", "value", name)
		return nil
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.storage.Set(ctx, storage.KeySubscriptionTier, string(t)); err != nil {
		return fmt.Errorf("persist subscription tier: %w", err)
	}

	r.mu.Lock()
	changed := r.tier != t
	r.tier = t
	r.ready = true
	r.mu.Unlock()

	if changed {
		r.log.Info(ctx, "subscription tier changed", "tier", t)
		r.notify(t)
	}
	return nil
}

// SyncFromProfile adopts the tier carried by a verified profile, when it is
// a valid one.
func (r *Resolver) SyncFromProfile(ctx context.Context, u *models.User) error {
	if u == nil || u.SubscriptionTier == "" {
		return nil
	}
	if _, ok := ParseTier(u.SubscriptionTier); !ok {
		r.log.Warn(ctx, "profile carries unknown subscription tier", "value", u.SubscriptionTier)
		return nil
	}
	return r.SetTier(ctx, u.SubscriptionTier)
}

func (r *Resolver) Tier() Tier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tier
}

func (r *Resolver) CurrentPlan() Plan {
	return PlanFor(r.Tier())
}

func (r *Resolver) HasFeature(f Feature) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return plans[r.tier].Has(f)
}

// CanAddArtist reports whether one more artist fits next to currentCount.
func (r *Resolver) CanAddArtist(currentCount int) bool {
	limit := r.artistLimit()
	if limit == Unlimited {
		return true
	}
	return currentCount < limit
}

// RemainingArtists is max(0, limit-currentCount), or UnlimitedQuota.
func (r *Resolver) RemainingArtists(currentCount int) Quota {
	limit := r.artistLimit()
	if limit == Unlimited {
		return UnlimitedQuota
	}
	return Quota(max(0, limit-currentCount))
}

// AllPlans is the package-level AllPlans, exposed here for callers that only
// hold the resolver.
func (r *Resolver) AllPlans() []Plan {
	return AllPlans()
}

// Subscribe registers fn to be called synchronously with the new tier after
// every change. The returned func unregisters it.
func (r *Resolver) Subscribe(fn func(Tier)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Resolver) artistLimit() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return plans[r.tier].Limits.Artists
}

// notify must be called with writeMu held and mu released.
func (r *Resolver) notify(t Tier) {
	r.mu.RLock()
	fns := make([]func(Tier), 0, len(r.listeners))
	for id := 0; id < r.nextID; id++ {
		if fn, ok := r.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(t)
	}
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying r.
func NewContext(ctx context.Context, r *Resolver) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the Resolver stored by NewContext, or nil.
func FromContext(ctx context.Context) *Resolver {
	r, _ := ctx.Value(ctxKey{}).(*Resolver)
	return r
}
