// Package subscription resolves what the active subscription tier may do.
//
// Everything here is answered from a static plan table keyed by tier; no
// call ever leaves the process. The active tier is a local, per-device
// override persisted in durable storage. In the normal flow it is replaced
// by the tier on the verified user profile (see Resolver.SyncFromProfile).
package subscription

import "maps"

// Tier is a subscription level.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// DefaultTier is active until something else is persisted or selected.
const DefaultTier = TierFree

// Unlimited marks a plan limit without a ceiling.
const Unlimited = -1

// tierOrder is the order plans are presented in.
var tierOrder = []Tier{TierFree, TierPro, TierEnterprise}

// ParseTier accepts exactly "free", "pro" or "enterprise".
func ParseTier(s string) (Tier, bool) {
	t := Tier(s)
	return t, t.Valid()
}

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

func (t Tier) String() string { return string(t) }

// Feature is a boolean capability granted by a plan.
type Feature string

const (
	FeatureWhiteLabel      Feature = "whiteLabel"
	FeatureAPIAccess       Feature = "apiAccess"
	FeatureAITools         Feature = "aiTools"
	FeatureScoutMode       Feature = "scoutMode"
	FeatureRevenueForecast Feature = "revenueForecast"
	FeatureSuperfanExport  Feature = "superfanExport"
	FeaturePrioritySupport Feature = "prioritySupport"
	FeatureCustomReports   Feature = "customReports"
)

// AllFeatures lists every capability in display order.
var AllFeatures = []Feature{
	FeatureAITools,
	FeatureScoutMode,
	FeatureRevenueForecast,
	FeatureSuperfanExport,
	FeatureCustomReports,
	FeatureAPIAccess,
	FeatureWhiteLabel,
	FeaturePrioritySupport,
}

// Limits are numeric quotas; Unlimited (-1) lifts the ceiling.
type Limits struct {
	Artists          int
	APICallsPerMonth int
	StorageGB        int
	TeamMembers      int
}

// Plan is the immutable definition of one tier.
type Plan struct {
	Tier         Tier
	Name         string
	Description  string
	PriceCents   int
	Limits       Limits
	Capabilities map[Feature]bool
}

// Has reports whether the plan grants f. Unknown features are never granted.
func (p Plan) Has(f Feature) bool {
	return p.Capabilities[f]
}

func (p Plan) clone() Plan {
	p.Capabilities = maps.Clone(p.Capabilities)
	return p
}

var plans = map[Tier]Plan{
	TierFree: {
		Tier:        TierFree,
		Name:        "Free",
		Description: "Track one artist's momentum and superfans.",
		PriceCents:  0,
		Limits: Limits{
			Artists:          1,
			APICallsPerMonth: 1_000,
			StorageGB:        1,
			TeamMembers:      1,
		},
		Capabilities: map[Feature]bool{},
	},
	TierPro: {
		Tier:        TierPro,
		Name:        "Pro",
		Description: "For managers running a small roster, with AI-suggested actions.",
		PriceCents:  4_900,
		Limits: Limits{
			Artists:          5,
			APICallsPerMonth: 50_000,
			StorageGB:        25,
			TeamMembers:      5,
		},
		Capabilities: map[Feature]bool{
			FeatureAITools:         true,
			FeatureScoutMode:       true,
			FeatureRevenueForecast: true,
			FeatureSuperfanExport:  true,
			FeatureCustomReports:   true,
		},
	},
	TierEnterprise: {
		Tier:        TierEnterprise,
		Name:        "Enterprise",
		Description: "Labels and agencies: unlimited roster, API and white-label reports.",
		PriceCents:  29_900,
		Limits: Limits{
			Artists:          Unlimited,
			APICallsPerMonth: Unlimited,
			StorageGB:        Unlimited,
			TeamMembers:      Unlimited,
		},
		Capabilities: map[Feature]bool{
			FeatureAITools:         true,
			FeatureScoutMode:       true,
			FeatureRevenueForecast: true,
			FeatureSuperfanExport:  true,
			FeatureCustomReports:   true,
			FeatureAPIAccess:       true,
			FeatureWhiteLabel:      true,
			FeaturePrioritySupport: true,
		},
	},
}

// PlanFor returns a copy of the plan for t. Invalid tiers get the free plan.
func PlanFor(t Tier) Plan {
	p, ok := plans[t]
	if !ok {
		p = plans[DefaultTier]
	}
	return p.clone()
}

// AllPlans returns copies of every plan in the order free, pro, enterprise.
func AllPlans() []Plan {
	out := make([]Plan, 0, len(tierOrder))
	for _, t := range tierOrder {
		out = append(out, plans[t].clone())
	}
	return out
}
