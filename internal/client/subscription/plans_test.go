package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	for _, s := range []string{"free", "pro", "enterprise"} {
		tier, ok := ParseTier(s)
		require.True(t, ok, s)
		assert.Equal(t, s, tier.String())
	}
	for _, s := range []string{"", "Pro", "bogus", " free"} {
		_, ok := ParseTier(s)
		assert.False(t, ok, s)
	}
}

func TestAllPlans_Order(t *testing.T) {
	got := AllPlans()
	require.Len(t, got, 3)
	assert.Equal(t, TierFree, got[0].Tier)
	assert.Equal(t, TierPro, got[1].Tier)
	assert.Equal(t, TierEnterprise, got[2].Tier)
}

func TestAllPlans_ReturnsCopies(t *testing.T) {
	got := AllPlans()
	got[0].Capabilities[FeatureWhiteLabel] = true
	got[0].Limits.Artists = 99

	assert.False(t, PlanFor(TierFree).Has(FeatureWhiteLabel))
	assert.Equal(t, 1, PlanFor(TierFree).Limits.Artists)
}

func TestPlanFor_InvalidFallsBackToFree(t *testing.T) {
	assert.Equal(t, TierFree, PlanFor("bogus").Tier)
}

func TestPlanTable(t *testing.T) {
	free := PlanFor(TierFree)
	for _, f := range AllFeatures {
		assert.False(t, free.Has(f), f)
	}

	enterprise := PlanFor(TierEnterprise)
	for _, f := range AllFeatures {
		assert.True(t, enterprise.Has(f), f)
	}
	assert.Equal(t, Limits{Unlimited, Unlimited, Unlimited, Unlimited}, enterprise.Limits)

	pro := PlanFor(TierPro)
	assert.True(t, pro.Has(FeatureAITools))
	assert.True(t, pro.Has(FeatureScoutMode))
	assert.False(t, pro.Has(FeatureWhiteLabel))
	assert.False(t, pro.Has(FeatureAPIAccess))
	assert.Equal(t, 5, pro.Limits.Artists)

	assert.False(t, pro.Has(Feature("teleport")))
}

func TestQuota_String(t *testing.T) {
	assert.Equal(t, "unlimited", UnlimitedQuota.String())
	assert.Equal(t, "2", Quota(2).String())
	assert.True(t, UnlimitedQuota.IsUnlimited())
	assert.False(t, Quota(0).IsUnlimited())
}
