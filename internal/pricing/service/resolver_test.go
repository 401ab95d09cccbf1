package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	"github.com/pathworklabs/pathwork/internal/config"
	pricingdomain "github.com/pathworklabs/pathwork/internal/pricing/domain"
	"github.com/pathworklabs/pathwork/internal/pricing/service"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

func testConfig() config.Config {
	return config.Config{
		Features: map[string]config.FeatureCosts{
			"jobpack": {
				Free: &config.Cost{Currency: "silver", Amount: 1},
				Pro:  &config.Cost{Currency: "gold", Amount: 3},
			},
			"dream_planner": {
				Pro: &config.Cost{Currency: "gold", Amount: 3},
			},
		},
	}
}

func TestResolve(t *testing.T) {
	resolver := service.NewResolver(testConfig())

	tests := []struct {
		name    string
		feature string
		plan    accountdomain.PlanTier
		want    pricingdomain.Cost
		wantErr error
	}{
		{
			name:    "free plan silver cost",
			feature: "jobpack",
			plan:    accountdomain.PlanFree,
			want:    pricingdomain.Cost{Currency: walletdomain.CurrencySilver, Amount: 1},
		},
		{
			name:    "pro plan gold cost",
			feature: "jobpack",
			plan:    accountdomain.PlanPro,
			want:    pricingdomain.Cost{Currency: walletdomain.CurrencyGold, Amount: 3},
		},
		{
			name:    "pro only feature rejects free plan",
			feature: "dream_planner",
			plan:    accountdomain.PlanFree,
			wantErr: pricingdomain.ErrPlanNotEligible,
		},
		{
			name:    "pro only feature allows pro plan",
			feature: "dream_planner",
			plan:    accountdomain.PlanPro,
			want:    pricingdomain.Cost{Currency: walletdomain.CurrencyGold, Amount: 3},
		},
		{
			name:    "unknown feature",
			feature: "resume_ghostwriter",
			plan:    accountdomain.PlanPro,
			wantErr: pricingdomain.ErrUnknownFeature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost, err := resolver.Resolve(tt.feature, tt.plan)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, cost)
		})
	}
}

func TestFeaturesListsConfiguredCodes(t *testing.T) {
	resolver := service.NewResolver(testConfig())

	features := resolver.Features()
	assert.Len(t, features, 2)
	assert.Contains(t, features, "jobpack")
	assert.Contains(t, features, "dream_planner")
}
