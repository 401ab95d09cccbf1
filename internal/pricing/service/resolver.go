package service

import (
	"sort"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	"github.com/pathworklabs/pathwork/internal/config"
	pricingdomain "github.com/pathworklabs/pathwork/internal/pricing/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

type resolver struct {
	costs map[string]config.FeatureCosts
}

func NewResolver(cfg config.Config) pricingdomain.Resolver {
	return &resolver{costs: cfg.Features}
}

func (r *resolver) Resolve(feature string, plan accountdomain.PlanTier) (pricingdomain.Cost, error) {
	fc, ok := r.costs[feature]
	if !ok {
		return pricingdomain.Cost{}, pricingdomain.ErrUnknownFeature
	}

	var c *config.Cost
	switch plan {
	case accountdomain.PlanPro:
		c = fc.Pro
	case accountdomain.PlanFree:
		c = fc.Free
	default:
		return pricingdomain.Cost{}, accountdomain.ErrInvalidPlan
	}
	if c == nil {
		return pricingdomain.Cost{}, pricingdomain.ErrPlanNotEligible
	}

	currency := walletdomain.Currency(c.Currency)
	if !currency.Valid() || c.Amount <= 0 {
		return pricingdomain.Cost{}, pricingdomain.ErrUnknownFeature
	}
	return pricingdomain.Cost{Currency: currency, Amount: c.Amount}, nil
}

func (r *resolver) Features() []string {
	features := make([]string, 0, len(r.costs))
	for code := range r.costs {
		features = append(features, code)
	}
	sort.Strings(features)
	return features
}
