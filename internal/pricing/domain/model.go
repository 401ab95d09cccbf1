// Package domain defines the cost resolution contract for gated features.
package domain

import (
	"errors"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

var (
	ErrUnknownFeature  = errors.New("unknown_feature")
	ErrPlanNotEligible = errors.New("plan_not_eligible")
)

type Cost struct {
	Currency walletdomain.Currency `json:"currency"`
	Amount   int64                 `json:"amount"`
}

// Resolver maps (feature, plan tier) to a cost. Deterministic for a given
// configuration snapshot; configuration is not mutated at runtime.
type Resolver interface {
	Resolve(feature string, plan accountdomain.PlanTier) (Cost, error)
	Features() []string
}
