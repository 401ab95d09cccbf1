// Package seed provisions a demo tenant with one account per plan tier.
// Intended for local development and smoke environments.
package seed

import (
	"context"
	"errors"

	"go.uber.org/zap"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
)

const demoTenantName = "Pathwork Demo"

// Run is idempotent: re-running against a seeded database changes nothing.
func Run(ctx context.Context, accounts accountdomain.Service, log *zap.Logger) error {
	tenant, err := accounts.GetTenantBySlug(ctx, "pathwork-demo")
	if errors.Is(err, accountdomain.ErrTenantNotFound) {
		tenant, err = accounts.CreateTenant(ctx, demoTenantName)
	}
	if err != nil {
		return err
	}

	demos := []accountdomain.CreateAccountRequest{
		{TenantSlug: tenant.Slug, Email: "free@pathwork.dev", Plan: accountdomain.PlanFree},
		{TenantSlug: tenant.Slug, Email: "pro@pathwork.dev", Plan: accountdomain.PlanPro},
	}
	for _, req := range demos {
		if _, err := accounts.CreateAccount(ctx, req); err != nil {
			if errors.Is(err, accountdomain.ErrEmailTaken) {
				continue
			}
			return err
		}
		log.Info("seeded account", zap.String("email", req.Email), zap.String("plan", string(req.Plan)))
	}

	log.Info("seed completed", zap.String("tenant", tenant.Slug))
	return nil
}
