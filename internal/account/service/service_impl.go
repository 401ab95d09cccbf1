package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"

	accountdomain "github.com/pathworklabs/pathwork/internal/account/domain"
	"github.com/pathworklabs/pathwork/internal/config"
	walletdomain "github.com/pathworklabs/pathwork/internal/wallet/domain"
)

type ServiceParam struct {
	fx.In

	Log    *zap.Logger
	Node   *snowflake.Node
	Cfg    config.Config
	Repo   accountdomain.Repository
	Wallet walletdomain.Service
}

type service struct {
	log    *zap.Logger
	node   *snowflake.Node
	cfg    config.Config
	repo   accountdomain.Repository
	wallet walletdomain.Service
}

func NewService(p ServiceParam) accountdomain.Service {
	return &service{
		log:    p.Log.Named("account.service"),
		node:   p.Node,
		cfg:    p.Cfg,
		repo:   p.Repo,
		wallet: p.Wallet,
	}
}

func (s *service) CreateTenant(ctx context.Context, name string) (*accountdomain.Tenant, error) {
	tenant := &accountdomain.Tenant{
		ID:   s.node.Generate(),
		Name: strings.TrimSpace(name),
		Slug: slug.Make(name),
	}
	if err := s.repo.CreateTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// CreateAccount registers the account and seeds its wallet with the signup
// bonus configured for the plan tier.
func (s *service) CreateAccount(ctx context.Context, req accountdomain.CreateAccountRequest) (*accountdomain.Account, error) {
	plan := req.Plan
	if plan == "" {
		plan = accountdomain.PlanFree
	}
	if !plan.Valid() {
		return nil, accountdomain.ErrInvalidPlan
	}

	tenant, err := s.repo.GetTenantBySlug(ctx, req.TenantSlug)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.GetAccountByEmail(ctx, email); err == nil {
		return nil, accountdomain.ErrEmailTaken
	} else if !errors.Is(err, accountdomain.ErrAccountNotFound) {
		return nil, err
	}

	account := &accountdomain.Account{
		ID:       s.node.Generate(),
		TenantID: tenant.ID,
		Email:    email,
		Plan:     plan,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	silver, gold := s.signupBonus(plan)
	if err := s.wallet.CreateWallet(ctx, account.ID, tenant.ID, silver, gold); err != nil {
		return nil, err
	}

	s.log.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("tenant", tenant.Slug),
		zap.String("plan", string(plan)))
	return account, nil
}

func (s *service) GetTenantBySlug(ctx context.Context, slug string) (*accountdomain.Tenant, error) {
	return s.repo.GetTenantBySlug(ctx, slug)
}

func (s *service) GetAccount(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *service) signupBonus(plan accountdomain.PlanTier) (silver, gold int64) {
	if plan == accountdomain.PlanPro {
		return s.cfg.Credits.SignupSilverPro, s.cfg.Credits.SignupGoldPro
	}
	return s.cfg.Credits.SignupSilverFree, 0
}
