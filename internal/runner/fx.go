package runner

import (
	"go.uber.org/fx"

	pricingdomain "github.com/pathworklabs/pathwork/internal/pricing/domain"
	"github.com/pathworklabs/pathwork/internal/runner/agent"
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
	"github.com/pathworklabs/pathwork/internal/runner/repository"
	"github.com/pathworklabs/pathwork/internal/runner/service"
)

var Module = fx.Module("runner",
	fx.Provide(
		repository.NewRepository,
		agent.NewClient,
		func(client *agent.Client, resolver pricingdomain.Resolver) runnerdomain.ExecutorRegistry {
			return agent.NewRegistry(client, resolver.Features())
		},
		service.NewRunner,
		func(r *service.Runner) runnerdomain.Runner { return r },
	),
)
