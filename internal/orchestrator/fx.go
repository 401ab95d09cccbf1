package orchestrator

import (
	"go.uber.org/fx"

	orchestratordomain "github.com/pathworklabs/pathwork/internal/orchestrator/domain"
	"github.com/pathworklabs/pathwork/internal/orchestrator/repository"
	"github.com/pathworklabs/pathwork/internal/orchestrator/service"
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
)

var Module = fx.Module("orchestrator",
	fx.Provide(
		repository.NewRepairRepository,
		service.NewService,
	),
	// Settlement is driven by the runner's terminal notifications.
	fx.Invoke(func(r runnerdomain.Runner, s orchestratordomain.Service) {
		r.OnTerminal(s.HandleTerminal)
	}),
)
