package ledger

import (
	"go.uber.org/fx"

	"github.com/pathworklabs/pathwork/internal/ledger/repository"
	"github.com/pathworklabs/pathwork/internal/ledger/service"
)

var Module = fx.Module("ledger",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
