package wallet

import (
	"go.uber.org/fx"

	"github.com/pathworklabs/pathwork/internal/wallet/repository"
	"github.com/pathworklabs/pathwork/internal/wallet/service"
)

var Module = fx.Module("wallet",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
