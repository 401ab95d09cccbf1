package account

import (
	"go.uber.org/fx"

	"github.com/pathworklabs/pathwork/internal/account/repository"
	"github.com/pathworklabs/pathwork/internal/account/service"
)

var Module = fx.Module("account",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
