package pricing

import (
	"go.uber.org/fx"

	"github.com/pathworklabs/pathwork/internal/pricing/service"
)

var Module = fx.Module("pricing",
	fx.Provide(service.NewResolver),
)
