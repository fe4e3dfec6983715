package ipn

import (
	"github.com/commercekit/paygate/internal/ipn/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ipn",
	fx.Provide(service.NewProcessor),
)
