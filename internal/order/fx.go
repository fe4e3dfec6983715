package order

import (
	"github.com/commercekit/paygate/internal/order/basket"
	"github.com/commercekit/paygate/internal/order/repository"
	"github.com/commercekit/paygate/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(basket.NewLogging),
	fx.Provide(service.NewService),
)
