package migration

import (
	ledgerdomain "github.com/commercekit/paygate/internal/ledger/domain"
	orderdomain "github.com/commercekit/paygate/internal/order/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module brings the reference schema up to date on startup. Hosts that embed
// the plugin into an existing shop schema skip this module and map the order
// tables themselves.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return conn.AutoMigrate(
			&orderdomain.Order{},
			&orderdomain.OrderDetail{},
			&ledgerdomain.TransactionRecord{},
		)
	}),
)
