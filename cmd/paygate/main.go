package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/commercekit/paygate/internal/config"
	"github.com/commercekit/paygate/internal/gateway"
	"github.com/commercekit/paygate/internal/ipn"
	"github.com/commercekit/paygate/internal/ledger"
	"github.com/commercekit/paygate/internal/logger"
	"github.com/commercekit/paygate/internal/metrics"
	"github.com/commercekit/paygate/internal/migration"
	"github.com/commercekit/paygate/internal/order"
	"github.com/commercekit/paygate/internal/provider"
	"github.com/commercekit/paygate/internal/server"
	"github.com/commercekit/paygate/internal/session"
	"github.com/commercekit/paygate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		metrics.Module,

		// Payment domains
		order.Module,
		ledger.Module,
		session.Module,
		provider.Module,
		ipn.Module,
		gateway.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
