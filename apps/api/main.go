package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/audit"
	"github.com/propfolio/backend/internal/authorization"
	"github.com/propfolio/backend/internal/clock"
	"github.com/propfolio/backend/internal/config"
	"github.com/propfolio/backend/internal/logger"
	"github.com/propfolio/backend/internal/migration"
	"github.com/propfolio/backend/internal/plan"
	"github.com/propfolio/backend/internal/project"
	"github.com/propfolio/backend/internal/quota"
	"github.com/propfolio/backend/internal/ratelimit"
	"github.com/propfolio/backend/internal/server"
	"github.com/propfolio/backend/internal/subscription"
	"github.com/propfolio/backend/internal/transaction"
	"github.com/propfolio/backend/pkg/db"
	"github.com/propfolio/backend/pkg/redisconn"
	"github.com/propfolio/backend/pkg/telemetry"
	"github.com/propfolio/backend/pkg/uow"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redisconn.Module,
		clock.Module,
		uow.Module,
		migration.Module,

		audit.Module,
		plan.Module,
		subscription.Module,
		quota.Module,
		authorization.Module,
		ratelimit.Module,
		project.Module,
		transaction.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
