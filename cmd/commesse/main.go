package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/operalab/commesse/internal/clock"
	"github.com/operalab/commesse/internal/config"
	"github.com/operalab/commesse/internal/logger"
	"github.com/operalab/commesse/internal/migration"
	"github.com/operalab/commesse/internal/server"
	"github.com/operalab/commesse/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
