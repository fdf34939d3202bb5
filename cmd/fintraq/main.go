package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/fintraq/fintraq/internal/clock"
	"github.com/fintraq/fintraq/internal/config"
	"github.com/fintraq/fintraq/internal/migration"
	"github.com/fintraq/fintraq/internal/observability"
	"github.com/fintraq/fintraq/internal/server"
	"github.com/fintraq/fintraq/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
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
