package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/linkpulse/linkpulse/internal/clock"
	"github.com/linkpulse/linkpulse/internal/config"
	"github.com/linkpulse/linkpulse/internal/migration"
	"github.com/linkpulse/linkpulse/internal/observability"
	"github.com/linkpulse/linkpulse/internal/server"
	"github.com/linkpulse/linkpulse/pkg/db"
	"go.uber.org/fx"
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
