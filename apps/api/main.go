package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/mediasign/licenza/internal/clock"
	"github.com/mediasign/licenza/internal/config"
	"github.com/mediasign/licenza/internal/observability"
	"github.com/mediasign/licenza/internal/server"
	"github.com/mediasign/licenza/pkg/db"
	"go.uber.org/fx"
)

// API-only process: serves the HTTP surface, no settlement sweep. Pair it
// with apps/reconciler when splitting the monolith.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

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
