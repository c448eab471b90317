package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/mediasign/licenza/internal/clock"
	"github.com/mediasign/licenza/internal/config"
	"github.com/mediasign/licenza/internal/migration"
	"github.com/mediasign/licenza/internal/observability"
	"github.com/mediasign/licenza/internal/reconciler"
	"github.com/mediasign/licenza/internal/server"
	"github.com/mediasign/licenza/pkg/db"
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
		reconciler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
