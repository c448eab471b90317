package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/mediasign/licenza/internal/batchlicense"
	"github.com/mediasign/licenza/internal/clock"
	"github.com/mediasign/licenza/internal/config"
	"github.com/mediasign/licenza/internal/device"
	"github.com/mediasign/licenza/internal/gateway"
	"github.com/mediasign/licenza/internal/observability"
	"github.com/mediasign/licenza/internal/reconciler"
	"github.com/mediasign/licenza/pkg/db"
	"go.uber.org/fx"
)

// Sweep-only process: polls the gateway for batches awaiting settlement.
// No HTTP surface beyond what observability exposes elsewhere.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		device.Module,
		gateway.Module,
		batchlicense.Module,
		reconciler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
