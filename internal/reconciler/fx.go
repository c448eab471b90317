package reconciler

import (
	"context"

	"github.com/mediasign/licenza/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("reconciler",
	fx.Provide(
		provideConfig,
		New,
	),
	fx.Invoke(run),
)

func provideConfig(cfg config.Config) Config {
	return Config{RunInterval: cfg.ReconcileInterval}.withDefaults()
}

func run(lc fx.Lifecycle, r *Reconciler, log *zap.Logger) {
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				r.RunForever(loopCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				log.Warn("reconciler loop did not stop before shutdown deadline")
				return ctx.Err()
			}
		},
	})
}
