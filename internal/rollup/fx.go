package rollup

import (
	"github.com/mediasign/licenza/internal/rollup/repository"
	"github.com/mediasign/licenza/internal/rollup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rollup",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
