package batchlicense

import (
	"github.com/mediasign/licenza/internal/batchlicense/repository"
	"github.com/mediasign/licenza/internal/batchlicense/service"
	"go.uber.org/fx"
)

var Module = fx.Module("batchlicense",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
