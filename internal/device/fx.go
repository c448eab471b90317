package device

import (
	"github.com/mediasign/licenza/internal/device/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("device",
	fx.Provide(repository.Provide),
)
