package gateway

import (
	"github.com/mediasign/licenza/internal/config"
	"github.com/mediasign/licenza/internal/gateway/domain"
	"github.com/mediasign/licenza/internal/gateway/lytex"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway",
	fx.Provide(provideClient),
)

// provideClient returns nil when no credentials are configured; consumers
// treat a nil client as "gateway disabled".
func provideClient(cfg config.Config, log *zap.Logger) (domain.Client, error) {
	if cfg.LytexClientID == "" {
		log.Warn("lytex gateway not configured; invoice opening and reconciliation disabled")
		return nil, nil
	}
	client, err := lytex.NewClient(lytex.Config{
		BaseURL:      cfg.LytexBaseURL,
		ClientID:     cfg.LytexClientID,
		ClientSecret: cfg.LytexClientSecret,
		Timeout:      cfg.LytexTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}
