package db

import (
	"context"
	"time"

	"github.com/mediasign/licenza/internal/config"
	obslogger "github.com/mediasign/licenza/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("db",
	fx.Provide(Open),
)

// Open builds the shared gorm connection with pool limits and zap-backed
// query logging, and closes it on shutdown.
func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Second)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info("closing database connection")
			return sqlDB.Close()
		},
	})

	return conn, nil
}
