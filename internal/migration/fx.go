package migration

import (
	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	"github.com/mediasign/licenza/internal/config"
	devicedomain "github.com/mediasign/licenza/internal/device/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// golang-migrate is wired for the postgres driver only; other
			// dialects (local sqlite, mysql) sync the schema from models.
			return conn.AutoMigrate(
				&devicedomain.Device{},
				&batchdomain.BatchLicense{},
				&batchdomain.BatchLicenseDevice{},
				&batchdomain.SystemConfig{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
