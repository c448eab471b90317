package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Device, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Device, error)
	// ExtendLicenses moves expires_at and last_license_check forward for
	// every given device in one statement; returns rows affected.
	ExtendLicenses(ctx context.Context, db *gorm.DB, ids []snowflake.ID, expiresAt, checkedAt time.Time) (int64, error)
}
