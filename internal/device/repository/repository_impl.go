package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mediasign/licenza/internal/device/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Device, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var devices []domain.Device
	err := db.WithContext(ctx).
		Model(&domain.Device{}).
		Where("id IN ?", ids).
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Device, error) {
	var devices []domain.Device
	err := db.WithContext(ctx).
		Model(&domain.Device{}).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *repo) ExtendLicenses(ctx context.Context, db *gorm.DB, ids []snowflake.ID, expiresAt, checkedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE devices SET expires_at = ?, last_license_check = ?, updated_at = ? WHERE id IN ?`,
		expiresAt,
		checkedAt,
		checkedAt,
		ids,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
