package repository

import (
	"context"
	"time"

	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	"github.com/mediasign/licenza/internal/rollup/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListWindow(ctx context.Context, db *gorm.DB, from time.Time) ([]batchdomain.BatchLicense, error) {
	var batches []batchdomain.BatchLicense
	err := db.WithContext(ctx).
		Model(&batchdomain.BatchLicense{}).
		Where("due_date >= ? OR (due_date IS NULL AND paid_at >= ?)", from, from).
		Order("due_date asc, id asc").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}
