package domain

import (
	"context"
	"time"

	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// ListWindow returns batches whose due date (or paid date, for paid
	// rows missing a due date) falls on or after the window start.
	ListWindow(ctx context.Context, db *gorm.DB, from time.Time) ([]batchdomain.BatchLicense, error)
}
