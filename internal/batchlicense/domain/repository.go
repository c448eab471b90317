package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mediasign/licenza/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListBatchFilter struct {
	UserID snowflake.ID
	Status PaymentStatus
}

type Repository interface {
	// Insert persists the batch and its device associations; callers wrap
	// it in a transaction so either everything lands or nothing does.
	Insert(ctx context.Context, db *gorm.DB, batch *BatchLicense, deviceIDs []snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BatchLicense, error)
	List(ctx context.Context, db *gorm.DB, filter ListBatchFilter, page pagination.Pagination) ([]*BatchLicense, error)
	DeviceIDs(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]snowflake.ID, error)
	CountDevices(ctx context.Context, db *gorm.DB, batchIDs []snowflake.ID) (map[snowflake.ID]int, error)

	// ListAwaitingSettlement returns pending_payment batches holding a
	// gateway invoice id, oldest first.
	ListAwaitingSettlement(ctx context.Context, db *gorm.DB, limit int) ([]BatchLicense, error)

	// MarkPendingPayment records the opened gateway invoice; the update is
	// conditional on the batch still being pending.
	MarkPendingPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, invoiceID string, now time.Time) (int64, error)

	// MarkPaid transitions to paid only if the batch is not already paid;
	// returns rows affected so racing confirmations detect the no-op.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time, paidAmountCents int64, notes string) (int64, error)

	GetConfigInt64(ctx context.Context, db *gorm.DB, key string) (int64, bool, error)
}
