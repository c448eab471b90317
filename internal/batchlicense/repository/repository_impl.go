package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mediasign/licenza/internal/batchlicense/domain"
	pkgdb "github.com/mediasign/licenza/pkg/db"
	"github.com/mediasign/licenza/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, batch *domain.BatchLicense, deviceIDs []snowflake.ID) error {
	if err := db.WithContext(ctx).Create(batch).Error; err != nil {
		return err
	}
	rows := make([]domain.BatchLicenseDevice, 0, len(deviceIDs))
	for _, deviceID := range deviceIDs {
		rows = append(rows, domain.BatchLicenseDevice{BatchID: batch.ID, DeviceID: deviceID})
	}
	if err := db.WithContext(ctx).Create(&rows).Error; err != nil {
		// The service dedups before inserting; the composite key backstops
		// concurrent writers that pass the check at the same time.
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateDevice
		}
		return err
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BatchLicense, error) {
	var batch domain.BatchLicense
	err := db.WithContext(ctx).
		Model(&domain.BatchLicense{}).
		Where("id = ?", id).
		Limit(1).
		Find(&batch).Error
	if err != nil {
		return nil, err
	}
	if batch.ID == 0 {
		return nil, nil
	}
	return &batch, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListBatchFilter, page pagination.Pagination) ([]*domain.BatchLicense, error) {
	var batches []*domain.BatchLicense
	stmt := db.WithContext(ctx).Model(&domain.BatchLicense{})
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("payment_status = ?", filter.Status)
	}
	err := page.Apply(stmt).
		Order("created_at desc, id desc").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *repo) DeviceIDs(ctx context.Context, db *gorm.DB, batchID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.BatchLicenseDevice{}).
		Where("batch_id = ?", batchID).
		Order("device_id").
		Pluck("device_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) CountDevices(ctx context.Context, db *gorm.DB, batchIDs []snowflake.ID) (map[snowflake.ID]int, error) {
	counts := make(map[snowflake.ID]int, len(batchIDs))
	if len(batchIDs) == 0 {
		return counts, nil
	}

	type row struct {
		BatchID snowflake.ID
		Total   int
	}
	var rows []row
	err := db.WithContext(ctx).
		Model(&domain.BatchLicenseDevice{}).
		Select("batch_id, COUNT(*) AS total").
		Where("batch_id IN ?", batchIDs).
		Group("batch_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, item := range rows {
		counts[item.BatchID] = item.Total
	}
	return counts, nil
}

func (r *repo) ListAwaitingSettlement(ctx context.Context, db *gorm.DB, limit int) ([]domain.BatchLicense, error) {
	var batches []domain.BatchLicense
	stmt := db.WithContext(ctx).
		Model(&domain.BatchLicense{}).
		Where("payment_status = ? AND lytex_invoice_id IS NOT NULL", domain.PaymentStatusPendingPayment).
		Order("created_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *repo) MarkPendingPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, invoiceID string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE batch_licenses
		 SET payment_status = ?, lytex_invoice_id = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		domain.PaymentStatusPendingPayment,
		invoiceID,
		now,
		id,
		domain.PaymentStatusPending,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time, paidAmountCents int64, notes string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE batch_licenses
		 SET payment_status = ?, paid_at = ?, paid_amount_cents = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND payment_status <> ?`,
		domain.PaymentStatusPaid,
		paidAt,
		paidAmountCents,
		notes,
		paidAt,
		id,
		domain.PaymentStatusPaid,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) GetConfigInt64(ctx context.Context, db *gorm.DB, key string) (int64, bool, error) {
	var config domain.SystemConfig
	err := db.WithContext(ctx).
		Model(&domain.SystemConfig{}).
		Where("key = ?", key).
		Limit(1).
		Find(&config).Error
	if err != nil {
		return 0, false, err
	}
	value := strings.TrimSpace(config.Value)
	if value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return parsed, true, nil
}
