// Package domain contains persistence models for batch device licensing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentStatus represents the batch payment lifecycle. Transitions are
// strictly ordered: pending -> pending_payment -> paid, and paid is terminal.
type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusPendingPayment PaymentStatus = "pending_payment"
	PaymentStatusPaid           PaymentStatus = "paid"
)

// Label returns the operator-facing status label (pt-BR, matching the
// admin dashboard vocabulary).
func (s PaymentStatus) Label() string {
	switch s {
	case PaymentStatusPaid:
		return "Confirmado"
	case PaymentStatusPendingPayment:
		return "Pagamento pendente"
	default:
		return "Pendente"
	}
}

// DefaultConfirmationNote is appended when a confirmation carries no note.
const DefaultConfirmationNote = "Pagamento confirmado"

// BatchLicense is a grouped licensing invoice covering the devices of a
// single user, billed as one unit.
type BatchLicense struct {
	ID                  snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID              snowflake.ID      `json:"user_id" gorm:"not null;index"`
	ValuePerDeviceCents int64             `json:"value_per_device_cents" gorm:"not null;default:0"`
	TotalCents          int64             `json:"total_cents" gorm:"not null;default:0"`
	DayOfPayment        int               `json:"day_of_payment" gorm:"not null"`
	DueDate             *time.Time        `json:"due_date" gorm:"type:date"`
	PaymentStatus       PaymentStatus     `json:"payment_status" gorm:"type:text;not null;default:'pending';index"`
	LytexInvoiceID      *string           `json:"lytex_invoice_id" gorm:"type:text"`
	PaidAt              *time.Time        `json:"paid_at"`
	PaidAmountCents     *int64            `json:"paid_amount_cents"`
	Notes               string            `json:"notes" gorm:"type:text;not null;default:''"`
	Metadata            datatypes.JSONMap `json:"metadata" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt           time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BatchLicense) TableName() string { return "batch_licenses" }

// BatchLicenseDevice links a batch to one of its devices for the lifetime
// of the batch; confirmation fans activation out over these rows.
type BatchLicenseDevice struct {
	BatchID  snowflake.ID `json:"batch_id" gorm:"primaryKey;autoIncrement:false"`
	DeviceID snowflake.ID `json:"device_id" gorm:"primaryKey;autoIncrement:false"`
}

// TableName sets the database table name.
func (BatchLicenseDevice) TableName() string { return "batch_license_devices" }

// SystemConfig is a key/value row; the batch builder reads the default
// per-device value from it.
type SystemConfig struct {
	Key       string    `json:"key" gorm:"primaryKey;type:text"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SystemConfig) TableName() string { return "system_configs" }

// ConfigKeyDefaultDeviceValue holds the default per-device value in cents.
const ConfigKeyDefaultDeviceValue = "default_device_value_cents"
