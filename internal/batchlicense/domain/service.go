package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mediasign/licenza/pkg/db/pagination"
)

var (
	ErrNotFound            = errors.New("batch_license_not_found")
	ErrNoDevicesSelected   = errors.New("no_devices_selected")
	ErrDuplicateDevice     = errors.New("duplicate_device")
	ErrUnknownDevice       = errors.New("unknown_device")
	ErrUserRequired        = errors.New("user_required")
	ErrInvalidValue        = errors.New("invalid_value")
	ErrInvalidDayOfPayment = errors.New("invalid_day_of_payment")
	ErrNoGatewayInvoice    = errors.New("no_gateway_invoice")
	ErrInvoiceAlreadyOpen  = errors.New("invoice_already_open")
	ErrAlreadyPaid         = errors.New("already_paid")
	ErrGatewayUnavailable  = errors.New("gateway_unavailable")
	ErrActivationConflict  = errors.New("activation_conflict")
)

// CreateBatchRequest is the batch builder input. Value is a decimal string
// ("35.00"); when empty the system default per-device value applies.
type CreateBatchRequest struct {
	UserID       snowflake.ID
	DeviceIDs    []snowflake.ID
	Value        string
	DayOfPayment int
	Notes        string
}

type ListBatchRequest struct {
	UserID snowflake.ID
	Status PaymentStatus
	Page   pagination.Pagination
}

// BatchSummary is the ledger row shown to operators.
type BatchSummary struct {
	Batch       BatchLicense `json:"batch"`
	DeviceCount int          `json:"device_count"`
	StatusLabel string       `json:"status_label"`
	// DueDate is the stored due date, or a fresh projection for
	// historical rows created before due dates were persisted.
	DueDate time.Time `json:"due_date"`
}

type ListBatchResponse struct {
	pagination.PageInfo
	Batches []BatchSummary `json:"batches"`
}

type ConfirmRequest struct {
	BatchID snowflake.ID
	Notes   string
	// PaidAmountCents overrides the recorded paid amount; zero means the
	// batch total was settled in full.
	PaidAmountCents int64
	// Source tags the confirmation origin (manual admin action or
	// gateway reconciliation) for metrics and audit notes.
	Source string
}

// ConfirmResult reports the outcome of a confirmation attempt.
type ConfirmResult struct {
	Batch *BatchLicense `json:"batch"`
	// Applied is false when the batch was already paid and the call was
	// an idempotent no-op.
	Applied        bool   `json:"applied"`
	DevicesUpdated int64  `json:"devices_updated"`
	Message        string `json:"message"`
}

// ReconcileResult reports a single gateway poll for one batch.
type ReconcileResult struct {
	Batch     *BatchLicense `json:"batch"`
	Settled   bool          `json:"settled"`
	GatewayID string        `json:"gateway_id"`
}

type Service interface {
	Create(ctx context.Context, req CreateBatchRequest) (*BatchLicense, error)
	List(ctx context.Context, req ListBatchRequest) (ListBatchResponse, error)
	GetByID(ctx context.Context, id snowflake.ID) (*BatchLicense, error)

	// OpenInvoice opens a gateway invoice for a pending batch and moves it
	// to pending_payment.
	OpenInvoice(ctx context.Context, id snowflake.ID) (*BatchLicense, error)

	// Confirm applies the payment confirmation exactly once: marks the
	// batch paid and atomically extends every device license in it.
	Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error)

	// CheckPaymentStatus polls the gateway for one batch and confirms it
	// when the gateway reports the invoice settled.
	CheckPaymentStatus(ctx context.Context, id snowflake.ID) (ReconcileResult, error)

	// ListAwaitingSettlement returns batches in pending_payment with an
	// open gateway invoice, oldest first; the reconciler sweeps these.
	ListAwaitingSettlement(ctx context.Context, limit int) ([]BatchLicense, error)
}
