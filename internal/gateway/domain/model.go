// Package domain defines the payment gateway contract consumed by the
// batch licensing service and the reconciler.
package domain

import (
	"context"
	"errors"
	"time"
)

// InvoiceStatus is the gateway's own status vocabulary. Only settled
// statuses ever drive a local state change.
type InvoiceStatus string

const (
	InvoiceStatusPending    InvoiceStatus = "pending"
	InvoiceStatusProcessing InvoiceStatus = "processing"
	InvoiceStatusPaid       InvoiceStatus = "paid"
	InvoiceStatusLiquidated InvoiceStatus = "liquidated"
	InvoiceStatusOverdue    InvoiceStatus = "overdue"
	InvoiceStatusCanceled   InvoiceStatus = "canceled"
)

// Settled reports whether the gateway considers the invoice paid out.
func (s InvoiceStatus) Settled() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusLiquidated
}

// Invoice is the gateway-side view of a batch invoice.
type Invoice struct {
	ID              string
	Status          InvoiceStatus
	PaidAt          *time.Time
	PaidAmountCents int64
}

// CreateInvoiceRequest opens an invoice with the gateway.
type CreateInvoiceRequest struct {
	ReferenceID string
	AmountCents int64
	DueDate     time.Time
	Description string
}

var (
	ErrUnavailable     = errors.New("gateway_unavailable")
	ErrInvoiceNotFound = errors.New("gateway_invoice_not_found")
	ErrInvalidResponse = errors.New("gateway_invalid_response")
	ErrNotConfigured   = errors.New("gateway_not_configured")
)

// Client is the minimal gateway surface the core needs: open an invoice
// and poll its settlement status.
type Client interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error)
}
