package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/mediasign/licenza/internal/batchlicense/domain"
	"github.com/mediasign/licenza/internal/clock"
	"github.com/mediasign/licenza/internal/config"
	devicedomain "github.com/mediasign/licenza/internal/device/domain"
	"github.com/mediasign/licenza/internal/duedate"
	gatewaydomain "github.com/mediasign/licenza/internal/gateway/domain"
	obsmetrics "github.com/mediasign/licenza/internal/observability/metrics"
	"github.com/mediasign/licenza/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Repo       domain.Repository
	DeviceRepo devicedomain.Repository
	Gateway    gatewaydomain.Client `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	cfg        config.Config
	repo       domain.Repository
	deviceRepo devicedomain.Repository
	gateway    gatewaydomain.Client
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("batchlicense.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		cfg:        p.Config,
		repo:       p.Repo,
		deviceRepo: p.DeviceRepo,
		gateway:    p.Gateway,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBatchRequest) (*domain.BatchLicense, error) {
	if req.UserID == 0 {
		return nil, domain.ErrUserRequired
	}
	if len(req.DeviceIDs) == 0 {
		return nil, domain.ErrNoDevicesSelected
	}
	if req.DayOfPayment < 1 || req.DayOfPayment > 31 {
		return nil, domain.ErrInvalidDayOfPayment
	}

	seen := make(map[snowflake.ID]struct{}, len(req.DeviceIDs))
	for _, id := range req.DeviceIDs {
		if _, dup := seen[id]; dup {
			return nil, domain.ErrDuplicateDevice
		}
		seen[id] = struct{}{}
	}

	valueCents, err := s.resolveValueCents(ctx, req.Value)
	if err != nil {
		return nil, err
	}

	devices, err := s.deviceRepo.FindByIDs(ctx, s.db, req.DeviceIDs)
	if err != nil {
		return nil, err
	}
	if len(devices) != len(req.DeviceIDs) {
		return nil, domain.ErrUnknownDevice
	}
	for _, device := range devices {
		if device.UserID != req.UserID {
			return nil, domain.ErrUnknownDevice
		}
	}

	now := s.clock.Now()
	due := duedate.Next(req.DayOfPayment, now)
	batch := &domain.BatchLicense{
		ID:                  s.genID.Generate(),
		UserID:              req.UserID,
		ValuePerDeviceCents: valueCents,
		// The total is always recomputed here; client-supplied totals are
		// never trusted.
		TotalCents:    valueCents * int64(len(req.DeviceIDs)),
		DayOfPayment:  req.DayOfPayment,
		DueDate:       &due,
		PaymentStatus: domain.PaymentStatusPending,
		Notes:         strings.TrimSpace(req.Notes),
		Metadata:      map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, batch, req.DeviceIDs)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("batch license created",
		zap.String("batch_id", batch.ID.String()),
		zap.String("user_id", batch.UserID.String()),
		zap.Int("devices", len(req.DeviceIDs)),
		zap.Int64("total_cents", batch.TotalCents),
	)
	return batch, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBatchRequest) (domain.ListBatchResponse, error) {
	filter := domain.ListBatchFilter{UserID: req.UserID, Status: req.Status}
	batches, err := s.repo.List(ctx, s.db, filter, req.Page)
	if err != nil {
		return domain.ListBatchResponse{}, err
	}

	limit := req.Page.Limit()
	hasMore := len(batches) > limit
	if hasMore {
		batches = batches[:limit]
	}

	ids := make([]snowflake.ID, 0, len(batches))
	for _, batch := range batches {
		ids = append(ids, batch.ID)
	}
	counts, err := s.repo.CountDevices(ctx, s.db, ids)
	if err != nil {
		return domain.ListBatchResponse{}, err
	}

	now := s.clock.Now()
	summaries := make([]domain.BatchSummary, 0, len(batches))
	for _, batch := range batches {
		due := batch.DueDate
		if due == nil {
			// Historical rows predate stored due dates; project one from
			// the same calculator used at creation.
			projected := duedate.Next(batch.DayOfPayment, now)
			due = &projected
		}
		summaries = append(summaries, domain.BatchSummary{
			Batch:       *batch,
			DeviceCount: counts[batch.ID],
			StatusLabel: batch.PaymentStatus.Label(),
			DueDate:     *due,
		})
	}

	resp := domain.ListBatchResponse{Batches: summaries}
	resp.HasMore = hasMore
	if hasMore && len(batches) > 0 {
		last := batches[len(batches)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.Format("2006-01-02 15:04:05.999999999-07:00"),
		})
		if err == nil {
			resp.NextPageToken = token
		}
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.BatchLicense, error) {
	batch, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, domain.ErrNotFound
	}
	return batch, nil
}

func (s *Service) OpenInvoice(ctx context.Context, id snowflake.ID) (*domain.BatchLicense, error) {
	batch, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch batch.PaymentStatus {
	case domain.PaymentStatusPaid:
		return nil, domain.ErrAlreadyPaid
	case domain.PaymentStatusPendingPayment:
		return nil, domain.ErrInvoiceAlreadyOpen
	}
	if s.gateway == nil {
		return nil, domain.ErrGatewayUnavailable
	}

	now := s.clock.Now()
	due := now
	if batch.DueDate != nil {
		due = *batch.DueDate
	}

	// The gateway call happens outside any transaction or lock.
	invoice, err := s.gateway.CreateInvoice(ctx, gatewaydomain.CreateInvoiceRequest{
		ReferenceID: batch.ID.String(),
		AmountCents: batch.TotalCents,
		DueDate:     due,
		Description: fmt.Sprintf("Licenciamento de dispositivos (lote %s)", batch.ID.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	updated, err := s.repo.MarkPendingPayment(ctx, s.db, batch.ID, invoice.ID, now)
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		// Lost a race with another transition; return current state.
		return s.GetByID(ctx, id)
	}

	s.log.Info("gateway invoice opened",
		zap.String("batch_id", batch.ID.String()),
		zap.String("lytex_invoice_id", invoice.ID),
	)
	return s.GetByID(ctx, id)
}

// Confirm is the single confirmation primitive shared by the manual admin
// path and gateway reconciliation. It is idempotent: confirming an already
// paid batch succeeds without re-extending device licenses.
func (s *Service) Confirm(ctx context.Context, req domain.ConfirmRequest) (domain.ConfirmResult, error) {
	batch, err := s.GetByID(ctx, req.BatchID)
	if err != nil {
		return domain.ConfirmResult{}, err
	}
	if batch.PaymentStatus == domain.PaymentStatusPaid {
		return domain.ConfirmResult{
			Batch:   batch,
			Applied: false,
			Message: "Pagamento já confirmado",
		}, nil
	}

	note := strings.TrimSpace(req.Notes)
	if note == "" {
		note = domain.DefaultConfirmationNote
	}
	notes := appendNote(batch.Notes, note)

	paidAmount := req.PaidAmountCents
	if paidAmount <= 0 {
		paidAmount = batch.TotalCents
	}

	now := s.clock.Now()
	var devicesUpdated int64
	var applied bool

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.MarkPaid(ctx, tx, batch.ID, now, paidAmount, notes)
		if err != nil {
			return err
		}
		if rows == 0 {
			// A concurrent confirmation won; nothing to apply.
			return nil
		}
		applied = true

		deviceIDs, err := s.repo.DeviceIDs(ctx, tx, batch.ID)
		if err != nil {
			return err
		}
		expiresAt := now.Add(s.cfg.LicenseExtension)
		devicesUpdated, err = s.deviceRepo.ExtendLicenses(ctx, tx, deviceIDs, expiresAt, now)
		if err != nil {
			return err
		}
		if devicesUpdated != int64(len(deviceIDs)) {
			// Partial activation would leave the batch half licensed;
			// roll the whole confirmation back.
			return fmt.Errorf("%w: extended %d of %d devices",
				domain.ErrActivationConflict, devicesUpdated, len(deviceIDs))
		}
		return nil
	})
	if err != nil {
		return domain.ConfirmResult{}, err
	}

	current, getErr := s.GetByID(ctx, req.BatchID)
	if getErr != nil {
		return domain.ConfirmResult{}, getErr
	}

	if !applied {
		return domain.ConfirmResult{
			Batch:   current,
			Applied: false,
			Message: "Pagamento já confirmado",
		}, nil
	}

	source := req.Source
	if source == "" {
		source = obsmetrics.ConfirmationSourceManual
	}
	obsmetrics.Reconciler().IncConfirmation(source)
	s.log.Info("batch payment confirmed",
		zap.String("batch_id", batch.ID.String()),
		zap.String("source", source),
		zap.Int64("devices_updated", devicesUpdated),
		zap.Int64("paid_amount_cents", paidAmount),
	)

	return domain.ConfirmResult{
		Batch:          current,
		Applied:        true,
		DevicesUpdated: devicesUpdated,
		Message:        "Pagamento confirmado",
	}, nil
}

// CheckPaymentStatus polls the gateway once for the batch and confirms it
// when the gateway reports settlement. A non-settled gateway status never
// mutates local state.
func (s *Service) CheckPaymentStatus(ctx context.Context, id snowflake.ID) (domain.ReconcileResult, error) {
	batch, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	if batch.PaymentStatus == domain.PaymentStatusPaid {
		return domain.ReconcileResult{Batch: batch, Settled: true}, nil
	}
	if batch.LytexInvoiceID == nil || strings.TrimSpace(*batch.LytexInvoiceID) == "" {
		return domain.ReconcileResult{}, domain.ErrNoGatewayInvoice
	}
	if s.gateway == nil {
		return domain.ReconcileResult{}, domain.ErrGatewayUnavailable
	}

	invoice, err := s.gateway.GetInvoice(ctx, *batch.LytexInvoiceID)
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	result := domain.ReconcileResult{Batch: batch, GatewayID: invoice.ID}
	if !invoice.Status.Settled() {
		return result, nil
	}

	confirmed, err := s.Confirm(ctx, domain.ConfirmRequest{
		BatchID:         batch.ID,
		Notes:           fmt.Sprintf("Pagamento confirmado via Lytex (%s)", invoice.ID),
		PaidAmountCents: invoice.PaidAmountCents,
		Source:          obsmetrics.ConfirmationSourceGateway,
	})
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	result.Batch = confirmed.Batch
	result.Settled = true
	return result, nil
}

func (s *Service) ListAwaitingSettlement(ctx context.Context, limit int) ([]domain.BatchLicense, error) {
	return s.repo.ListAwaitingSettlement(ctx, s.db, limit)
}

func (s *Service) resolveValueCents(ctx context.Context, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		return ParseCents(raw)
	}

	value, ok, err := s.repo.GetConfigInt64(ctx, s.db, domain.ConfigKeyDefaultDeviceValue)
	if err != nil {
		return 0, err
	}
	if ok && value >= 0 {
		return value, nil
	}
	return s.cfg.DefaultDeviceValueCents, nil
}

// ParseCents parses a decimal currency string ("35.00", "35,5", "35") into
// cents. Negative values and more than two decimal places are rejected.
func ParseCents(raw string) (int64, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" || strings.HasPrefix(raw, "-") {
		return 0, domain.ErrInvalidValue
	}

	whole := raw
	frac := ""
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		whole, frac = raw[:idx], raw[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, domain.ErrInvalidValue
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidValue
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidValue
	}
	return units*100 + cents, nil
}

func appendNote(existing, note string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
