package service

import (
	"context"
	"time"

	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	"github.com/mediasign/licenza/internal/clock"
	"github.com/mediasign/licenza/internal/rollup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// windowMonths is the trailing overview window, current month included.
const windowMonths = 6

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("rollup.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Overview buckets every batch of the trailing window into paid, open and
// overdue totals per calendar month. The aggregation is read-only and
// tolerant: rows missing the fields needed to place them are skipped.
func (s *Service) Overview(ctx context.Context) (domain.Overview, error) {
	now := s.clock.Now()
	today := dateOnly(now)
	from := startOfMonth(now.AddDate(0, -(windowMonths - 1), 0))

	batches, err := s.repo.ListWindow(ctx, s.db, from)
	if err != nil {
		return domain.Overview{}, err
	}

	type cents struct {
		paid    int64
		open    int64
		overdue int64
	}
	totals := make(map[domain.BucketKey]cents, windowMonths)
	skipped := 0

	for _, batch := range batches {
		key, amount, ok := classify(batch)
		if !ok {
			skipped++
			continue
		}

		bucket := totals[key]
		switch {
		case batch.PaymentStatus == batchdomain.PaymentStatusPaid:
			bucket.paid += amount
		case batch.DueDate != nil && dateOnly(*batch.DueDate).Before(today):
			bucket.overdue += amount
		default:
			bucket.open += amount
		}
		totals[key] = bucket
	}

	if skipped > 0 {
		s.log.Warn("overview skipped malformed rows", zap.Int("skipped", skipped))
	}

	overview := domain.Overview{Buckets: make([]domain.MonthlyBucket, 0, windowMonths)}
	cursor := from
	for i := 0; i < windowMonths; i++ {
		key := domain.BucketKey{Year: cursor.Year(), Month: cursor.Month()}
		bucket := totals[key]
		overview.Buckets = append(overview.Buckets, domain.MonthlyBucket{
			Year:         key.Year,
			Month:        int(key.Month),
			Label:        key.Label(),
			PaidUnits:    roundToUnits(bucket.paid),
			OpenUnits:    roundToUnits(bucket.open),
			OverdueUnits: roundToUnits(bucket.overdue),
		})
		if i == 0 {
			overview.From = key
		}
		overview.To = key
		cursor = cursor.AddDate(0, 1, 0)
	}
	return overview, nil
}

// classify resolves the reference month and counted amount for one batch.
// Paid batches count the recorded paid amount when present, the nominal
// total otherwise, keyed by due date month with paid_at as fallback.
// Pending batches need a due date to be placed at all.
func classify(batch batchdomain.BatchLicense) (domain.BucketKey, int64, bool) {
	var ref *time.Time
	amount := batch.TotalCents

	if batch.PaymentStatus == batchdomain.PaymentStatusPaid {
		if batch.PaidAmountCents != nil && *batch.PaidAmountCents > 0 {
			amount = *batch.PaidAmountCents
		}
		ref = batch.DueDate
		if ref == nil {
			ref = batch.PaidAt
		}
	} else {
		ref = batch.DueDate
	}

	if ref == nil || amount < 0 {
		return domain.BucketKey{}, 0, false
	}
	return domain.BucketKey{Year: ref.Year(), Month: ref.Month()}, amount, true
}

// roundToUnits converts cents to whole currency units, rounding half up.
func roundToUnits(cents int64) int64 {
	if cents < 0 {
		return -roundToUnits(-cents)
	}
	return (cents + 50) / 100
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
