package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	"github.com/mediasign/licenza/internal/clock"
	"github.com/mediasign/licenza/internal/rollup/domain"
	"github.com/mediasign/licenza/internal/rollup/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	node  *snowflake.Node
}

func setupTestService(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&batchdomain.BatchLicense{}))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fakeClock,
		Repo:  repository.Provide(),
	})
	return &fixture{svc: svc, db: db, clock: fakeClock, node: node}
}

type batchRow struct {
	status     batchdomain.PaymentStatus
	dueDate    *time.Time
	paidAt     *time.Time
	totalCents int64
	paidCents  *int64
}

func (f *fixture) seed(t *testing.T, row batchRow) {
	t.Helper()
	batch := batchdomain.BatchLicense{
		ID:              f.node.Generate(),
		UserID:          f.node.Generate(),
		TotalCents:      row.totalCents,
		DayOfPayment:    10,
		DueDate:         row.dueDate,
		PaymentStatus:   row.status,
		PaidAt:          row.paidAt,
		PaidAmountCents: row.paidCents,
		Metadata:        map[string]any{},
		CreatedAt:       f.clock.Now(),
		UpdatedAt:       f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&batch).Error)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func int64Ptr(v int64) *int64 { return &v }

func bucketFor(t *testing.T, o domain.Overview, label string) domain.MonthlyBucket {
	t.Helper()
	for _, bucket := range o.Buckets {
		if bucket.Label == label {
			return bucket
		}
	}
	t.Fatalf("no bucket %s", label)
	return domain.MonthlyBucket{}
}

func TestOverviewWindowShape(t *testing.T) {
	f := setupTestService(t)

	overview, err := f.svc.Overview(context.Background())
	require.NoError(t, err)

	require.Len(t, overview.Buckets, 6)
	assert.Equal(t, "2024-01", overview.Buckets[0].Label)
	assert.Equal(t, "2024-06", overview.Buckets[5].Label)
	for _, bucket := range overview.Buckets {
		assert.Zero(t, bucket.PaidUnits)
		assert.Zero(t, bucket.OpenUnits)
		assert.Zero(t, bucket.OverdueUnits)
	}
}

func TestOverviewBucketsByStatusAndDueDate(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	// Paid in May, recorded paid amount wins over nominal total.
	f.seed(t, batchRow{
		status:     batchdomain.PaymentStatusPaid,
		dueDate:    datePtr(2024, time.May, 10),
		paidAt:     datePtr(2024, time.May, 9),
		totalCents: 10000,
		paidCents:  int64Ptr(9500),
	})
	// Due earlier in June: overdue (now is June 15).
	f.seed(t, batchRow{
		status:     batchdomain.PaymentStatusPendingPayment,
		dueDate:    datePtr(2024, time.June, 10),
		totalCents: 20000,
	})
	// Due on the 30th: still open.
	f.seed(t, batchRow{
		status:     batchdomain.PaymentStatusPending,
		dueDate:    datePtr(2024, time.June, 30),
		totalCents: 5000,
	})

	overview, err := f.svc.Overview(ctx)
	require.NoError(t, err)

	may := bucketFor(t, overview, "2024-05")
	assert.Equal(t, int64(95), may.PaidUnits)
	assert.Zero(t, may.OpenUnits)
	assert.Zero(t, may.OverdueUnits)

	june := bucketFor(t, overview, "2024-06")
	assert.Zero(t, june.PaidUnits)
	assert.Equal(t, int64(50), june.OpenUnits)
	assert.Equal(t, int64(200), june.OverdueUnits)
}

func TestOverviewDueTodayIsOpen(t *testing.T) {
	f := setupTestService(t)

	f.seed(t, batchRow{
		status:     batchdomain.PaymentStatusPending,
		dueDate:    datePtr(2024, time.June, 15),
		totalCents: 3000,
	})

	overview, err := f.svc.Overview(context.Background())
	require.NoError(t, err)

	june := bucketFor(t, overview, "2024-06")
	assert.Equal(t, int64(30), june.OpenUnits)
	assert.Zero(t, june.OverdueUnits)
}

func TestOverviewPaidNeverOpenOrOverdue(t *testing.T) {
	f := setupTestService(t)

	// Paid but past due: must count only as paid.
	f.seed(t, batchRow{
		status:     batchdomain.PaymentStatusPaid,
		dueDate:    datePtr(2024, time.June, 1),
		paidAt:     datePtr(2024, time.June, 14),
		totalCents: 7000,
	})

	overview, err := f.svc.Overview(context.Background())
	require.NoError(t, err)

	june := bucketFor(t, overview, "2024-06")
	assert.Equal(t, int64(70), june.PaidUnits)
	assert.Zero(t, june.OpenUnits)
	assert.Zero(t, june.OverdueUnits)
}

func TestOverviewSkipsMalformedRows(t *testing.T) {
	f := setupTestService(t)

	// Pending without a due date cannot be placed; aggregation proceeds.
	f.seed(t, batchRow{
		status:     batchdomain.PaymentStatusPending,
		totalCents: 9999,
	})
	// Paid without due date falls back to paid_at.
	f.seed(t, batchRow{
		status:     batchdomain.PaymentStatusPaid,
		paidAt:     datePtr(2024, time.April, 20),
		totalCents: 4000,
	})

	overview, err := f.svc.Overview(context.Background())
	require.NoError(t, err)

	april := bucketFor(t, overview, "2024-04")
	assert.Equal(t, int64(40), april.PaidUnits)
	for _, bucket := range overview.Buckets {
		assert.Zero(t, bucket.OpenUnits)
		assert.Zero(t, bucket.OverdueUnits)
	}
}

func TestOverviewConservation(t *testing.T) {
	f := setupTestService(t)

	inputs := []batchRow{
		{status: batchdomain.PaymentStatusPaid, dueDate: datePtr(2024, time.June, 5), totalCents: 10000},
		{status: batchdomain.PaymentStatusPending, dueDate: datePtr(2024, time.June, 20), totalCents: 20000},
		{status: batchdomain.PaymentStatusPendingPayment, dueDate: datePtr(2024, time.June, 1), totalCents: 30000},
	}
	var wantUnits int64
	for _, row := range inputs {
		f.seed(t, row)
		wantUnits += row.totalCents / 100
	}

	overview, err := f.svc.Overview(context.Background())
	require.NoError(t, err)

	june := bucketFor(t, overview, "2024-06")
	assert.Equal(t, wantUnits, june.PaidUnits+june.OpenUnits+june.OverdueUnits)
}

func TestRoundToUnits(t *testing.T) {
	assert.Equal(t, int64(0), roundToUnits(0))
	assert.Equal(t, int64(1), roundToUnits(50))
	assert.Equal(t, int64(0), roundToUnits(49))
	assert.Equal(t, int64(35), roundToUnits(3500))
	assert.Equal(t, int64(36), roundToUnits(3550))
}
