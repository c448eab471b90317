package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mediasign/licenza/internal/batchlicense/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupRepoTest(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.BatchLicense{},
		&domain.BatchLicenseDevice{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	return db, node
}

func newPendingBatch(node *snowflake.Node) *domain.BatchLicense {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	return &domain.BatchLicense{
		ID:            node.Generate(),
		UserID:        node.Generate(),
		DayOfPayment:  5,
		PaymentStatus: domain.PaymentStatusPending,
		Metadata:      map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestInsertLinksDevices(t *testing.T) {
	db, node := setupRepoTest(t)
	r := Provide()

	batch := newPendingBatch(node)
	d1, d2 := node.Generate(), node.Generate()
	require.NoError(t, r.Insert(context.Background(), db, batch, []snowflake.ID{d1, d2}))

	ids, err := r.DeviceIDs(context.Background(), db, batch.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []snowflake.ID{d1, d2}, ids)
}

func TestInsertRejectsDuplicateDeviceRows(t *testing.T) {
	db, node := setupRepoTest(t)
	r := Provide()

	batch := newPendingBatch(node)
	deviceID := node.Generate()

	err := r.Insert(context.Background(), db, batch, []snowflake.ID{deviceID, deviceID})
	assert.ErrorIs(t, err, domain.ErrDuplicateDevice)
}

func TestInsertAllowsSameDeviceAcrossBatches(t *testing.T) {
	db, node := setupRepoTest(t)
	r := Provide()

	deviceID := node.Generate()
	require.NoError(t, r.Insert(context.Background(), db, newPendingBatch(node), []snowflake.ID{deviceID}))
	require.NoError(t, r.Insert(context.Background(), db, newPendingBatch(node), []snowflake.ID{deviceID}))
}
