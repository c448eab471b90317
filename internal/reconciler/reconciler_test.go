package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	gatewaydomain "github.com/mediasign/licenza/internal/gateway/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeService struct {
	batchdomain.Service

	awaiting []batchdomain.BatchLicense
	listErr  error
	checkErr map[snowflake.ID]error
	settled  map[snowflake.ID]bool
	checked  []snowflake.ID
	block    time.Duration
}

func (f *fakeService) ListAwaitingSettlement(ctx context.Context, _ int) ([]batchdomain.BatchLicense, error) {
	if f.block > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.block):
		}
	}
	return f.awaiting, f.listErr
}

func (f *fakeService) CheckPaymentStatus(_ context.Context, id snowflake.ID) (batchdomain.ReconcileResult, error) {
	f.checked = append(f.checked, id)
	if err := f.checkErr[id]; err != nil {
		return batchdomain.ReconcileResult{}, err
	}
	return batchdomain.ReconcileResult{Settled: f.settled[id]}, nil
}

type stubGateway struct{}

func (stubGateway) CreateInvoice(context.Context, gatewaydomain.CreateInvoiceRequest) (*gatewaydomain.Invoice, error) {
	return nil, gatewaydomain.ErrUnavailable
}

func (stubGateway) GetInvoice(context.Context, string) (*gatewaydomain.Invoice, error) {
	return nil, gatewaydomain.ErrUnavailable
}

func newTestReconciler(svc batchdomain.Service, gw gatewaydomain.Client, cfg Config) *Reconciler {
	return New(Params{
		Log:     zap.NewNop(),
		Service: svc,
		Gateway: gw,
	}, cfg)
}

func batchWithID(node *snowflake.Node) batchdomain.BatchLicense {
	return batchdomain.BatchLicense{ID: node.Generate(), PaymentStatus: batchdomain.PaymentStatusPendingPayment}
}

func TestRunOnceSweepsAllBatches(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	b1 := batchWithID(node)
	b2 := batchWithID(node)
	b3 := batchWithID(node)
	svc := &fakeService{
		awaiting: []batchdomain.BatchLicense{b1, b2, b3},
		settled:  map[snowflake.ID]bool{b2.ID: true},
	}

	r := newTestReconciler(svc, stubGateway{}, Config{})
	require.NoError(t, r.RunOnce(context.Background()))
	assert.Equal(t, []snowflake.ID{b1.ID, b2.ID, b3.ID}, svc.checked)
}

func TestRunOnceContinuesPastBatchErrors(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	b1 := batchWithID(node)
	b2 := batchWithID(node)
	svc := &fakeService{
		awaiting: []batchdomain.BatchLicense{b1, b2},
		checkErr: map[snowflake.ID]error{b1.ID: batchdomain.ErrGatewayUnavailable},
	}

	r := newTestReconciler(svc, stubGateway{}, Config{})
	require.NoError(t, r.RunOnce(context.Background()))
	assert.Equal(t, []snowflake.ID{b1.ID, b2.ID}, svc.checked)
}

func TestRunOnceListFailure(t *testing.T) {
	svc := &fakeService{listErr: errors.New("db down")}
	r := newTestReconciler(svc, stubGateway{}, Config{})
	assert.Error(t, r.RunOnce(context.Background()))
}

func TestRunOnceDisabledWithoutGateway(t *testing.T) {
	svc := &fakeService{awaiting: []batchdomain.BatchLicense{{ID: 1}}}
	r := newTestReconciler(svc, nil, Config{})
	require.NoError(t, r.RunOnce(context.Background()))
	assert.Empty(t, svc.checked)
}

func TestRunOnceDeadlineIsSoft(t *testing.T) {
	svc := &fakeService{block: 200 * time.Millisecond}
	r := newTestReconciler(svc, stubGateway{}, Config{RunTimeout: 20 * time.Millisecond})
	assert.NoError(t, r.RunOnce(context.Background()))
}

func TestRunForeverStopsOnContextCancel(t *testing.T) {
	svc := &fakeService{}
	r := newTestReconciler(svc, stubGateway{}, Config{RunInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.RunForever(ctx)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop")
	}
}
