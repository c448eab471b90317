package lytex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gatewaydomain "github.com/mediasign/licenza/internal/gateway/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLytex struct {
	tokenCalls   int64
	invoiceCalls int64

	tokenStatus   int
	invoiceStatus int
	invoiceBody   map[string]any
}

func (f *fakeLytex) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/auth/obtain_token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.tokenCalls, 1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["grantType"] != "clientCredentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status := f.tokenStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":     "tok_abc",
			"expireInSeconds": 3600,
		})
	})
	mux.HandleFunc("/v2/invoices/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.invoiceCalls, 1)
		if r.Header.Get("Authorization") != "Bearer tok_abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		status := f.invoiceStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if f.invoiceBody != nil {
			_ = json.NewEncoder(w).Encode(f.invoiceBody)
		}
	})
	mux.HandleFunc("/v2/invoices", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.invoiceCalls, 1)
		if r.Header.Get("Authorization") != "Bearer tok_abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"_id":           "inv_new",
				"paymentStatus": "pending",
			},
		})
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeLytex) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://example.com"}, zap.NewNop())
	assert.ErrorIs(t, err, gatewaydomain.ErrNotConfigured)
}

func TestCreateInvoice(t *testing.T) {
	fake := &fakeLytex{}
	client := newTestClient(t, fake)

	invoice, err := client.CreateInvoice(context.Background(), gatewaydomain.CreateInvoiceRequest{
		ReferenceID: "batch-1",
		AmountCents: 10500,
		DueDate:     time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
		Description: "Licenciamento",
	})
	require.NoError(t, err)
	assert.Equal(t, "inv_new", invoice.ID)
	assert.Equal(t, gatewaydomain.InvoiceStatusPending, invoice.Status)
}

func TestGetInvoiceSettled(t *testing.T) {
	fake := &fakeLytex{
		invoiceBody: map[string]any{
			"success": true,
			"data": map[string]any{
				"_id":           "inv_1",
				"paymentStatus": "Liquidated",
				"paidAt":        "2024-02-03T10:00:00Z",
				"paidValue":     10500,
			},
		},
	}
	client := newTestClient(t, fake)

	invoice, err := client.GetInvoice(context.Background(), "inv_1")
	require.NoError(t, err)
	assert.Equal(t, gatewaydomain.InvoiceStatusLiquidated, invoice.Status)
	assert.True(t, invoice.Status.Settled())
	assert.Equal(t, int64(10500), invoice.PaidAmountCents)
	require.NotNil(t, invoice.PaidAt)
	assert.Equal(t, 2024, invoice.PaidAt.Year())
}

func TestGetInvoiceReusesToken(t *testing.T) {
	fake := &fakeLytex{
		invoiceBody: map[string]any{
			"success": true,
			"data":    map[string]any{"_id": "inv_1", "paymentStatus": "pending"},
		},
	}
	client := newTestClient(t, fake)

	ctx := context.Background()
	_, err := client.GetInvoice(ctx, "inv_1")
	require.NoError(t, err)
	_, err = client.GetInvoice(ctx, "inv_1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&fake.tokenCalls))
	assert.Equal(t, int64(2), atomic.LoadInt64(&fake.invoiceCalls))
}

func TestGetInvoiceNotFound(t *testing.T) {
	fake := &fakeLytex{invoiceStatus: http.StatusNotFound}
	client := newTestClient(t, fake)

	_, err := client.GetInvoice(context.Background(), "missing")
	assert.ErrorIs(t, err, gatewaydomain.ErrInvoiceNotFound)
}

func TestGetInvoiceServerErrorIsUnavailable(t *testing.T) {
	fake := &fakeLytex{invoiceStatus: http.StatusInternalServerError}
	client := newTestClient(t, fake)

	_, err := client.GetInvoice(context.Background(), "inv_1")
	assert.ErrorIs(t, err, gatewaydomain.ErrUnavailable)
}

func TestTokenFailureSurfacesUnavailable(t *testing.T) {
	fake := &fakeLytex{tokenStatus: http.StatusForbidden}
	client := newTestClient(t, fake)

	_, err := client.GetInvoice(context.Background(), "inv_1")
	assert.ErrorIs(t, err, gatewaydomain.ErrUnavailable)
}
