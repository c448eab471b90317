// Package lytex implements the gateway client for the Lytex payment API.
package lytex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gatewaydomain "github.com/mediasign/licenza/internal/gateway/domain"
	obsmetrics "github.com/mediasign/licenza/internal/observability/metrics"
	"go.uber.org/zap"
)

// Config carries the Lytex API credentials.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the Lytex REST API using client-credential tokens.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, gatewaydomain.ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		httpClient:   &http.Client{Timeout: timeout},
		log:          log.Named("gateway.lytex"),
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expireInSeconds"`
}

type invoiceEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    invoiceData `json:"data"`
}

type invoiceData struct {
	ID            string `json:"_id"`
	PaymentStatus string `json:"paymentStatus"`
	PaidAt        string `json:"paidAt"`
	PaidValue     int64  `json:"paidValue"`
}

type createInvoiceRequest struct {
	ReferenceID string `json:"referenceId"`
	Value       int64  `json:"value"`
	DueDate     string `json:"dueDate"`
	Description string `json:"description"`
}

func (c *Client) CreateInvoice(ctx context.Context, req gatewaydomain.CreateInvoiceRequest) (*gatewaydomain.Invoice, error) {
	start := time.Now()
	invoice, err := c.createInvoice(ctx, req)
	obsmetrics.Reconciler().ObserveGatewayCall("create_invoice", time.Since(start), err)
	return invoice, err
}

func (c *Client) createInvoice(ctx context.Context, req gatewaydomain.CreateInvoiceRequest) (*gatewaydomain.Invoice, error) {
	payload := createInvoiceRequest{
		ReferenceID: req.ReferenceID,
		Value:       req.AmountCents,
		DueDate:     req.DueDate.Format("2006-01-02"),
		Description: req.Description,
	}

	var envelope invoiceEnvelope
	if err := c.do(ctx, http.MethodPost, "/v2/invoices", payload, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success || strings.TrimSpace(envelope.Data.ID) == "" {
		return nil, gatewaydomain.ErrInvalidResponse
	}
	return envelope.Data.toInvoice(), nil
}

func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*gatewaydomain.Invoice, error) {
	start := time.Now()
	invoice, err := c.getInvoice(ctx, invoiceID)
	obsmetrics.Reconciler().ObserveGatewayCall("get_invoice", time.Since(start), err)
	return invoice, err
}

func (c *Client) getInvoice(ctx context.Context, invoiceID string) (*gatewaydomain.Invoice, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, gatewaydomain.ErrInvoiceNotFound
	}

	var envelope invoiceEnvelope
	err := c.do(ctx, http.MethodGet, "/v2/invoices/"+invoiceID, nil, &envelope)
	if err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, gatewaydomain.ErrInvoiceNotFound
	}
	return envelope.Data.toInvoice(), nil
}

func (d invoiceData) toInvoice() *gatewaydomain.Invoice {
	invoice := &gatewaydomain.Invoice{
		ID:              d.ID,
		Status:          gatewaydomain.InvoiceStatus(strings.ToLower(strings.TrimSpace(d.PaymentStatus))),
		PaidAmountCents: d.PaidValue,
	}
	if paidAt, err := time.Parse(time.RFC3339, strings.TrimSpace(d.PaidAt)); err == nil {
		invoice.PaidAt = &paidAt
	}
	return invoice
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gatewaydomain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return gatewaydomain.ErrInvoiceNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		// Token may have been revoked early; drop the cache so the next
		// call reauthenticates.
		c.mu.Lock()
		c.accessToken = ""
		c.mu.Unlock()
		return fmt.Errorf("%w: unauthorized", gatewaydomain.ErrUnavailable)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", gatewaydomain.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", gatewaydomain.ErrInvalidResponse, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", gatewaydomain.ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		token := c.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	encoded, err := json.Marshal(map[string]string{
		"grantType":    "clientCredentials",
		"clientId":     c.clientID,
		"clientSecret": c.clientSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/auth/obtain_token", bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gatewaydomain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: token status %d", gatewaydomain.ErrUnavailable, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: %v", gatewaydomain.ErrInvalidResponse, err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return "", gatewaydomain.ErrInvalidResponse
	}

	expiresIn := token.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 300
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn-30) * time.Second)
	c.mu.Unlock()

	return token.AccessToken, nil
}

var _ gatewaydomain.Client = (*Client)(nil)
