package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	batchdomain "github.com/mediasign/licenza/internal/batchlicense/domain"
	batchservice "github.com/mediasign/licenza/internal/batchlicense/service"
	obsmetrics "github.com/mediasign/licenza/internal/observability/metrics"
	"github.com/mediasign/licenza/pkg/db/pagination"
)

type createBatchLicenseRequest struct {
	UserID       string   `json:"user_id" binding:"required"`
	DeviceIDs    []string `json:"device_ids" binding:"required"`
	Value        string   `json:"value"`
	DayOfPayment int      `json:"day_of_payment" binding:"required"`
	Notes        string   `json:"notes"`
}

type confirmBatchLicenseRequest struct {
	Notes      string `json:"notes"`
	PaidAmount string `json:"paid_amount"`
}

type listBatchLicensesQuery struct {
	pagination.Pagination
	UserID string `form:"user_id"`
	Status string `form:"status"`
}

func (s *Server) CreateBatchLicense(c *gin.Context) {
	var req createBatchLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	userID, err := snowflake.ParseString(req.UserID)
	if err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user id"))
		return
	}

	deviceIDs := make([]snowflake.ID, 0, len(req.DeviceIDs))
	for _, raw := range req.DeviceIDs {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("device_ids", "invalid_device_id", "invalid device id"))
			return
		}
		deviceIDs = append(deviceIDs, id)
	}

	batch, err := s.batchSvc.Create(c.Request.Context(), batchdomain.CreateBatchRequest{
		UserID:       userID,
		DeviceIDs:    deviceIDs,
		Value:        req.Value,
		DayOfPayment: req.DayOfPayment,
		Notes:        req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, batch)
}

func (s *Server) ListBatchLicenses(c *gin.Context) {
	var query listBatchLicensesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	req := batchdomain.ListBatchRequest{
		Status: batchdomain.PaymentStatus(strings.TrimSpace(query.Status)),
		Page:   query.Pagination,
	}
	if raw := strings.TrimSpace(query.UserID); raw != "" {
		userID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user id"))
			return
		}
		req.UserID = userID
	}

	resp, err := s.batchSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetBatchLicense(c *gin.Context) {
	id, ok := s.batchIDParam(c)
	if !ok {
		return
	}

	batch, err := s.batchSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

func (s *Server) OpenBatchInvoice(c *gin.Context) {
	id, ok := s.batchIDParam(c)
	if !ok {
		return
	}

	batch, err := s.batchSvc.OpenInvoice(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

func (s *Server) ConfirmBatchLicense(c *gin.Context) {
	id, ok := s.batchIDParam(c)
	if !ok {
		return
	}

	var req confirmBatchLicenseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
			return
		}
	}

	var paidAmountCents int64
	if raw := strings.TrimSpace(req.PaidAmount); raw != "" {
		cents, err := batchservice.ParseCents(raw)
		if err != nil {
			AbortWithError(c, newValidationError("paid_amount", "invalid_value", "invalid paid amount"))
			return
		}
		paidAmountCents = cents
	}

	result, err := s.batchSvc.Confirm(c.Request.Context(), batchdomain.ConfirmRequest{
		BatchID:         id,
		Notes:           req.Notes,
		PaidAmountCents: paidAmountCents,
		Source:          obsmetrics.ConfirmationSourceManual,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) CheckBatchPaymentStatus(c *gin.Context) {
	id, ok := s.batchIDParam(c)
	if !ok {
		return
	}

	result, err := s.batchSvc.CheckPaymentStatus(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) batchIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid batch id"))
		return 0, false
	}
	return id, true
}
