package handler

import (
	"strings"
	"time"

	"crypto-checkout/internal/adapter/http/dto"
	"crypto-checkout/internal/core/ports"
	"crypto-checkout/pkg/apperror"
	"crypto-checkout/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles operator endpoints: the manual payment oracle
// and order maintenance.
type AdminHandler struct {
	engine ports.OrderEngine
	marker ports.ConfirmationMarker
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(engine ports.OrderEngine, marker ports.ConfirmationMarker) *AdminHandler {
	return &AdminHandler{engine: engine, marker: marker}
}

// MarkReceived handles POST /api/v1/admin/payments/received. It records
// funds observed at a payment address; a later Confirm on a covering
// order settles it.
func (h *AdminHandler) MarkReceived(c *gin.Context) {
	var req dto.MarkReceivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if !req.Amount.IsPositive() {
		response.Error(c, apperror.Validation("amount must be positive"))
		return
	}

	currency := strings.ToUpper(req.Currency)
	total, err := h.marker.MarkReceived(c.Request.Context(), currency, req.Address, req.Amount)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.ReceivedResponse{
		Currency:      currency,
		Address:       req.Address,
		TotalReceived: total,
	})
}

// CancelOrder handles POST /api/v1/admin/orders/:id/cancel.
func (h *AdminHandler) CancelOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.engine.Cancel(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToOrderResponse(order, time.Now().UTC()))
}

// Sweep handles POST /api/v1/admin/sweep — an on-demand expiry pass on
// top of the periodic job.
func (h *AdminHandler) Sweep(c *gin.Context) {
	n, err := h.engine.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.OK(c, dto.MaintenanceResponse{Affected: n})
}

// Purge handles POST /api/v1/admin/purge — deletes terminal orders
// older than the retention horizon.
func (h *AdminHandler) Purge(c *gin.Context) {
	n, err := h.engine.PurgeTerminal(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.OK(c, dto.MaintenanceResponse{Affected: n})
}
