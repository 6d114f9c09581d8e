package handler

import (
	"strconv"
	"time"

	"crypto-checkout/internal/adapter/http/dto"
	"crypto-checkout/internal/core/ports"
	"crypto-checkout/pkg/apperror"
	"crypto-checkout/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler handles user profile and purchase endpoints.
type UserHandler struct {
	engine ports.OrderEngine
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(engine ports.OrderEngine) *UserHandler {
	return &UserHandler{engine: engine}
}

// GetLedger handles GET /api/v1/users/:user_id. Unknown users are
// registered on first contact with a zero ledger.
func (h *UserHandler) GetLedger(c *gin.Context) {
	userID := c.Param("user_id")

	user, err := h.engine.GetLedger(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToLedgerResponse(user))
}

// ListOrders handles GET /api/v1/users/:user_id/orders. The optional
// limit query caps the page; the engine default applies otherwise.
func (h *UserHandler) ListOrders(c *gin.Context) {
	userID := c.Param("user_id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			response.Error(c, apperror.Validation("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	orders, err := h.engine.ListOrders(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	now := time.Now().UTC()
	out := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, dto.ToOrderResponse(&orders[i], now))
	}
	response.OK(c, out)
}

// PurchaseWithBalance handles POST /api/v1/users/:user_id/purchases.
func (h *UserHandler) PurchaseWithBalance(c *gin.Context) {
	userID := c.Param("user_id")

	var req dto.BalancePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.engine.PurchaseWithBalance(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.PurchaseResponse{
		Product: dto.ToProductResponse(result.Product),
		Ledger:  dto.ToLedgerResponse(result.User),
	})
}
