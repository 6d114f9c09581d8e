package handler

import (
	"strconv"
	"strings"
	"time"

	"crypto-checkout/internal/adapter/http/dto"
	"crypto-checkout/internal/core/ports"
	"crypto-checkout/pkg/apperror"
	"crypto-checkout/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderHandler handles order lifecycle endpoints.
type OrderHandler struct {
	engine ports.OrderEngine
	quotes ports.QuoteService
	orders ports.OrderRepository
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(engine ports.OrderEngine, quotes ports.QuoteService, orders ports.OrderRepository) *OrderHandler {
	return &OrderHandler{engine: engine, quotes: quotes, orders: orders}
}

// CreateDeposit handles POST /api/v1/deposits.
func (h *OrderHandler) CreateDeposit(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	order, err := h.engine.Begin(c.Request.Context(), ports.BeginOrderRequest{
		UserID:    req.UserID,
		USDAmount: req.AmountUSD,
		Currency:  strings.ToUpper(req.Currency),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToOrderResponse(order, time.Now().UTC()))
}

// PreviewDeposit handles GET /api/v1/deposits/preview.
// Query params: amount_usd (required), currency (optional; all when absent).
func (h *OrderHandler) PreviewDeposit(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount_usd"))
	if err != nil || !amount.IsPositive() {
		response.Error(c, apperror.Validation("amount_usd must be a positive decimal"))
		return
	}

	if symbol := c.Query("currency"); symbol != "" {
		quote, err := h.quotes.Quote(c.Request.Context(), amount, strings.ToUpper(symbol))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, dto.QuoteResponse{
			Currency:     quote.Currency,
			Rate:         quote.Rate,
			CryptoAmount: quote.CryptoAmount,
		})
		return
	}

	quotes, err := h.quotes.QuoteAll(c.Request.Context(), amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, dto.QuoteResponse{
			Currency:     q.Currency,
			Rate:         q.Rate,
			CryptoAmount: q.CryptoAmount,
		})
	}
	response.OK(c, out)
}

// CreateOrder handles POST /api/v1/orders — a crypto-paid product order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.PurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	order, err := h.engine.Begin(c.Request.Context(), ports.BeginOrderRequest{
		UserID:    req.UserID,
		Currency:  strings.ToUpper(req.Currency),
		ProductID: &req.ProductID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToOrderResponse(order, time.Now().UTC()))
}

// GetOrder handles GET /api/v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if order == nil {
		response.Error(c, apperror.ErrOrderNotFound())
		return
	}

	response.OK(c, dto.ToOrderResponse(order, time.Now().UTC()))
}

// ConfirmOrder handles POST /api/v1/orders/:id/confirm.
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	result, err := h.engine.Confirm(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToConfirmResponse(result, time.Now().UTC()))
}

func parseOrderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperror.Validation("order id must be a positive integer"))
		return 0, false
	}
	return id, true
}
