package dto

import (
	"time"

	"crypto-checkout/internal/core/domain"
	"crypto-checkout/internal/core/ports"

	"github.com/shopspring/decimal"
)

// DepositRequest is the request body for opening a deposit order.
type DepositRequest struct {
	UserID    string          `json:"user_id" binding:"required,safe_id,max=64"`
	AmountUSD decimal.Decimal `json:"amount_usd" binding:"required"`
	Currency  string          `json:"currency" binding:"required,max=10"`
}

// PurchaseOrderRequest is the request body for opening a crypto-paid
// product order.
type PurchaseOrderRequest struct {
	UserID    string `json:"user_id" binding:"required,safe_id,max=64"`
	ProductID int64  `json:"product_id" binding:"required,gt=0"`
	Currency  string `json:"currency" binding:"required,max=10"`
}

// BalancePurchaseRequest is the request body for buying a product from
// the USD balance.
type BalancePurchaseRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
}

// MarkReceivedRequest is the admin request body for recording funds
// observed at a payment address.
type MarkReceivedRequest struct {
	Currency string          `json:"currency" binding:"required,max=10"`
	Address  string          `json:"address" binding:"required,max=128"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// OrderResponse is the wire shape of an order.
type OrderResponse struct {
	ID               int64           `json:"id"`
	UserID           string          `json:"user_id"`
	ProductID        *int64          `json:"product_id,omitempty"`
	USDAmount        decimal.Decimal `json:"usd_amount"`
	Currency         string          `json:"currency"`
	CryptoAmount     decimal.Decimal `json:"crypto_amount"`
	LockedRate       decimal.Decimal `json:"locked_rate"`
	PayToAddress     string          `json:"pay_to_address"`
	Status           string          `json:"status"`
	CreatedAt        string          `json:"created_at"`
	ExpiresAt        string          `json:"expires_at"`
	PaidAt           *string         `json:"paid_at,omitempty"`
	SecondsRemaining int64           `json:"seconds_remaining"`
}

// ToOrderResponse converts a domain order for the wire. now drives the
// seconds_remaining countdown.
func ToOrderResponse(o *domain.Order, now time.Time) OrderResponse {
	resp := OrderResponse{
		ID:           o.ID,
		UserID:       o.UserID,
		ProductID:    o.ProductID,
		USDAmount:    o.USDAmount,
		Currency:     o.Currency,
		CryptoAmount: o.CryptoAmount,
		LockedRate:   o.LockedRate,
		PayToAddress: o.PayToAddress,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:    o.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if o.PaidAt != nil {
		paidAt := o.PaidAt.UTC().Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	if o.Status == domain.OrderStatusPending {
		resp.SecondsRemaining = int64(o.TimeRemaining(now).Seconds())
	}
	return resp
}

// ConfirmResponse is the response body for a confirm call.
type ConfirmResponse struct {
	Outcome string        `json:"outcome"`
	Order   OrderResponse `json:"order"`
}

// ToConfirmResponse converts a confirm result for the wire.
func ToConfirmResponse(r *ports.ConfirmResult, now time.Time) ConfirmResponse {
	return ConfirmResponse{
		Outcome: string(r.Outcome),
		Order:   ToOrderResponse(r.Order, now),
	}
}

// LedgerResponse is the wire shape of a user ledger record.
type LedgerResponse struct {
	UserID         string          `json:"user_id"`
	Balance        decimal.Decimal `json:"balance"`
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	TotalOrders    int64           `json:"total_orders"`
	RegisteredAt   string          `json:"registered_at"`
	FirstTopUpAt   *string         `json:"first_topup_at,omitempty"`
	LastActivityAt string          `json:"last_activity_at"`
}

// ToLedgerResponse converts a domain user for the wire.
func ToLedgerResponse(u *domain.User) LedgerResponse {
	resp := LedgerResponse{
		UserID:         u.ID,
		Balance:        u.Balance,
		TotalDeposited: u.TotalDeposited,
		TotalOrders:    u.TotalOrders,
		RegisteredAt:   u.RegisteredAt.UTC().Format(time.RFC3339),
		LastActivityAt: u.LastActivityAt.UTC().Format(time.RFC3339),
	}
	if u.FirstTopUpAt != nil {
		first := u.FirstTopUpAt.UTC().Format(time.RFC3339)
		resp.FirstTopUpAt = &first
	}
	return resp
}

// PurchaseResponse is the response body for a balance purchase.
type PurchaseResponse struct {
	Product ProductResponse `json:"product"`
	Ledger  LedgerResponse  `json:"ledger"`
}

// ProductResponse is the wire shape of a catalog item.
type ProductResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// ToProductResponse converts a domain product for the wire.
func ToProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
	}
}

// CurrencyResponse is the wire shape of a supported currency. Payment
// addresses are delivered per order, not in the catalog.
type CurrencyResponse struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Network   string `json:"network"`
	Precision int32  `json:"precision"`
	Stable    bool   `json:"stable"`
}

// ToCurrencyResponse converts a domain currency for the wire.
func ToCurrencyResponse(c domain.Currency) CurrencyResponse {
	return CurrencyResponse{
		Code:      c.Code,
		Name:      c.Name,
		Network:   c.Network,
		Precision: c.Precision,
		Stable:    c.Stable,
	}
}

// QuoteResponse is the wire shape of a conversion preview.
type QuoteResponse struct {
	Currency     string          `json:"currency"`
	Rate         decimal.Decimal `json:"rate"`
	CryptoAmount decimal.Decimal `json:"crypto_amount"`
}

// ReceivedResponse is the response body after marking funds received.
type ReceivedResponse struct {
	Currency      string          `json:"currency"`
	Address       string          `json:"address"`
	TotalReceived decimal.Decimal `json:"total_received"`
}

// MaintenanceResponse reports how many orders a sweep or purge touched.
type MaintenanceResponse struct {
	Affected int64 `json:"affected"`
}
