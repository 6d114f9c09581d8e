package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusExpired   OrderStatus = "EXPIRED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsTerminal returns true if the status is final.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusExpired || s == OrderStatusCancelled
}

// CanTransitionTo enforces the legal transition table: only Pending may
// move, and only into a terminal state.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	return s == OrderStatusPending && to.IsTerminal()
}

// Order is a single quoted, time-bounded payment obligation — either a
// balance deposit (ProductID nil) or a product purchase. CryptoAmount and
// LockedRate are fixed at creation time and never change: that is the
// quote lock.
type Order struct {
	ID           int64           `json:"order_id"`
	UserID       string          `json:"user_id"`
	ProductID    *int64          `json:"product_id,omitempty"`
	USDAmount    decimal.Decimal `json:"usd_amount"`
	Currency     string          `json:"currency"`
	CryptoAmount decimal.Decimal `json:"crypto_amount"`
	LockedRate   decimal.Decimal `json:"locked_rate"`
	PayToAddress string          `json:"pay_to_address"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
}

// IsDeposit returns true for pure balance top-ups.
func (o *Order) IsDeposit() bool {
	return o.ProductID == nil
}

// IsExpiredAt reports whether the quote lock has lapsed at the given time.
func (o *Order) IsExpiredAt(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// TimeRemaining returns how long the quote lock is still valid, floored at zero.
func (o *Order) TimeRemaining(now time.Time) time.Duration {
	if remaining := o.ExpiresAt.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}
