package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the per-user ledger record: spendable USD balance plus
// cumulative deposit and order statistics. The ID is assigned by the
// chat front end and is opaque to this system.
type User struct {
	ID             string          `json:"user_id"`
	Balance        decimal.Decimal `json:"balance"`
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	TotalOrders    int64           `json:"total_orders"`
	RegisteredAt   time.Time       `json:"registered_at"`
	FirstTopUpAt   *time.Time      `json:"first_topup_at,omitempty"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}

// CanAfford reports whether the balance covers the given price.
func (u *User) CanAfford(price decimal.Decimal) bool {
	return u.Balance.GreaterThanOrEqual(price)
}

// Shortfall returns how much is missing to cover price. Zero when affordable.
func (u *User) Shortfall(price decimal.Decimal) decimal.Decimal {
	short := price.Sub(u.Balance)
	if short.IsNegative() {
		return decimal.Zero
	}
	return short
}
