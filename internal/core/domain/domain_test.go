package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusExpired, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusPaid, OrderStatusExpired, false},
		{OrderStatusExpired, OrderStatusPaid, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.True(t, OrderStatusPaid.IsTerminal())
	assert.True(t, OrderStatusExpired.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
}

func TestOrder_IsDeposit(t *testing.T) {
	deposit := &Order{}
	assert.True(t, deposit.IsDeposit())

	productID := int64(7)
	purchase := &Order{ProductID: &productID}
	assert.False(t, purchase.IsDeposit())
}

func TestOrder_Expiry(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := &Order{CreatedAt: created, ExpiresAt: created.Add(15 * time.Minute)}

	assert.False(t, o.IsExpiredAt(created.Add(14*time.Minute)))
	assert.False(t, o.IsExpiredAt(created.Add(15*time.Minute)))
	assert.True(t, o.IsExpiredAt(created.Add(15*time.Minute+time.Second)))

	assert.Equal(t, time.Minute, o.TimeRemaining(created.Add(14*time.Minute)))
	assert.Equal(t, time.Duration(0), o.TimeRemaining(created.Add(time.Hour)))
}

func TestUser_Shortfall(t *testing.T) {
	u := &User{Balance: decimal.RequireFromString("30")}
	price := decimal.RequireFromString("45")

	assert.False(t, u.CanAfford(price))
	assert.True(t, u.Shortfall(price).Equal(decimal.RequireFromString("15")))

	cheap := decimal.RequireFromString("30")
	assert.True(t, u.CanAfford(cheap))
	assert.True(t, u.Shortfall(cheap).IsZero())
}
