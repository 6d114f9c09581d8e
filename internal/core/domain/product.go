package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item purchasable with a crypto order or directly
// from balance.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}
