package domain

import "github.com/shopspring/decimal"

// Currency describes a supported cryptocurrency: how to display it, how
// precisely to round amounts in it, where payments for it go, and what
// to assume its price is when every provider is down.
type Currency struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Network       string          `json:"network"`
	Precision     int32           `json:"precision"`
	Address       string          `json:"-"`
	Stable        bool            `json:"stable"`
	FallbackPrice decimal.Decimal `json:"-"`
}

// Quote is a converted amount at a point-in-time exchange rate.
type Quote struct {
	Currency     string          `json:"currency"`
	Rate         decimal.Decimal `json:"rate"`
	CryptoAmount decimal.Decimal `json:"crypto_amount"`
}
