package service

import (
	"crypto-checkout/config"
	"crypto-checkout/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CurrencyRegistry is the immutable table of supported currencies, built
// once from configuration at startup. Lookup is by upper-case code.
type CurrencyRegistry struct {
	ordered []domain.Currency
	byCode  map[string]domain.Currency
	pairs   map[string]string
	ids     map[string]string
}

// NewCurrencyRegistry builds the registry from configuration.
func NewCurrencyRegistry(cfgs []config.CurrencyConfig) *CurrencyRegistry {
	r := &CurrencyRegistry{
		byCode: make(map[string]domain.Currency, len(cfgs)),
		pairs:  make(map[string]string, len(cfgs)),
		ids:    make(map[string]string, len(cfgs)),
	}
	for _, c := range cfgs {
		cur := domain.Currency{
			Code:          c.Code,
			Name:          c.Name,
			Network:       c.Network,
			Precision:     c.Precision,
			Address:       c.Address,
			Stable:        c.Stable,
			FallbackPrice: decimal.NewFromFloat(c.FallbackPrice),
		}
		r.ordered = append(r.ordered, cur)
		r.byCode[c.Code] = cur
		r.pairs[c.Code] = c.BinanceSymbol
		r.ids[c.Code] = c.CoinGeckoID
	}
	return r
}

// Get looks up a currency by code.
func (r *CurrencyRegistry) Get(code string) (domain.Currency, bool) {
	c, ok := r.byCode[code]
	return c, ok
}

// List returns all supported currencies in configuration order.
func (r *CurrencyRegistry) List() []domain.Currency {
	return r.ordered
}

// BinancePairs maps currency codes to Binance trading pairs.
func (r *CurrencyRegistry) BinancePairs() map[string]string {
	return r.pairs
}

// CoinGeckoIDs maps currency codes to CoinGecko asset ids.
func (r *CurrencyRegistry) CoinGeckoIDs() map[string]string {
	return r.ids
}
