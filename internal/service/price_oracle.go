package service

import (
	"context"
	"time"

	"crypto-checkout/internal/core/domain"
	"crypto-checkout/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Stablecoins are expected to trade near $1; a provider answer outside
// this band is treated as garbage and skipped.
var (
	stableFloor   = decimal.RequireFromString("0.5")
	stableCeiling = decimal.RequireFromString("2.0")
)

// PriceService resolves USD prices through a shared cache and an ordered
// provider chain. It implements ports.PriceOracle: a caller always gets
// a usable price, degrading to the currency's configured fallback when
// every provider is down.
type PriceService struct {
	cache     ports.RateCache
	providers []ports.PriceProvider
	registry  *CurrencyRegistry
	ttl       time.Duration
	log       zerolog.Logger
}

// NewPriceService creates the price oracle. Providers are consulted in
// the order given.
func NewPriceService(
	cache ports.RateCache,
	providers []ports.PriceProvider,
	registry *CurrencyRegistry,
	ttl time.Duration,
	log zerolog.Logger,
) *PriceService {
	return &PriceService{
		cache:     cache,
		providers: providers,
		registry:  registry,
		ttl:       ttl,
		log:       log.With().Str("component", "price_oracle").Logger(),
	}
}

// USDPrice returns the USD price for symbol. Cache first, then each
// provider in order, then the configured fallback constant.
func (s *PriceService) USDPrice(ctx context.Context, symbol string) decimal.Decimal {
	cur, ok := s.registry.Get(symbol)
	if !ok {
		// Callers validate symbols before quoting; this path only fires on
		// a programming error. Quoting at 1:1 keeps the call total.
		s.log.Error().Str("symbol", symbol).Msg("price requested for unregistered currency")
		return decimal.NewFromInt(1)
	}

	if price, found, err := s.cache.Get(ctx, symbol); err == nil && found {
		return price
	} else if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("rate cache unavailable")
	}

	for _, p := range s.providers {
		price, err := p.USDPrice(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).
				Str("provider", p.Name()).
				Str("symbol", symbol).
				Msg("price provider failed")
			continue
		}
		if !s.plausible(cur, price) {
			s.log.Warn().
				Str("provider", p.Name()).
				Str("symbol", symbol).
				Str("price", price.String()).
				Msg("implausible price rejected")
			continue
		}

		if err := s.cache.Set(ctx, symbol, price, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("rate cache write failed")
		}
		return price
	}

	s.log.Warn().
		Str("symbol", symbol).
		Str("fallback", cur.FallbackPrice.String()).
		Msg("all price providers failed, using fallback price")
	return cur.FallbackPrice
}

// plausible rejects non-positive prices always, and stablecoin prices
// outside the [0.5, 2.0] band.
func (s *PriceService) plausible(cur domain.Currency, price decimal.Decimal) bool {
	if !price.IsPositive() {
		return false
	}
	if cur.Stable {
		return price.GreaterThanOrEqual(stableFloor) && price.LessThanOrEqual(stableCeiling)
	}
	return true
}
