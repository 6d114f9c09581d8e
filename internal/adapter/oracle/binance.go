package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// BinanceProvider fetches spot prices from the Binance public ticker API.
// It implements ports.PriceProvider.
type BinanceProvider struct {
	baseURL string
	client  *http.Client
	pairs   map[string]string // symbol -> trading pair, e.g. BTC -> BTCUSDT
}

// NewBinanceProvider creates a Binance price provider. pairs maps each
// supported symbol to its USDT trading pair; symbols without a pair
// (stablecoins) are reported as unsupported.
func NewBinanceProvider(baseURL string, timeout time.Duration, pairs map[string]string) *BinanceProvider {
	return &BinanceProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		pairs:   pairs,
	}
}

// Name returns the provider name for logging.
func (p *BinanceProvider) Name() string {
	return "binance"
}

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// USDPrice fetches the current USD price for symbol.
func (p *BinanceProvider) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair, ok := p.pairs[symbol]
	if !ok || pair == "" {
		return decimal.Zero, fmt.Errorf("binance: no trading pair for %s", symbol)
	}

	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", p.baseURL, url.QueryEscape(pair))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: fetch %s: %w", pair, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("binance: unexpected status %d for %s", resp.StatusCode, pair)
	}

	var ticker binanceTicker
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return decimal.Zero, fmt.Errorf("binance: decode response: %w", err)
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: parse price %q: %w", ticker.Price, err)
	}
	return price, nil
}
