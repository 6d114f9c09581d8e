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

// CoinGeckoProvider fetches prices from the CoinGecko simple price API.
// It implements ports.PriceProvider and covers symbols Binance does not
// list, stablecoins included.
type CoinGeckoProvider struct {
	baseURL string
	client  *http.Client
	ids     map[string]string // symbol -> coingecko id, e.g. BTC -> bitcoin
}

// NewCoinGeckoProvider creates a CoinGecko price provider.
func NewCoinGeckoProvider(baseURL string, timeout time.Duration, ids map[string]string) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		ids:     ids,
	}
}

// Name returns the provider name for logging.
func (p *CoinGeckoProvider) Name() string {
	return "coingecko"
}

// USDPrice fetches the current USD price for symbol.
func (p *CoinGeckoProvider) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	id, ok := p.ids[symbol]
	if !ok || id == "" {
		return decimal.Zero, fmt.Errorf("coingecko: no id for %s", symbol)
	}

	endpoint := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", p.baseURL, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: fetch %s: %w", id, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("coingecko: unexpected status %d for %s", resp.StatusCode, id)
	}

	var body map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: decode response: %w", err)
	}

	usd, ok := body[id]["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("coingecko: no usd price for %s", id)
	}

	price, err := decimal.NewFromString(usd.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko: parse price %q: %w", usd.String(), err)
	}
	return price, nil
}
