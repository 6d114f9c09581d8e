package service

import (
	"context"
	"testing"

	"crypto-checkout/config"
	"crypto-checkout/internal/core/ports/mocks"
	"crypto-checkout/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testCurrencyConfigs() []config.CurrencyConfig {
	return []config.CurrencyConfig{
		{Code: "BTC", Name: "Bitcoin", Network: "BTC", Precision: 8, Address: "bc1qtest", FallbackPrice: 45000, BinanceSymbol: "BTCUSDT", CoinGeckoID: "bitcoin"},
		{Code: "LTC", Name: "Litecoin", Network: "LTC", Precision: 8, Address: "ltc1qtest", FallbackPrice: 75, BinanceSymbol: "LTCUSDT", CoinGeckoID: "litecoin"},
		{Code: "USDT", Name: "USDT (BEP20)", Network: "BEP20", Precision: 2, Address: "0xtest", Stable: true, FallbackPrice: 1, CoinGeckoID: "tether"},
	}
}

func TestQuoter_Quote_RoundsHalfAwayFromZero(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oracle := mocks.NewMockPriceOracle(ctrl)
	q := NewQuoter(oracle, NewCurrencyRegistry(testCurrencyConfigs()))
	ctx := context.Background()

	// 100 / 45000 = 0.0022222... -> 8 decimal places
	oracle.EXPECT().USDPrice(ctx, "BTC").Return(decimal.NewFromInt(45000))

	quote, err := q.Quote(ctx, decimal.NewFromInt(100), "BTC")
	require.NoError(t, err)
	assert.Equal(t, "0.00222222", quote.CryptoAmount.String())
	assert.Equal(t, "45000", quote.Rate.String())
}

func TestQuoter_Quote_StablecoinPrecision(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oracle := mocks.NewMockPriceOracle(ctrl)
	q := NewQuoter(oracle, NewCurrencyRegistry(testCurrencyConfigs()))
	ctx := context.Background()

	oracle.EXPECT().USDPrice(ctx, "USDT").Return(decimal.RequireFromString("0.9998"))

	quote, err := q.Quote(ctx, decimal.RequireFromString("49.99"), "USDT")
	require.NoError(t, err)
	// 49.99 / 0.9998 = 50.0000... -> 2 decimal places
	assert.Equal(t, "50", quote.CryptoAmount.String())
}

func TestQuoter_Quote_UnknownCurrency(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oracle := mocks.NewMockPriceOracle(ctrl)
	q := NewQuoter(oracle, NewCurrencyRegistry(testCurrencyConfigs()))

	_, err := q.Quote(context.Background(), decimal.NewFromInt(10), "DOGE")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_002", appErr.Code)
}

func TestQuoter_Quote_NonPositiveRateSubstitutesParity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oracle := mocks.NewMockPriceOracle(ctrl)
	q := NewQuoter(oracle, NewCurrencyRegistry(testCurrencyConfigs()))
	ctx := context.Background()

	oracle.EXPECT().USDPrice(ctx, "LTC").Return(decimal.Zero)

	quote, err := q.Quote(ctx, decimal.NewFromInt(25), "LTC")
	require.NoError(t, err)
	assert.Equal(t, "1", quote.Rate.String())
	assert.Equal(t, "25", quote.CryptoAmount.String())
}

func TestQuoter_QuoteAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	oracle := mocks.NewMockPriceOracle(ctrl)
	q := NewQuoter(oracle, NewCurrencyRegistry(testCurrencyConfigs()))
	ctx := context.Background()

	oracle.EXPECT().USDPrice(ctx, "BTC").Return(decimal.NewFromInt(50000))
	oracle.EXPECT().USDPrice(ctx, "LTC").Return(decimal.NewFromInt(80))
	oracle.EXPECT().USDPrice(ctx, "USDT").Return(decimal.NewFromInt(1))

	quotes, err := q.QuoteAll(ctx, decimal.NewFromInt(40))
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, "BTC", quotes[0].Currency)
	assert.Equal(t, "0.0008", quotes[0].CryptoAmount.String())
	assert.Equal(t, "LTC", quotes[1].Currency)
	assert.Equal(t, "0.5", quotes[1].CryptoAmount.String())
	assert.Equal(t, "USDT", quotes[2].Currency)
	assert.Equal(t, "40", quotes[2].CryptoAmount.String())
}
