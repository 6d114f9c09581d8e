package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// receivedScale is the fixed exponent for stored totals. Amounts live
// in Redis as integer minor units (10^-8, the highest currency
// precision), so INCRBY accumulates them exactly. A float INCRBYFLOAT
// would drift right at the >= boundary Confirmed decides on.
const receivedScale = 8

// ConfirmationStore tracks funds manually marked as received per
// currency and address. It implements both ports.PaymentOracle and
// ports.ConfirmationMarker: the receiving side accumulates amounts,
// the checking side compares the running total against an order's
// locked crypto amount.
type ConfirmationStore struct {
	client *goredis.Client
	prefix string
}

// NewConfirmationStore creates a new Redis-backed confirmation store.
func NewConfirmationStore(client *goredis.Client) *ConfirmationStore {
	return &ConfirmationStore{
		client: client,
		prefix: "received:",
	}
}

func (s *ConfirmationStore) key(symbol, address string) string {
	return fmt.Sprintf("%s%s:%s", s.prefix, symbol, address)
}

// MarkReceived records funds arriving at an address and returns the new
// cumulative total. Amounts accumulate: two partial payments that
// together cover an order confirm it. Digits below 10^-8 are dropped.
func (s *ConfirmationStore) MarkReceived(ctx context.Context, symbol, address string, amount decimal.Decimal) (decimal.Decimal, error) {
	units := amount.Shift(receivedScale).IntPart()
	total, err := s.client.IncrBy(ctx, s.key(symbol, address), units).Result()
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis confirmation incr: %w", err)
	}
	return decimal.New(total, -receivedScale), nil
}

// Confirmed reports whether the cumulative funds received at address
// cover minAmount. A missing key means nothing has arrived yet.
func (s *ConfirmationStore) Confirmed(ctx context.Context, symbol, address string, minAmount decimal.Decimal) (bool, error) {
	val, err := s.client.Get(ctx, s.key(symbol, address)).Result()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis confirmation get: %w", err)
	}

	units, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("redis confirmation parse %q: %w", val, err)
	}
	total := decimal.New(units, -receivedScale)
	return total.GreaterThanOrEqual(minAmount), nil
}
