package ports

import (
	"context"
	"time"

	"crypto-checkout/internal/core/domain"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks
//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

// PriceProvider fetches a live USD price for a currency from one external
// quote service. Implementations live in internal/adapter/oracle.
type PriceProvider interface {
	Name() string
	USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// RateCache is the shared price cache. Staleness inside the freshness
// window is tolerated; last writer wins.
type RateCache interface {
	Get(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) error
}

// PriceOracle resolves a USD price for a supported currency. It never
// fails visibly: on total provider outage it falls back to a configured
// constant and logs the degradation.
type PriceOracle interface {
	USDPrice(ctx context.Context, symbol string) decimal.Decimal
}

// QuoteService converts a USD amount into a currency amount at the
// oracle's current rate, rounded at the currency's precision.
type QuoteService interface {
	Quote(ctx context.Context, usdAmount decimal.Decimal, symbol string) (*domain.Quote, error)
	// QuoteAll previews the conversion in every supported currency.
	QuoteAll(ctx context.Context, usdAmount decimal.Decimal) ([]domain.Quote, error)
}

// PaymentOracle answers whether an address has received at least minAmount
// of a currency. Real chain verification is out of scope; implementations
// may be manually driven, and the engine's idempotency rules hold either way.
type PaymentOracle interface {
	Confirmed(ctx context.Context, symbol, address string, minAmount decimal.Decimal) (bool, error)
}

// ConfirmationMarker is the admin-facing side of the manual payment
// oracle: it records funds observed at an address. Returns the new
// cumulative total.
type ConfirmationMarker interface {
	MarkReceived(ctx context.Context, symbol, address string, amount decimal.Decimal) (decimal.Decimal, error)
}

// BeginOrderRequest carries the parameters for opening an order. For a
// product purchase USDAmount is ignored and the catalog price is used.
type BeginOrderRequest struct {
	UserID    string
	USDAmount decimal.Decimal
	Currency  string
	ProductID *int64
}

// ConfirmOutcome classifies a successful Confirm call.
type ConfirmOutcome string

const (
	ConfirmOutcomePaid        ConfirmOutcome = "PAID"
	ConfirmOutcomeAlreadyPaid ConfirmOutcome = "ALREADY_PAID"
	ConfirmOutcomeAwaiting    ConfirmOutcome = "AWAITING_PAYMENT"
)

// ConfirmResult is the structured outcome of a Confirm call.
type ConfirmResult struct {
	Outcome ConfirmOutcome
	Order   *domain.Order
}

// PurchaseResult is the outcome of a successful balance purchase.
type PurchaseResult struct {
	User    *domain.User
	Product *domain.Product
}

// OrderEngine is the order lifecycle orchestrator: it locks quotes,
// tracks orders through Pending/Paid/Expired/Cancelled, and applies the
// ledger side effect of a paid order exactly once.
type OrderEngine interface {
	Begin(ctx context.Context, req BeginOrderRequest) (*domain.Order, error)
	Confirm(ctx context.Context, orderID int64) (*ConfirmResult, error)
	Cancel(ctx context.Context, orderID int64) (*domain.Order, error)
	Sweep(ctx context.Context) (int64, error)
	PurgeTerminal(ctx context.Context) (int64, error)
	PurchaseWithBalance(ctx context.Context, userID string, productID int64) (*PurchaseResult, error)
	GetLedger(ctx context.Context, userID string) (*domain.User, error)
	ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error)
}
