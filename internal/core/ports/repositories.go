package ports

import (
	"context"
	"time"

	"crypto-checkout/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepository defines persistence operations for user ledger records.
// Methods accepting pgx.Tx run inside transaction blocks; row-level locking
// serializes concurrent mutations per user.
type LedgerRepository interface {
	// CreateIfAbsent registers the user on first contact. Idempotent: an
	// existing record is returned unchanged, registered_at is never reset.
	CreateIfAbsent(ctx context.Context, userID string, now time.Time) (*domain.User, error)
	GetByID(ctx context.Context, userID string) (*domain.User, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*domain.User, error)
	// ApplyDelta is the only mutator of balance/total_deposited/first_topup_at.
	// A positive delta raises both balance and total_deposited and stamps
	// first_topup_at once; a negative delta lowers only the balance.
	ApplyDelta(ctx context.Context, tx pgx.Tx, userID string, delta decimal.Decimal, now time.Time) error
	IncrementOrders(ctx context.Context, tx pgx.Tx, userID string) error
	TouchActivity(ctx context.Context, userID string, now time.Time) error
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// Create persists a new Pending order and returns its assigned id.
	// Order ids are monotonic and never reused.
	Create(ctx context.Context, o *domain.Order) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	// UpdateStatus performs a compare-and-set on the order status. It returns
	// false without error when the order is no longer in the from state —
	// an illegal transition is reported, never executed.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, from, to domain.OrderStatus, paidAt *time.Time) (bool, error)
	// ListByUser returns the user's orders most recent first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	// SweepExpired moves every Pending order past its expiry to Expired and
	// returns the number of orders changed. Terminal orders are untouched.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	// PurgeTerminal deletes terminal orders created before the horizon.
	PurgeTerminal(ctx context.Context, olderThan time.Time) (int64, error)
}

// ProductRepository defines read access to the catalog plus seeding.
// Full admin CRUD lives outside this system.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
