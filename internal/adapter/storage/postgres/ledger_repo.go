package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-checkout/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const userColumns = `id, balance, total_deposited, total_orders, registered_at, first_topup_at, last_activity_at`

// CreateIfAbsent registers a user on first contact. An existing record is
// left untouched, including registered_at.
func (r *LedgerRepo) CreateIfAbsent(ctx context.Context, userID string, now time.Time) (*domain.User, error) {
	insert := `INSERT INTO users (id, balance, total_deposited, total_orders, registered_at, last_activity_at)
		VALUES ($1, 0, 0, 0, $2, $2)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, insert, userID, now); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s missing after upsert", userID)
	}
	return u, nil
}

// GetByID fetches a ledger record (non-locking read).
func (r *LedgerRepo) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u := &domain.User{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.Balance, &u.TotalDeposited, &u.TotalOrders,
		&u.RegisteredAt, &u.FirstTopUpAt, &u.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByIDForUpdate fetches a ledger record with pessimistic locking.
// This MUST be called within a transaction.
func (r *LedgerRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	u := &domain.User{}
	err := tx.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.Balance, &u.TotalDeposited, &u.TotalOrders,
		&u.RegisteredAt, &u.FirstTopUpAt, &u.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user for update: %w", err)
	}
	return u, nil
}

// ApplyDelta mutates balance and the deposit statistics in one atomic
// UPDATE. A positive delta raises total_deposited and stamps
// first_topup_at once; a negative delta only lowers the balance.
func (r *LedgerRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, userID string, delta decimal.Decimal, now time.Time) error {
	query := `UPDATE users SET
			balance = balance + $2,
			total_deposited = total_deposited + GREATEST($2, 0),
			first_topup_at = CASE WHEN $2 > 0 THEN COALESCE(first_topup_at, $3) ELSE first_topup_at END,
			last_activity_at = $3
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query, userID, delta, now)
	if err != nil {
		return fmt.Errorf("apply ledger delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// IncrementOrders bumps the completed-order counter within a transaction.
func (r *LedgerRepo) IncrementOrders(ctx context.Context, tx pgx.Tx, userID string) error {
	query := `UPDATE users SET total_orders = total_orders + 1 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("increment orders: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// TouchActivity stamps last_activity_at on a user-initiated interaction.
func (r *LedgerRepo) TouchActivity(ctx context.Context, userID string, now time.Time) error {
	query := `UPDATE users SET last_activity_at = $2 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, userID, now); err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	return nil
}
