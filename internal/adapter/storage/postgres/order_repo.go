package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-checkout/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, user_id, product_id, usd_amount, currency, crypto_amount,
		locked_rate, pay_to_address, status, created_at, expires_at, paid_at`

// Create persists a new order. The id comes from a sequence: monotonic,
// never reused.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) (int64, error) {
	query := `INSERT INTO orders (user_id, product_id, usd_amount, currency, crypto_amount,
			locked_rate, pay_to_address, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		o.UserID, o.ProductID, o.USDAmount, o.Currency, o.CryptoAmount,
		o.LockedRate, o.PayToAddress, o.Status, o.CreatedAt, o.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

// GetByID fetches an order (non-locking read).
func (r *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o := &domain.Order{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.UserID, &o.ProductID, &o.USDAmount, &o.Currency, &o.CryptoAmount,
		&o.LockedRate, &o.PayToAddress, &o.Status, &o.CreatedAt, &o.ExpiresAt, &o.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// GetByIDForUpdate fetches an order with pessimistic locking, serializing
// concurrent Confirm calls on the same order. MUST be called within a
// transaction.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	o := &domain.Order{}
	err := tx.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.UserID, &o.ProductID, &o.USDAmount, &o.Currency, &o.CryptoAmount,
		&o.LockedRate, &o.PayToAddress, &o.Status, &o.CreatedAt, &o.ExpiresAt, &o.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order for update: %w", err)
	}
	return o, nil
}

// UpdateStatus performs a compare-and-set on the order status within a
// transaction. A lost or illegal transition returns false, not an error.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, from, to domain.OrderStatus, paidAt *time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, nil
	}

	query := `UPDATE orders SET status = $3, paid_at = COALESCE($4, paid_at)
		WHERE id = $1 AND status = $2`

	tag, err := tx.Exec(ctx, query, id, from, to, paidAt)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUser returns the user's orders, most recent first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.ProductID, &o.USDAmount, &o.Currency, &o.CryptoAmount,
			&o.LockedRate, &o.PayToAddress, &o.Status, &o.CreatedAt, &o.ExpiresAt, &o.PaidAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

// SweepExpired transitions every Pending order past its expiry to Expired
// in one statement. It is the only writer of that transition and never
// touches terminal orders.
func (r *OrderRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE orders SET status = $1 WHERE status = $2 AND expires_at < $3`

	tag, err := r.pool.Exec(ctx, query, domain.OrderStatusExpired, domain.OrderStatusPending, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeTerminal deletes terminal orders created before the retention
// horizon. Pending orders are never purged.
func (r *OrderRepo) PurgeTerminal(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM orders WHERE status IN ($1, $2, $3) AND created_at < $4`

	tag, err := r.pool.Exec(ctx, query,
		domain.OrderStatusPaid, domain.OrderStatusExpired, domain.OrderStatusCancelled, olderThan)
	if err != nil {
		return 0, fmt.Errorf("purge terminal orders: %w", err)
	}
	return tag.RowsAffected(), nil
}
