package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out database transactions to the order engine. Every
// Confirm, Cancel and balance purchase runs its row locks and writes
// inside one of these.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a Transactor on the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction. The caller owns commit and rollback.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
