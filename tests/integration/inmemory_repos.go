package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crypto-checkout/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{users: make(map[string]*domain.User)}
}

func (r *inMemoryLedgerRepo) CreateIfAbsent(ctx context.Context, userID string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		u = &domain.User{
			ID:             userID,
			Balance:        decimal.Zero,
			TotalDeposited: decimal.Zero,
			RegisteredAt:   now,
			LastActivityAt: now,
		}
		r.users[userID] = u
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryLedgerRepo) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryLedgerRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*domain.User, error) {
	return r.GetByID(ctx, userID)
}

func (r *inMemoryLedgerRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, userID string, delta decimal.Decimal, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.Balance = u.Balance.Add(delta)
	if delta.IsPositive() {
		u.TotalDeposited = u.TotalDeposited.Add(delta)
		if u.FirstTopUpAt == nil {
			ts := now
			u.FirstTopUpAt = &ts
		}
	}
	u.LastActivityAt = now
	return nil
}

func (r *inMemoryLedgerRepo) IncrementOrders(ctx context.Context, tx pgx.Tx, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.TotalOrders++
	return nil
}

func (r *inMemoryLedgerRepo) TouchActivity(ctx context.Context, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.LastActivityAt = now
	}
	return nil
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.Mutex
	orders map[int64]*domain.Order
	nextID int64
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[int64]*domain.Order), nextID: 1}
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, o *domain.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = r.nextID
	r.nextID++
	cp := *o
	r.orders[o.ID] = &cp
	return o.ID, nil
}

// GetByID returns a copy so callers can mutate the result freely.
func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *inMemoryOrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

// UpdateStatus is a true compare-and-set under the repo mutex, which is
// what makes the concurrency tests meaningful without a real database.
func (r *inMemoryOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, from, to domain.OrderStatus, paidAt *time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if paidAt != nil {
		o.PaidAt = paidAt
	}
	return true, nil
}

func (r *inMemoryOrderRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryOrderRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.Status == domain.OrderStatusPending && now.After(o.ExpiresAt) {
			o.Status = domain.OrderStatusExpired
			n++
		}
	}
	return n, nil
}

func (r *inMemoryOrderRepo) PurgeTerminal(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, o := range r.orders {
		if o.Status.IsTerminal() && o.CreatedAt.Before(olderThan) {
			delete(r.orders, id)
			n++
		}
	}
	return n, nil
}

// --- In-Memory Product Repo ---

type inMemoryProductRepo struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	nextID   int64
}

func newInMemoryProductRepo() *inMemoryProductRepo {
	return &inMemoryProductRepo{products: make(map[int64]*domain.Product), nextID: 1}
}

func (r *inMemoryProductRepo) Create(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *inMemoryProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
