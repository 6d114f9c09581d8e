package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepo_CreateIfAbsent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rows := pgxmock.NewRows([]string{
		"id", "balance", "total_deposited", "total_orders",
		"registered_at", "first_topup_at", "last_activity_at",
	}).AddRow("alice", decimal.Zero, decimal.Zero, int64(0), now, nil, now)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs("alice").
		WillReturnRows(rows)

	u, err := repo.CreateIfAbsent(context.Background(), "alice", now)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.ID)
	assert.True(t, u.Balance.IsZero())
	assert.Nil(t, u.FirstTopUpAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_CreateIfAbsent_Existing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	now := time.Now().UTC()
	registered := now.Add(-48 * time.Hour)

	// ON CONFLICT DO NOTHING: zero rows affected, record untouched.
	mock.ExpectExec("INSERT INTO users").
		WithArgs("bob", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	rows := pgxmock.NewRows([]string{
		"id", "balance", "total_deposited", "total_orders",
		"registered_at", "first_topup_at", "last_activity_at",
	}).AddRow("bob", decimal.NewFromInt(50), decimal.NewFromInt(100), int64(3), registered, &registered, now)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs("bob").
		WillReturnRows(rows)

	u, err := repo.CreateIfAbsent(context.Background(), "bob", now)
	require.NoError(t, err)
	assert.Equal(t, registered, u.RegisteredAt)
	assert.Equal(t, int64(3), u.TotalOrders)
	assert.True(t, u.Balance.Equal(decimal.NewFromInt(50)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "balance", "total_deposited", "total_orders",
			"registered_at", "first_topup_at", "last_activity_at",
		}))

	u, err := repo.GetByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ApplyDelta_Deposit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	now := time.Now().UTC()
	delta := decimal.NewFromFloat(25.50)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET").
		WithArgs("alice", delta, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.ApplyDelta(context.Background(), tx, "alice", delta, now)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ApplyDelta_UserMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	now := time.Now().UTC()
	delta := decimal.NewFromInt(10)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET").
		WithArgs("ghost", delta, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.ApplyDelta(context.Background(), tx, "ghost", delta, now)
	assert.ErrorContains(t, err, "user not found")
	require.NoError(t, tx.Rollback(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_IncrementOrders(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET total_orders").
		WithArgs("alice").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.IncrementOrders(context.Background(), tx, "alice"))
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
