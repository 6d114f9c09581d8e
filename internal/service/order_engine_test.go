package service

import (
	"context"
	"testing"
	"time"

	"crypto-checkout/config"
	"crypto-checkout/internal/core/domain"
	"crypto-checkout/internal/core/ports"
	"crypto-checkout/internal/core/ports/mocks"
	"crypto-checkout/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testEngineConfig = config.EngineConfig{
	MinDepositUSD:    1.0,
	MaxDepositUSD:    1000.0,
	QuoteLockWindow:  15 * time.Minute,
	RetentionHorizon: 720 * time.Hour,
	ListOrdersLimit:  10,
}

type engineTestDeps struct {
	svc        *OrderEngineImpl
	ledger     *mocks.MockLedgerRepository
	orders     *mocks.MockOrderRepository
	products   *mocks.MockProductRepository
	quotes     *mocks.MockQuoteService
	payments   *mocks.MockPaymentOracle
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
	now        time.Time
}

func setupOrderEngine(t *testing.T) *engineTestDeps {
	ctrl := gomock.NewController(t)
	d := &engineTestDeps{
		ledger:     mocks.NewMockLedgerRepository(ctrl),
		orders:     mocks.NewMockOrderRepository(ctrl),
		products:   mocks.NewMockProductRepository(ctrl),
		quotes:     mocks.NewMockQuoteService(ctrl),
		payments:   mocks.NewMockPaymentOracle(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	d.svc = NewOrderEngine(
		d.ledger, d.orders, d.products, d.quotes, d.payments,
		d.transactor, NewCurrencyRegistry(testCurrencyConfigs()),
		testEngineConfig, zerolog.Nop(),
	)
	d.svc.now = func() time.Time { return d.now }
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

// ==================== Begin Tests ====================

func TestOrderEngine_Begin_Deposit(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	usd := decimal.NewFromInt(100)
	d.ledger.EXPECT().CreateIfAbsent(ctx, "alice", d.now).Return(&domain.User{ID: "alice"}, nil)
	d.ledger.EXPECT().TouchActivity(ctx, "alice", d.now).Return(nil)
	d.quotes.EXPECT().Quote(ctx, usd, "BTC").Return(&domain.Quote{
		Currency:     "BTC",
		Rate:         decimal.NewFromInt(45000),
		CryptoAmount: decimal.RequireFromString("0.00222222"),
	}, nil)
	d.orders.EXPECT().Create(ctx, gomock.Any()).Return(int64(1), nil)

	order, err := d.svc.Begin(ctx, ports.BeginOrderRequest{
		UserID:    "alice",
		USDAmount: usd,
		Currency:  "BTC",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "bc1qtest", order.PayToAddress)
	assert.Equal(t, d.now.Add(15*time.Minute), order.ExpiresAt)
	assert.True(t, order.IsDeposit())
}

func TestOrderEngine_Begin_DepositOutOfBounds(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	for _, amount := range []string{"0.50", "1000.01"} {
		_, err := d.svc.Begin(ctx, ports.BeginOrderRequest{
			UserID:    "alice",
			USDAmount: decimal.RequireFromString(amount),
			Currency:  "BTC",
		})
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr, "amount %s", amount)
		assert.Equal(t, "VAL_001", appErr.Code)
	}
}

func TestOrderEngine_Begin_BoundaryAmountsAccepted(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	for _, amount := range []string{"1", "1000"} {
		usd := decimal.RequireFromString(amount)
		d.ledger.EXPECT().CreateIfAbsent(ctx, "alice", d.now).Return(&domain.User{ID: "alice"}, nil)
		d.ledger.EXPECT().TouchActivity(ctx, "alice", d.now).Return(nil)
		d.quotes.EXPECT().Quote(ctx, usd, "USDT").Return(&domain.Quote{
			Currency: "USDT", Rate: decimal.NewFromInt(1), CryptoAmount: usd,
		}, nil)
		d.orders.EXPECT().Create(ctx, gomock.Any()).Return(int64(1), nil)

		_, err := d.svc.Begin(ctx, ports.BeginOrderRequest{
			UserID: "alice", USDAmount: usd, Currency: "USDT",
		})
		require.NoError(t, err, "amount %s", amount)
	}
}

func TestOrderEngine_Begin_UnknownCurrency(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Begin(context.Background(), ports.BeginOrderRequest{
		UserID: "alice", USDAmount: decimal.NewFromInt(10), Currency: "DOGE",
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_002", appErr.Code)
}

func TestOrderEngine_Begin_ProductUsesCatalogPrice(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	productID := int64(3)
	price := decimal.RequireFromString("4999.99") // above the deposit cap, fine for purchases
	d.products.EXPECT().GetByID(ctx, productID).Return(&domain.Product{ID: productID, Name: "Pro plan", Price: price}, nil)
	d.ledger.EXPECT().CreateIfAbsent(ctx, "bob", d.now).Return(&domain.User{ID: "bob"}, nil)
	d.ledger.EXPECT().TouchActivity(ctx, "bob", d.now).Return(nil)
	d.quotes.EXPECT().Quote(ctx, price, "LTC").Return(&domain.Quote{
		Currency: "LTC", Rate: decimal.NewFromInt(75), CryptoAmount: decimal.RequireFromString("66.66653333"),
	}, nil)
	d.orders.EXPECT().Create(ctx, gomock.Any()).Return(int64(2), nil)

	order, err := d.svc.Begin(ctx, ports.BeginOrderRequest{
		UserID:    "bob",
		USDAmount: decimal.NewFromInt(5), // ignored for product orders
		Currency:  "LTC",
		ProductID: &productID,
	})
	require.NoError(t, err)
	assert.True(t, order.USDAmount.Equal(price))
	assert.False(t, order.IsDeposit())
}

func TestOrderEngine_Begin_ProductNotFound(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	productID := int64(404)
	d.products.EXPECT().GetByID(ctx, productID).Return(nil, nil)

	_, err := d.svc.Begin(ctx, ports.BeginOrderRequest{
		UserID: "bob", Currency: "BTC", ProductID: &productID,
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_003", appErr.Code)
}

// ==================== Confirm Tests ====================

func pendingOrder(d *engineTestDeps) *domain.Order {
	return &domain.Order{
		ID:           7,
		UserID:       "alice",
		USDAmount:    decimal.NewFromInt(100),
		Currency:     "BTC",
		CryptoAmount: decimal.RequireFromString("0.00222222"),
		LockedRate:   decimal.NewFromInt(45000),
		PayToAddress: "bc1qtest",
		Status:       domain.OrderStatusPending,
		CreatedAt:    d.now.Add(-5 * time.Minute),
		ExpiresAt:    d.now.Add(10 * time.Minute),
	}
}

func TestOrderEngine_Confirm_DepositPaid(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}
	order := pendingOrder(d)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(7)).Return(order, nil)
	d.payments.EXPECT().Confirmed(ctx, "BTC", "bc1qtest", order.CryptoAmount).Return(true, nil)
	d.orders.EXPECT().UpdateStatus(ctx, tx, int64(7), domain.OrderStatusPending, domain.OrderStatusPaid, &d.now).Return(true, nil)
	d.ledger.EXPECT().ApplyDelta(ctx, tx, "alice", order.USDAmount, d.now).Return(nil)

	result, err := d.svc.Confirm(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ports.ConfirmOutcomePaid, result.Outcome)
	assert.Equal(t, domain.OrderStatusPaid, result.Order.Status)
	require.NotNil(t, result.Order.PaidAt)
	assert.Equal(t, d.now, *result.Order.PaidAt)
}

func TestOrderEngine_Confirm_PurchaseCountsOrder(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	productID := int64(3)
	order := pendingOrder(d)
	order.ProductID = &productID

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(7)).Return(order, nil)
	d.payments.EXPECT().Confirmed(ctx, "BTC", "bc1qtest", order.CryptoAmount).Return(true, nil)
	d.orders.EXPECT().UpdateStatus(ctx, tx, int64(7), domain.OrderStatusPending, domain.OrderStatusPaid, &d.now).Return(true, nil)
	// No balance credit for product purchases, only the order counter
	// plus the activity stamp ApplyDelta would otherwise provide.
	d.ledger.EXPECT().IncrementOrders(ctx, tx, "alice").Return(nil)
	d.ledger.EXPECT().TouchActivity(ctx, "alice", d.now).Return(nil)

	result, err := d.svc.Confirm(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ports.ConfirmOutcomePaid, result.Outcome)
}

func TestOrderEngine_Confirm_AlreadyPaidIsIdempotent(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	order := pendingOrder(d)
	order.Status = domain.OrderStatusPaid
	paidAt := d.now.Add(-time.Minute)
	order.PaidAt = &paidAt

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(7)).Return(order, nil)
	// No oracle call, no ledger effect.

	result, err := d.svc.Confirm(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ports.ConfirmOutcomeAlreadyPaid, result.Outcome)
}

func TestOrderEngine_Confirm_AwaitingPayment(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}
	order := pendingOrder(d)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(7)).Return(order, nil)
	d.payments.EXPECT().Confirmed(ctx, "BTC", "bc1qtest", order.CryptoAmount).Return(false, nil)

	result, err := d.svc.Confirm(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ports.ConfirmOutcomeAwaiting, result.Outcome)
	assert.Equal(t, domain.OrderStatusPending, result.Order.Status)
}

func TestOrderEngine_Confirm_ExpiredBeforeOracle(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	order := pendingOrder(d)
	order.ExpiresAt = d.now.Add(-time.Second)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(7)).Return(order, nil)
	// The oracle is never consulted: late funds cannot settle at the stale rate.
	d.orders.EXPECT().UpdateStatus(ctx, tx, int64(7), domain.OrderStatusPending, domain.OrderStatusExpired, nil).Return(true, nil)

	_, err := d.svc.Confirm(ctx, 7)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ORD_003", appErr.Code)
}

func TestOrderEngine_Confirm_TerminalStates(t *testing.T) {
	for _, status := range []domain.OrderStatus{domain.OrderStatusExpired, domain.OrderStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			d := setupOrderEngine(t)
			defer d.ctrl.Finish()
			ctx := context.Background()
			tx := &mockTx{}

			order := pendingOrder(d)
			order.Status = status

			d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
			d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(7)).Return(order, nil)

			_, err := d.svc.Confirm(ctx, 7)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "ORD_002", appErr.Code)
		})
	}
}

func TestOrderEngine_Confirm_NotFound(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(404)).Return(nil, nil)

	_, err := d.svc.Confirm(ctx, 404)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ORD_001", appErr.Code)
}

// ==================== Cancel Tests ====================

func TestOrderEngine_Cancel_Pending(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}
	order := pendingOrder(d)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(7)).Return(order, nil)
	d.orders.EXPECT().UpdateStatus(ctx, tx, int64(7), domain.OrderStatusPending, domain.OrderStatusCancelled, nil).Return(true, nil)

	got, err := d.svc.Cancel(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
}

func TestOrderEngine_Cancel_AlreadyCancelledIsIdempotent(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	order := pendingOrder(d)
	order.Status = domain.OrderStatusCancelled

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(7)).Return(order, nil)

	got, err := d.svc.Cancel(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
}

func TestOrderEngine_Cancel_PaidConflicts(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	order := pendingOrder(d)
	order.Status = domain.OrderStatusPaid

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.orders.EXPECT().GetByIDForUpdate(ctx, tx, int64(7)).Return(order, nil)

	_, err := d.svc.Cancel(ctx, 7)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ORD_002", appErr.Code)
}

// ==================== Purchase Tests ====================

func TestOrderEngine_PurchaseWithBalance_Success(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	price := decimal.RequireFromString("19.99")
	d.products.EXPECT().GetByID(ctx, int64(3)).Return(&domain.Product{ID: 3, Name: "Starter", Price: price}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledger.EXPECT().GetByIDForUpdate(ctx, tx, "alice").Return(&domain.User{
		ID: "alice", Balance: decimal.NewFromInt(50), TotalOrders: 2,
	}, nil)
	d.ledger.EXPECT().ApplyDelta(ctx, tx, "alice", price.Neg(), d.now).Return(nil)
	d.ledger.EXPECT().IncrementOrders(ctx, tx, "alice").Return(nil)

	result, err := d.svc.PurchaseWithBalance(ctx, "alice", 3)
	require.NoError(t, err)
	assert.Equal(t, "30.01", result.User.Balance.StringFixed(2))
	assert.Equal(t, int64(3), result.User.TotalOrders)
	assert.Equal(t, "Starter", result.Product.Name)
}

func TestOrderEngine_PurchaseWithBalance_InsufficientFunds(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	price := decimal.NewFromInt(25)
	d.products.EXPECT().GetByID(ctx, int64(3)).Return(&domain.Product{ID: 3, Price: price}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledger.EXPECT().GetByIDForUpdate(ctx, tx, "alice").Return(&domain.User{
		ID: "alice", Balance: decimal.NewFromInt(10),
	}, nil)

	_, err := d.svc.PurchaseWithBalance(ctx, "alice", 3)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_001", appErr.Code)
	assert.Contains(t, appErr.Message, "$15.00 short")
}

// ==================== Maintenance Tests ====================

func TestOrderEngine_Sweep(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.orders.EXPECT().SweepExpired(ctx, d.now).Return(int64(4), nil)

	n, err := d.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestOrderEngine_PurgeTerminal(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.orders.EXPECT().PurgeTerminal(ctx, d.now.Add(-720*time.Hour)).Return(int64(9), nil)

	n, err := d.svc.PurgeTerminal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
}

func TestOrderEngine_ListOrders_DefaultLimit(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.ledger.EXPECT().TouchActivity(ctx, "alice", d.now).Return(nil)
	d.orders.EXPECT().ListByUser(ctx, "alice", 10).Return([]domain.Order{}, nil)

	_, err := d.svc.ListOrders(ctx, "alice", 0)
	require.NoError(t, err)
}

// ==================== Activity Stamp Tests ====================

func TestOrderEngine_GetLedger_StampsActivity(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	stale := d.now.Add(-48 * time.Hour)
	d.ledger.EXPECT().CreateIfAbsent(ctx, "alice", d.now).Return(&domain.User{
		ID: "alice", RegisteredAt: stale, LastActivityAt: stale,
	}, nil)
	d.ledger.EXPECT().TouchActivity(ctx, "alice", d.now).Return(nil)

	user, err := d.svc.GetLedger(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, d.now, user.LastActivityAt)
	assert.Equal(t, stale, user.RegisteredAt)
}

func TestOrderEngine_ActivityStampFailureIsNonFatal(t *testing.T) {
	d := setupOrderEngine(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	usd := decimal.NewFromInt(100)
	d.ledger.EXPECT().CreateIfAbsent(ctx, "alice", d.now).Return(&domain.User{ID: "alice"}, nil)
	d.ledger.EXPECT().TouchActivity(ctx, "alice", d.now).Return(assert.AnError)
	d.quotes.EXPECT().Quote(ctx, usd, "BTC").Return(&domain.Quote{
		Currency:     "BTC",
		Rate:         decimal.NewFromInt(45000),
		CryptoAmount: decimal.RequireFromString("0.00222222"),
	}, nil)
	d.orders.EXPECT().Create(ctx, gomock.Any()).Return(int64(1), nil)

	order, err := d.svc.Begin(ctx, ports.BeginOrderRequest{
		UserID: "alice", USDAmount: usd, Currency: "BTC",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
}
