package service

import (
	"context"
	"fmt"
	"time"

	"crypto-checkout/config"
	"crypto-checkout/internal/core/domain"
	"crypto-checkout/internal/core/ports"
	"crypto-checkout/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderEngineImpl implements ports.OrderEngine with pessimistic locking:
// every state transition and every ledger effect happens inside a
// database transaction holding the order's row lock, so a paid order
// credits its user exactly once no matter how many Confirm calls race.
type OrderEngineImpl struct {
	ledger     ports.LedgerRepository
	orders     ports.OrderRepository
	products   ports.ProductRepository
	quotes     ports.QuoteService
	payments   ports.PaymentOracle
	transactor ports.DBTransactor
	registry   *CurrencyRegistry
	cfg        config.EngineConfig
	log        zerolog.Logger
	now        func() time.Time
}

// NewOrderEngine creates a new OrderEngineImpl.
func NewOrderEngine(
	ledger ports.LedgerRepository,
	orders ports.OrderRepository,
	products ports.ProductRepository,
	quotes ports.QuoteService,
	payments ports.PaymentOracle,
	transactor ports.DBTransactor,
	registry *CurrencyRegistry,
	cfg config.EngineConfig,
	log zerolog.Logger,
) *OrderEngineImpl {
	return &OrderEngineImpl{
		ledger:     ledger,
		orders:     orders,
		products:   products,
		quotes:     quotes,
		payments:   payments,
		transactor: transactor,
		registry:   registry,
		cfg:        cfg,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Begin opens a Pending order with the exchange rate locked for the
// configured window. For deposits the USD amount is bounds-checked; for
// product purchases the catalog price is authoritative.
func (s *OrderEngineImpl) Begin(ctx context.Context, req ports.BeginOrderRequest) (*domain.Order, error) {
	cur, ok := s.registry.Get(req.Currency)
	if !ok {
		return nil, apperror.ErrUnknownCurrency(req.Currency)
	}

	now := s.now()
	usd := req.USDAmount
	if req.ProductID != nil {
		product, err := s.products.GetByID(ctx, *req.ProductID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("load product: %w", err))
		}
		if product == nil {
			return nil, apperror.ErrProductNotFound()
		}
		usd = product.Price
	} else {
		min := decimal.NewFromFloat(s.cfg.MinDepositUSD)
		max := decimal.NewFromFloat(s.cfg.MaxDepositUSD)
		if usd.LessThan(min) || usd.GreaterThan(max) {
			return nil, apperror.ErrAmountOutOfRange(min, max)
		}
	}

	if _, err := s.ledger.CreateIfAbsent(ctx, req.UserID, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("ensure user: %w", err))
	}
	s.touchActivity(ctx, req.UserID, now)

	quote, err := s.quotes.Quote(ctx, usd, req.Currency)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		UserID:       req.UserID,
		ProductID:    req.ProductID,
		USDAmount:    usd,
		Currency:     cur.Code,
		CryptoAmount: quote.CryptoAmount,
		LockedRate:   quote.Rate,
		PayToAddress: cur.Address,
		Status:       domain.OrderStatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.QuoteLockWindow),
	}

	id, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create order: %w", err))
	}
	order.ID = id

	s.log.Info().
		Int64("order_id", id).
		Str("user_id", req.UserID).
		Str("currency", cur.Code).
		Str("usd_amount", usd.String()).
		Str("crypto_amount", quote.CryptoAmount.String()).
		Str("rate", quote.Rate.String()).
		Time("expires_at", order.ExpiresAt).
		Msg("order opened")

	return order, nil
}

// Confirm checks the payment oracle for a Pending order and settles it.
// The whole check-and-settle runs under the order's row lock:
//
//   - already Paid        -> idempotent success, no second ledger effect
//   - Expired/Cancelled   -> conflict, the order can never become Paid
//   - past expiry         -> lazily expired, even if funds arrived late
//   - funds not received  -> AWAITING_PAYMENT, order stays Pending
//   - funds received      -> Pending->Paid plus the ledger effect, atomically
func (s *OrderEngineImpl) Confirm(ctx context.Context, orderID int64) (*ports.ConfirmResult, error) {
	now := s.now()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	order, err := s.orders.GetByIDForUpdate(ctx, dbTx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	switch order.Status {
	case domain.OrderStatusPaid:
		return &ports.ConfirmResult{Outcome: ports.ConfirmOutcomeAlreadyPaid, Order: order}, nil
	case domain.OrderStatusExpired, domain.OrderStatusCancelled:
		return nil, apperror.ErrTerminalState(string(order.Status))
	}

	// Expiry is checked before the oracle: funds arriving after the quote
	// lock lapsed never settle at the stale rate.
	if order.IsExpiredAt(now) {
		if _, err := s.orders.UpdateStatus(ctx, dbTx, orderID, domain.OrderStatusPending, domain.OrderStatusExpired, nil); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("expire order: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit expire: %w", err))
		}
		return nil, apperror.ErrOrderExpired()
	}

	received, err := s.payments.Confirmed(ctx, order.Currency, order.PayToAddress, order.CryptoAmount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("payment oracle: %w", err))
	}
	if !received {
		return &ports.ConfirmResult{Outcome: ports.ConfirmOutcomeAwaiting, Order: order}, nil
	}

	won, err := s.orders.UpdateStatus(ctx, dbTx, orderID, domain.OrderStatusPending, domain.OrderStatusPaid, &now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark paid: %w", err))
	}
	if !won {
		return nil, apperror.InternalError(fmt.Errorf("order %d changed state under lock", orderID))
	}

	// Ledger effect in the same transaction: if it fails, the rollback
	// takes the Paid transition with it and a retry starts clean.
	if order.IsDeposit() {
		if err := s.ledger.ApplyDelta(ctx, dbTx, order.UserID, order.USDAmount, now); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("credit deposit: %w", err))
		}
	} else {
		if err := s.ledger.IncrementOrders(ctx, dbTx, order.UserID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("count purchase: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit confirm: %w", err))
	}

	order.Status = domain.OrderStatusPaid
	order.PaidAt = &now

	// Deposits stamp activity through ApplyDelta; purchases only touch
	// the order counter, so the stamp happens here.
	if !order.IsDeposit() {
		s.touchActivity(ctx, order.UserID, now)
	}

	s.log.Info().
		Int64("order_id", orderID).
		Str("user_id", order.UserID).
		Str("currency", order.Currency).
		Str("usd_amount", order.USDAmount.String()).
		Bool("deposit", order.IsDeposit()).
		Msg("order paid")

	return &ports.ConfirmResult{Outcome: ports.ConfirmOutcomePaid, Order: order}, nil
}

// Cancel moves a Pending order to Cancelled. Cancelling an already
// cancelled order is a no-op success; Paid and Expired orders conflict.
func (s *OrderEngineImpl) Cancel(ctx context.Context, orderID int64) (*domain.Order, error) {
	now := s.now()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	order, err := s.orders.GetByIDForUpdate(ctx, dbTx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	switch order.Status {
	case domain.OrderStatusCancelled:
		return order, nil
	case domain.OrderStatusPaid, domain.OrderStatusExpired:
		return nil, apperror.ErrTerminalState(string(order.Status))
	}

	to := domain.OrderStatusCancelled
	if order.IsExpiredAt(now) {
		to = domain.OrderStatusExpired
	}

	if _, err := s.orders.UpdateStatus(ctx, dbTx, orderID, domain.OrderStatusPending, to, nil); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("cancel order: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit cancel: %w", err))
	}

	order.Status = to
	s.log.Info().Int64("order_id", orderID).Str("status", string(to)).Msg("order closed")
	return order, nil
}

// Sweep lazily expires every Pending order past its expiry.
func (s *OrderEngineImpl) Sweep(ctx context.Context) (int64, error) {
	n, err := s.orders.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("expired", n).Msg("swept expired orders")
	}
	return n, nil
}

// PurgeTerminal removes terminal orders older than the retention horizon.
func (s *OrderEngineImpl) PurgeTerminal(ctx context.Context) (int64, error) {
	horizon := s.now().Add(-s.cfg.RetentionHorizon)
	n, err := s.orders.PurgeTerminal(ctx, horizon)
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("purged terminal orders")
	}
	return n, nil
}

// PurchaseWithBalance buys a catalog item from the user's USD balance.
// Debit and order count move together under the user's row lock; no
// Order record is created for balance purchases.
func (s *OrderEngineImpl) PurchaseWithBalance(ctx context.Context, userID string, productID int64) (*ports.PurchaseResult, error) {
	now := s.now()

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load product: %w", err))
	}
	if product == nil {
		return nil, apperror.ErrProductNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	user, err := s.ledger.GetByIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrUserNotFound()
	}

	if !user.CanAfford(product.Price) {
		return nil, apperror.ErrInsufficientFunds(user.Shortfall(product.Price))
	}

	if err := s.ledger.ApplyDelta(ctx, dbTx, userID, product.Price.Neg(), now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit balance: %w", err))
	}
	if err := s.ledger.IncrementOrders(ctx, dbTx, userID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count purchase: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit purchase: %w", err))
	}

	user.Balance = user.Balance.Sub(product.Price)
	user.TotalOrders++
	user.LastActivityAt = now

	s.log.Info().
		Str("user_id", userID).
		Int64("product_id", productID).
		Str("price", product.Price.String()).
		Msg("balance purchase settled")

	return &ports.PurchaseResult{User: user, Product: product}, nil
}

// GetLedger returns the user's ledger record, registering the user on
// first contact. Reading the ledger counts as activity.
func (s *OrderEngineImpl) GetLedger(ctx context.Context, userID string) (*domain.User, error) {
	now := s.now()
	user, err := s.ledger.CreateIfAbsent(ctx, userID, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("ensure user: %w", err))
	}
	s.touchActivity(ctx, userID, now)
	user.LastActivityAt = now
	return user, nil
}

// ListOrders returns the user's most recent orders.
func (s *OrderEngineImpl) ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = s.cfg.ListOrdersLimit
	}
	s.touchActivity(ctx, userID, s.now())
	orders, err := s.orders.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list orders: %w", err))
	}
	return orders, nil
}

// touchActivity stamps last_activity_at on user-initiated paths where
// no ApplyDelta runs. Best effort: a lost stamp never fails the call.
func (s *OrderEngineImpl) touchActivity(ctx context.Context, userID string, now time.Time) {
	if err := s.ledger.TouchActivity(ctx, userID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("activity stamp failed")
	}
}
