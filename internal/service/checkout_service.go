package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CheckoutService implements ports.CheckoutService, the wallet payment
// method of the storefront.
type CheckoutService struct {
	orders     ports.OrderRepository
	storefront ports.Storefront
	customers  ports.CustomerRepository
	engine     ports.ReconciliationEngine
	config     ports.ConfigProvider
	bus        ports.EventBus
	now        func() time.Time
	log        zerolog.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	orders ports.OrderRepository,
	storefront ports.Storefront,
	customers ports.CustomerRepository,
	engine ports.ReconciliationEngine,
	config ports.ConfigProvider,
	bus ports.EventBus,
	log zerolog.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders:     orders,
		storefront: storefront,
		customers:  customers,
		engine:     engine,
		config:     config,
		bus:        bus,
		now:        time.Now,
		log:        log.With().Str("component", "checkout").Logger(),
	}
}

// IsAvailable reports whether the wallet can be offered for a cart. In SSoT
// mode only the cached balance is consulted, never the network.
func (s *CheckoutService) IsAvailable(ctx context.Context, customerID int64, cartTotal decimal.Decimal) (bool, error) {
	customer, err := s.loadCustomer(ctx, customerID)
	if err != nil {
		return false, err
	}
	if customer.WalletLocked || !cartTotal.IsPositive() {
		return false, nil
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return false, err
	}

	var balance decimal.Decimal
	if cfg.SSoTActive() {
		cached, ok, err := s.engine.CachedBalance(ctx, customer.ID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		balance = cached
	} else {
		balance, err = s.engine.LocalBalance(ctx, customer.ID)
		if err != nil {
			return false, err
		}
	}

	if balance.LessThan(cartTotal) {
		return false, nil
	}

	if err := s.bus.Validate(ctx, ports.EventPaymentAvailability, ports.AvailabilityCheck{
		Customer:  customer,
		CartTotal: cartTotal,
	}); err != nil {
		s.log.Debug().Err(err).Int64("customer_id", customer.ID).Msg("wallet availability vetoed")
		return false, nil
	}
	return true, nil
}

// ProcessPayment takes payment for a pending wallet order.
func (s *CheckoutService) ProcessPayment(ctx context.Context, orderID int64) (*ports.PaymentResult, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != domain.PaymentMethodWallet || !order.AwaitingPayment() {
		return nil, apperror.ErrOrderNotPayable()
	}

	customer, err := s.loadCustomer(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.WalletLocked {
		return nil, apperror.ErrWalletLocked()
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.SSoTActive() {
		return s.payRemote(ctx, cfg, order, customer)
	}
	return s.payLocal(ctx, order)
}

// payRemote debits the POS. Nothing local changes unless the debit succeeds.
func (s *CheckoutService) payRemote(ctx context.Context, cfg *domain.IntegrationConfig, order *domain.Order, customer *domain.Customer) (*ports.PaymentResult, error) {
	balance, err := s.engine.RemoteBalance(ctx, cfg, customer)
	if err != nil {
		s.log.Error().Err(err).Int64("order_id", order.ID).Msg("ssot balance check failed")
		return nil, retryableRemoteError(err)
	}
	if balance.LessThan(order.Total) {
		return nil, apperror.ErrInsufficientFunds(balance, order.Total)
	}

	reference := domain.BuildOrderReference(cfg.SitePrefix, order.ID, cfg.SiteSlug)
	res, err := s.engine.RemoteDebit(ctx, cfg, customer, ports.RemoteEntryRequest{
		Amount:      order.Total,
		Reference:   reference,
		Description: fmt.Sprintf("Purchase at %s - Order #%d", cfg.SiteSlug, order.ID),
	}, &balance)
	if err != nil {
		s.log.Error().Err(err).Int64("order_id", order.ID).Str("reference", reference).Msg("ssot debit failed")
		return nil, retryableRemoteError(err)
	}

	now := s.now().UTC()
	order.POSTransactionID = res.TransactionID
	order.POSReference = reference
	order.PaidViaSSoT = true
	order.Status = domain.OrderStatusProcessing
	order.PaidAt = &now

	s.fulfil(ctx, order)
	s.note(ctx, order.ID, fmt.Sprintf("Wallet payment via POS. Amount: %s. Ref: %s", order.Total.StringFixed(2), reference))

	if err := s.orders.Update(ctx, order); err != nil {
		// The POS has the money; the reference lets an operator reconcile.
		s.log.Error().Err(err).Int64("order_id", order.ID).Str("reference", reference).Msg("remote debit taken but order update failed")
		return nil, apperror.ErrDatabaseError(err)
	}

	s.bus.Publish(ctx, ports.EventPaymentProcessed, ports.PaymentProcessed{Order: order, TransactionID: res.TransactionID})
	s.log.Info().
		Int64("order_id", order.ID).
		Str("amount", order.Total.String()).
		Str("reference", reference).
		Msg("ssot payment completed")

	return &ports.PaymentResult{Order: order, TransactionID: res.TransactionID, Reference: reference, SSoT: true}, nil
}

func (s *CheckoutService) payLocal(ctx context.Context, order *domain.Order) (*ports.PaymentResult, error) {
	balance, err := s.engine.LocalBalance(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	if !balance.IsPositive() || order.Total.GreaterThan(balance) {
		return nil, apperror.ErrInsufficientFunds(balance, order.Total)
	}

	s.fulfil(ctx, order)

	paid, err := s.CompletePayment(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	var txID string
	if paid.TransactionID != nil {
		txID = strconv.FormatInt(*paid.TransactionID, 10)
	}
	return &ports.PaymentResult{Order: paid, TransactionID: txID}, nil
}

// CompletePayment marks the order paid, taking the local ledger debit first
// when the order has none yet. SSoT orders are never debited locally.
func (s *CheckoutService) CompletePayment(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.AwaitingPayment() {
		return order, nil
	}

	if !order.PaidViaSSoT && !order.HasLedgerDebit() && order.PaymentMethod == domain.PaymentMethodWallet {
		cfg, err := s.config.Load(ctx)
		if err != nil {
			return nil, err
		}
		// The reference makes a racing second completion resolve to the
		// same ledger row instead of debiting again.
		tx, err := s.engine.RecordLocal(ctx, domain.LedgerEntry{
			UserID:   order.CustomerID,
			Type:     domain.TransactionTypeDebit,
			Amount:   order.Total,
			Currency: order.Currency,
			Details:  fmt.Sprintf("For order payment #%d", order.ID),
			Meta: map[string]string{
				domain.MetaOrderID:           strconv.FormatInt(order.ID, 10),
				domain.MetaExternalReference: domain.BuildOrderDebitReference(cfg.SitePrefix, order.ID),
			},
		})
		if err != nil {
			s.markFailed(ctx, order)
			return nil, err
		}
		order.TransactionID = &tx.ID
		s.bus.Publish(ctx, ports.EventPaymentProcessed, ports.PaymentProcessed{
			Order:         order,
			TransactionID: strconv.FormatInt(tx.ID, 10),
		})
	}

	now := s.now().UTC()
	order.Status = domain.OrderStatusProcessing
	order.PaidAt = &now
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.log.Info().Int64("order_id", order.ID).Bool("ssot", order.PaidViaSSoT).Msg("order payment completed")
	return order, nil
}

// ProcessRefund returns amount to the wallet that paid the order. A zero
// amount refunds whatever has not been refunded yet. Refunds are reserved
// against the order total first, so their sum can never exceed it.
func (s *CheckoutService) ProcessRefund(ctx context.Context, orderID int64, amount decimal.Decimal, reason string) (*ports.RefundResult, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPaid() {
		return nil, apperror.Validation("Order has not been paid")
	}
	if amount.IsZero() {
		amount = order.Refundable()
	}
	if !amount.IsPositive() || amount.GreaterThan(order.Total) {
		return nil, apperror.Validation("Refund amount must be between 0 and the order total")
	}
	if !domain.ValidAmount(amount) {
		return nil, apperror.ErrAmountPrecision()
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	reserved, ok, err := s.orders.ReserveRefund(ctx, order.ID, amount)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf(
			"Refund amount exceeds the refundable balance of %s", order.Refundable().StringFixed(2)))
	}

	var result *ports.RefundResult
	if cfg.SSoTActive() && reserved.PaidViaSSoT {
		result, err = s.refundRemote(ctx, cfg, reserved, amount, reason)
	} else {
		result, err = s.refundLocal(ctx, reserved, amount, reason)
	}
	if err != nil {
		if relErr := s.orders.ReleaseRefund(context.WithoutCancel(ctx), reserved.ID, amount); relErr != nil {
			s.log.Error().Err(relErr).Int64("order_id", reserved.ID).Str("amount", amount.String()).Msg("failed to release refund reservation")
		}
		return nil, err
	}

	if reserved.Refundable().IsZero() {
		reserved.Status = domain.OrderStatusRefunded
		if err := s.orders.Update(ctx, reserved); err != nil {
			return nil, apperror.ErrDatabaseError(err)
		}
	}

	s.log.Info().
		Int64("order_id", reserved.ID).
		Str("amount", amount.String()).
		Str("refunded_total", reserved.RefundedTotal.String()).
		Int("refund_seq", reserved.RefundCount).
		Msg("order refunded")

	s.bus.Publish(ctx, ports.EventOrderRefunded, ports.OrderRefunded{
		Order:         reserved,
		Amount:        amount,
		Reason:        reason,
		TransactionID: result.TransactionID,
	})
	result.Order = reserved
	return result, nil
}

func (s *CheckoutService) refundRemote(ctx context.Context, cfg *domain.IntegrationConfig, order *domain.Order, amount decimal.Decimal, reason string) (*ports.RefundResult, error) {
	customer, err := s.loadCustomer(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}

	reference := domain.BuildRefundReference(cfg.SitePrefix, order.ID, cfg.SiteSlug, order.RefundCount)
	description := fmt.Sprintf("Refund order #%d at %s", order.ID, cfg.SiteSlug)
	if reason != "" {
		description += " - " + reason
	}

	res, err := s.engine.RemoteCredit(ctx, cfg, customer, ports.RemoteEntryRequest{
		Amount:      amount,
		Reference:   reference,
		Description: description,
	})
	if err != nil {
		s.log.Error().Err(err).Int64("order_id", order.ID).Str("reference", reference).Msg("ssot refund failed")
		return nil, err
	}

	s.note(ctx, order.ID, fmt.Sprintf("Credit returned to POS wallet. Amount: %s. Ref: %s", amount.StringFixed(2), reference))
	return &ports.RefundResult{TransactionID: res.TransactionID, Reference: reference, SSoT: true}, nil
}

func (s *CheckoutService) refundLocal(ctx context.Context, order *domain.Order, amount decimal.Decimal, reason string) (*ports.RefundResult, error) {
	details := reason
	if details == "" {
		details = fmt.Sprintf("Wallet refund #%d", order.ID)
	}

	tx, err := s.engine.RecordLocal(ctx, domain.LedgerEntry{
		UserID:   order.CustomerID,
		Type:     domain.TransactionTypeCredit,
		Amount:   amount,
		Currency: order.Currency,
		Details:  details,
		Meta:     map[string]string{domain.MetaOrderID: strconv.FormatInt(order.ID, 10)},
	})
	if err != nil {
		return nil, err
	}
	return &ports.RefundResult{TransactionID: strconv.FormatInt(tx.ID, 10)}, nil
}

// ProcessRenewal completes a subscription renewal order at most once.
func (s *CheckoutService) ProcessRenewal(ctx context.Context, orderID int64) (*ports.PaymentResult, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsRenewal {
		return nil, apperror.Validation("Order is not a subscription renewal")
	}
	if order.RenewalProcessed {
		return &ports.PaymentResult{Order: order}, nil
	}

	paid, err := s.CompletePayment(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	paid.RenewalProcessed = true
	if err := s.orders.Update(ctx, paid); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	var txID string
	if paid.TransactionID != nil {
		txID = strconv.FormatInt(*paid.TransactionID, 10)
	}
	return &ports.PaymentResult{Order: paid, TransactionID: txID, SSoT: paid.PaidViaSSoT}, nil
}

func (s *CheckoutService) loadOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if order == nil {
		return nil, apperror.ErrNotFound("Order")
	}
	return order, nil
}

func (s *CheckoutService) loadCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if customer == nil {
		return nil, apperror.ErrNotFound("Customer")
	}
	return customer, nil
}

// fulfil reduces stock and empties the cart. Failures are logged only.
func (s *CheckoutService) fulfil(ctx context.Context, order *domain.Order) {
	if err := s.storefront.ReduceStock(ctx, order.ID); err != nil {
		s.log.Warn().Err(err).Int64("order_id", order.ID).Msg("failed to reduce stock")
	}
	if err := s.storefront.EmptyCart(ctx, order.CustomerID); err != nil {
		s.log.Warn().Err(err).Int64("customer_id", order.CustomerID).Msg("failed to empty cart")
	}
}

func (s *CheckoutService) note(ctx context.Context, orderID int64, note string) {
	if err := s.storefront.AddOrderNote(ctx, orderID, note); err != nil {
		s.log.Warn().Err(err).Int64("order_id", orderID).Msg("failed to add order note")
	}
}

func (s *CheckoutService) markFailed(ctx context.Context, order *domain.Order) {
	order.Status = domain.OrderStatusFailed
	if err := s.orders.Update(ctx, order); err != nil {
		s.log.Warn().Err(err).Int64("order_id", order.ID).Msg("failed to mark order failed")
	}
}

// retryableRemoteError hides remote details from the shopper.
func retryableRemoteError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Code == apperror.ErrNotConfigured().Code {
		return appErr
	}
	return apperror.ErrRemoteUnavailable(err)
}
