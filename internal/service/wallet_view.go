package service

import (
	"context"
	"strconv"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/shopspring/decimal"
)

// walletHistorySize is how many movements the wallet page lists.
const walletHistorySize = 10

// WalletView builds the customer's wallet page. In SSoT mode the balance is
// read from the POS, refreshing the cache, and falls back to the cached value
// when the POS is down. History comes from the POS when it has any, else
// from the local ledger.
func (s *ReconciliationService) WalletView(ctx context.Context, customerID int64) (*ports.WalletView, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if customer == nil {
		return nil, apperror.ErrNotFound("Customer")
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	view := &ports.WalletView{Customer: customer, Currency: cfg.Currency, SSoT: cfg.SSoTActive()}
	if !view.SSoT {
		if view.Balance, err = s.LocalBalance(ctx, customer.ID); err != nil {
			return nil, err
		}
		return view, s.localHistory(ctx, view)
	}

	balance, err := s.RemoteBalance(ctx, cfg, customer)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", customer.ID).Msg("pos balance unavailable, showing last known balance")
		view.Degraded = true
		if balance, err = s.lastKnownBalance(ctx, customer.ID); err != nil {
			return nil, err
		}
	}
	view.Balance = balance

	// A POS that just failed is not asked again for history.
	if !view.Degraded && s.remoteHistory(ctx, cfg, view) {
		return view, nil
	}
	return view, s.localHistory(ctx, view)
}

func (s *ReconciliationService) lastKnownBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	cached, ok, err := s.CachedBalance(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if ok {
		return cached, nil
	}
	return s.LocalBalance(ctx, userID)
}

// remoteHistory fills view from the POS. It reports false when the POS had
// nothing to show, so the caller can fall back to the local ledger.
func (s *ReconciliationService) remoteHistory(ctx context.Context, cfg *domain.IntegrationConfig, view *ports.WalletView) bool {
	client, err := s.provider.Client(ctx, cfg)
	if err != nil {
		return false
	}
	page, err := client.ListTransactions(ctx, view.Customer.Email, walletHistorySize, 1)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", view.Customer.ID).Msg("pos history unavailable, showing local history")
		return false
	}
	if len(page.Transactions) == 0 {
		return false
	}

	view.HistorySource = ports.HistorySourcePOS
	view.History = make([]ports.WalletEntry, 0, len(page.Transactions))
	for _, t := range page.Transactions {
		view.History = append(view.History, ports.WalletEntry{
			ID:      t.ID,
			Type:    t.Type,
			Amount:  t.Amount,
			Details: t.Details,
			Date:    t.Date,
		})
	}
	return true
}

func (s *ReconciliationService) localHistory(ctx context.Context, view *ports.WalletView) error {
	txs, _, err := s.ledger.List(ctx, view.Customer.ID, 1, walletHistorySize)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}

	view.HistorySource = ports.HistorySourceLocal
	view.History = make([]ports.WalletEntry, 0, len(txs))
	for _, tx := range txs {
		view.History = append(view.History, ports.WalletEntry{
			ID:      strconv.FormatInt(tx.ID, 10),
			Type:    string(tx.Type),
			Amount:  tx.Amount,
			Details: tx.Details,
			Date:    tx.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil
}

// RemoteCustomer looks a customer up on the POS side.
func (s *ReconciliationService) RemoteCustomer(ctx context.Context, email string) (*ports.RemoteCustomer, error) {
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	client, err := s.provider.Client(ctx, cfg)
	if err != nil {
		return nil, mapRemoteError(err)
	}
	customer, err := client.GetCustomer(ctx, email)
	if err != nil {
		return nil, mapRemoteError(err)
	}
	return customer, nil
}
