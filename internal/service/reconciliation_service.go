package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	referenceLockTTL     = 30 * time.Second
	referencePollTries   = 5
	referencePollBackoff = 100 * time.Millisecond

	genericRemoteFailure = "Wallet service error, please try again"
)

// ReconciliationService routes wallet reads and writes to whichever ledger is
// authoritative and keeps the other side coherent.
type ReconciliationService struct {
	ledger    ports.LedgerStore
	customers ports.CustomerRepository
	cache     ports.BalanceCacheRepository
	locker    ports.ReferenceLocker
	jobs      ports.SyncJobRepository
	provider  ports.RemoteLedgerProvider
	config    ports.ConfigProvider
	bus       ports.EventBus
	now       func() time.Time
	log       zerolog.Logger
}

// NewReconciliationService creates the engine. locker may be nil, in which
// case only the storage unique index guards concurrent replays.
func NewReconciliationService(
	ledger ports.LedgerStore,
	customers ports.CustomerRepository,
	cache ports.BalanceCacheRepository,
	locker ports.ReferenceLocker,
	jobs ports.SyncJobRepository,
	provider ports.RemoteLedgerProvider,
	config ports.ConfigProvider,
	bus ports.EventBus,
	log zerolog.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		ledger:    ledger,
		customers: customers,
		cache:     cache,
		locker:    locker,
		jobs:      jobs,
		provider:  provider,
		config:    config,
		bus:       bus,
		now:       time.Now,
		log:       log.With().Str("component", "reconciliation").Logger(),
	}
}

// --- Local ledger ---

func (s *ReconciliationService) LocalBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return decimal.Zero, apperror.ErrDatabaseError(err)
	}
	return balance, nil
}

func (s *ReconciliationService) RecordLocal(ctx context.Context, entry domain.LedgerEntry) (*domain.WalletTransaction, error) {
	if !entry.Type.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown transaction type %q", entry.Type))
	}
	if err := checkAmount(entry.Amount); err != nil {
		return nil, err
	}

	tx, err := s.ledger.Record(ctx, entry)
	if errors.Is(err, domain.ErrDuplicateReference) {
		// A keyed entry that already exists is returned as is; listeners
		// already saw it when it was first written.
		ref := entry.Meta[domain.MetaExternalReference]
		existing, findErr := s.ledger.FindByReference(ctx, ref)
		if findErr != nil {
			return nil, apperror.ErrDatabaseError(findErr)
		}
		if existing == nil {
			return nil, apperror.InternalError(fmt.Errorf("reference %s reported duplicate but not found", ref))
		}
		s.log.Info().Str("reference", ref).Int64("transaction_id", existing.ID).Msg("keyed local entry already recorded")
		return existing, nil
	}
	if err != nil {
		return nil, s.mapLedgerError(ctx, entry, err)
	}

	s.bus.Publish(ctx, ports.EventTransactionRecorded, ports.TransactionRecorded{Transaction: tx})
	return tx, nil
}

// ApplyInbound records a POS-originated movement at most once per reference.
func (s *ReconciliationService) ApplyInbound(ctx context.Context, cfg *domain.IntegrationConfig, entry ports.InboundEntry) (*ports.InboundResult, error) {
	if entry.Customer == nil {
		return nil, apperror.ErrNotFound("Customer")
	}
	if !entry.Type.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown transaction type %q", entry.Type))
	}
	if err := checkAmount(entry.Amount); err != nil {
		return nil, err
	}

	origin := entry.Origin
	if origin == domain.OriginNative {
		origin = domain.OriginPOS
	}
	if origin == domain.OriginPOS && cfg.SSoTActive() {
		origin = domain.OriginPOSSSoT
	}

	ref := entry.Reference
	if ref != "" {
		existing, err := s.ledger.FindByReference(ctx, ref)
		if err != nil {
			return nil, apperror.ErrDatabaseError(err)
		}
		if existing != nil {
			return &ports.InboundResult{Transaction: existing, Duplicate: true}, nil
		}

		release, dup, err := s.lockReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		if dup != nil {
			return &ports.InboundResult{Transaction: dup, Duplicate: true}, nil
		}
		defer release()
	}

	meta := map[string]string{domain.MetaOrigin: string(origin)}
	if ref != "" {
		meta[domain.MetaExternalReference] = ref
	}
	if entry.Terminal != "" {
		meta[domain.MetaTerminal] = entry.Terminal
	}

	ledgerEntry := domain.LedgerEntry{
		UserID:   entry.Customer.ID,
		Type:     entry.Type,
		Amount:   entry.Amount,
		Currency: cfg.Currency,
		Details:  entry.Details,
		Meta:     meta,
	}

	tx, err := s.ledger.Record(ctx, ledgerEntry)
	if errors.Is(err, domain.ErrDuplicateReference) {
		existing, findErr := s.ledger.FindByReference(ctx, ref)
		if findErr != nil {
			return nil, apperror.ErrDatabaseError(findErr)
		}
		if existing == nil {
			return nil, apperror.InternalError(fmt.Errorf("reference %s reported duplicate but not found", ref))
		}
		s.log.Info().Str("reference", ref).Int64("transaction_id", existing.ID).Msg("concurrent replay resolved by unique index")
		return &ports.InboundResult{Transaction: existing, Duplicate: true}, nil
	}
	if err != nil {
		return nil, s.mapLedgerError(ctx, ledgerEntry, err)
	}

	if entry.ReportedBalance != nil && cfg.SSoTActive() {
		s.setCache(ctx, entry.Customer.ID, *entry.ReportedBalance)
	}

	s.log.Info().
		Int64("transaction_id", tx.ID).
		Int64("user_id", tx.UserID).
		Str("type", string(tx.Type)).
		Str("origin", string(origin)).
		Str("reference", ref).
		Msg("inbound transaction applied")

	s.bus.Publish(ctx, ports.EventTransactionRecorded, ports.TransactionRecorded{Transaction: tx})
	return &ports.InboundResult{Transaction: tx}, nil
}

// lockReference takes the cross-instance lock for ref. When another holder
// owns it, the transaction that holder writes is returned as dup instead.
func (s *ReconciliationService) lockReference(ctx context.Context, ref string) (release func(), dup *domain.WalletTransaction, err error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil, nil
	}

	acquired, err := s.locker.Acquire(ctx, ref, referenceLockTTL)
	if err != nil {
		// Degraded: the unique index still rejects the second writer.
		s.log.Warn().Err(err).Str("reference", ref).Msg("reference lock unavailable")
		return noop, nil, nil
	}
	if acquired {
		return func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), ref); err != nil {
				s.log.Warn().Err(err).Str("reference", ref).Msg("failed to release reference lock")
			}
		}, nil, nil
	}

	for i := 0; i < referencePollTries; i++ {
		select {
		case <-ctx.Done():
			return nil, nil, apperror.ErrLockTimeout(ctx.Err())
		case <-time.After(referencePollBackoff):
		}
		existing, err := s.ledger.FindByReference(ctx, ref)
		if err != nil {
			return nil, nil, apperror.ErrDatabaseError(err)
		}
		if existing != nil {
			return noop, existing, nil
		}
	}
	return nil, nil, apperror.ErrLockTimeout(fmt.Errorf("%w: %s", domain.ErrReferenceLocked, ref))
}

// checkAmount rejects amounts the ledger cannot store exactly.
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	if !domain.ValidAmount(amount) {
		return apperror.ErrAmountPrecision()
	}
	return nil
}

func (s *ReconciliationService) mapLedgerError(ctx context.Context, entry domain.LedgerEntry, err error) error {
	if errors.Is(err, domain.ErrInsufficientFunds) {
		balance, balErr := s.ledger.Balance(ctx, entry.UserID)
		if balErr != nil {
			return apperror.ErrDatabaseError(balErr)
		}
		return apperror.ErrInsufficientFunds(balance, entry.Amount)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.ErrDatabaseError(err)
}

// --- Remote ledger (SSoT) ---

// CachedBalance returns the last balance the POS reported. ok is false when
// nothing has been cached yet.
func (s *ReconciliationService) CachedBalance(ctx context.Context, userID int64) (decimal.Decimal, bool, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, false, apperror.ErrDatabaseError(err)
	}
	if cached == nil {
		return decimal.Zero, false, nil
	}
	return cached.Balance, true, nil
}

func (s *ReconciliationService) RemoteBalance(ctx context.Context, cfg *domain.IntegrationConfig, customer *domain.Customer) (decimal.Decimal, error) {
	client, err := s.provider.Client(ctx, cfg)
	if err != nil {
		return decimal.Zero, mapRemoteError(err)
	}

	res, err := client.GetBalance(ctx, customer.Email)
	if err != nil {
		return decimal.Zero, mapRemoteError(err)
	}

	s.setCache(ctx, customer.ID, res.Balance)
	return res.Balance, nil
}

// RemoteDebit debits the POS wallet. When the response carries no balance the
// cache falls back to knownBalance minus the amount.
func (s *ReconciliationService) RemoteDebit(
	ctx context.Context,
	cfg *domain.IntegrationConfig,
	customer *domain.Customer,
	req ports.RemoteEntryRequest,
	knownBalance *decimal.Decimal,
) (*ports.RemoteEntryResult, error) {
	client, err := s.provider.Client(ctx, cfg)
	if err != nil {
		return nil, mapRemoteError(err)
	}

	req.Email = customer.Email
	res, err := client.Debit(ctx, req)
	if err != nil {
		return nil, mapRemoteError(err)
	}

	switch {
	case res.HasBalance:
		s.setCache(ctx, customer.ID, res.Balance)
	case knownBalance != nil:
		s.setCache(ctx, customer.ID, knownBalance.Sub(req.Amount))
	}
	return res, nil
}

func (s *ReconciliationService) RemoteCredit(
	ctx context.Context,
	cfg *domain.IntegrationConfig,
	customer *domain.Customer,
	req ports.RemoteEntryRequest,
) (*ports.RemoteEntryResult, error) {
	client, err := s.provider.Client(ctx, cfg)
	if err != nil {
		return nil, mapRemoteError(err)
	}

	req.Email = customer.Email
	res, err := client.Credit(ctx, req)
	if err != nil {
		return nil, mapRemoteError(err)
	}

	if res.HasBalance {
		s.setCache(ctx, customer.ID, res.Balance)
	}
	return res, nil
}

func (s *ReconciliationService) setCache(ctx context.Context, userID int64, balance decimal.Decimal) {
	if err := s.cache.Set(ctx, userID, balance); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to update balance cache")
	}
}

// --- Outbound sync ---

// SyncListener enqueues native transactions for the sync worker. It is
// subscribed to transaction.recorded only when SSoT is off at startup and
// re-checks the live configuration on every call.
func (s *ReconciliationService) SyncListener(ctx context.Context, payload any) error {
	event, ok := payload.(ports.TransactionRecorded)
	if !ok || event.Transaction == nil {
		return nil
	}
	tx := event.Transaction
	if tx.Origin().IsRemote() {
		return nil
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return err
	}
	if !cfg.OutboundSyncAllowed() {
		return nil
	}

	if err := s.ledger.SetMeta(ctx, tx.ID, map[string]string{
		domain.MetaSyncStatus: string(domain.SyncStatusPending),
	}); err != nil {
		return fmt.Errorf("tag sync pending: %w", err)
	}

	now := s.now().UTC()
	job := &domain.SyncJob{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		Status:        domain.SyncJobPending,
		NextRunAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue sync job: %w", err)
	}

	s.log.Debug().Int64("transaction_id", tx.ID).Str("job_id", job.ID.String()).Msg("sync job enqueued")
	return nil
}

// SyncTransaction pushes one native local transaction to the POS with the
// <SITE>-TXN-<id> reference and tags the outcome on its meta.
func (s *ReconciliationService) SyncTransaction(ctx context.Context, transactionID int64) error {
	tx, err := s.ledger.GetByID(ctx, transactionID)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if tx == nil {
		return apperror.ErrNotFound("Transaction")
	}
	if tx.Origin().IsRemote() || domain.SyncStatus(tx.Meta[domain.MetaSyncStatus]) == domain.SyncStatusSynced {
		return nil
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return err
	}
	if !cfg.OutboundSyncAllowed() {
		s.log.Debug().Int64("transaction_id", tx.ID).Msg("outbound sync disabled, skipping")
		return nil
	}

	customer, err := s.customers.GetByID(ctx, tx.UserID)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if customer == nil {
		return apperror.ErrNotFound("Customer")
	}

	client, err := s.provider.Client(ctx, cfg)
	if err != nil {
		return s.markSyncFailed(ctx, tx.ID, err)
	}

	req := ports.RemoteEntryRequest{
		Email:       customer.Email,
		Amount:      tx.Amount,
		Reference:   domain.BuildSyncReference(cfg.SitePrefix, tx.ID),
		Description: tx.Details,
	}

	var res *ports.RemoteEntryResult
	if tx.Type == domain.TransactionTypeCredit {
		res, err = client.Credit(ctx, req)
	} else {
		res, err = client.Debit(ctx, req)
	}
	if err != nil {
		return s.markSyncFailed(ctx, tx.ID, err)
	}

	if err := s.ledger.SetMeta(ctx, tx.ID, map[string]string{
		domain.MetaSyncStatus:       string(domain.SyncStatusSynced),
		domain.MetaSyncError:        "",
		domain.MetaPOSTransactionID: res.TransactionID,
	}); err != nil {
		return apperror.ErrDatabaseError(err)
	}

	s.log.Info().
		Int64("transaction_id", tx.ID).
		Str("reference", req.Reference).
		Str("pos_transaction_id", res.TransactionID).
		Msg("transaction synced to pos")
	return nil
}

func (s *ReconciliationService) markSyncFailed(ctx context.Context, transactionID int64, cause error) error {
	if err := s.ledger.SetMeta(ctx, transactionID, map[string]string{
		domain.MetaSyncStatus: string(domain.SyncStatusFailed),
		domain.MetaSyncError:  cause.Error(),
	}); err != nil {
		s.log.Error().Err(err).Int64("transaction_id", transactionID).Msg("failed to tag sync failure")
	}
	s.log.Warn().Err(cause).Int64("transaction_id", transactionID).Msg("transaction sync failed")
	return cause
}

// mapRemoteError converts Remote Ledger Client failures into client-facing
// errors. Only messages from 4xx responses are relayed.
func mapRemoteError(err error) error {
	var (
		transportErr *ports.TransportError
		remoteErr    *ports.RemoteError
		appErr       *apperror.AppError
	)
	switch {
	case errors.Is(err, ports.ErrRemoteNotConfigured):
		return apperror.ErrNotConfigured()
	case errors.Is(err, ports.ErrInvalidRemoteInput):
		return apperror.Validation(err.Error())
	case errors.As(err, &transportErr):
		return apperror.ErrRemoteUnavailable(err)
	case errors.As(err, &remoteErr):
		if remoteErr.ClientSide() {
			return apperror.ErrRemoteRejected(remoteErr.Message, err)
		}
		return apperror.ErrRemoteRejected(genericRemoteFailure, err)
	case errors.As(err, &appErr):
		return appErr
	default:
		return apperror.InternalError(err)
	}
}
