package service

import (
	"context"
	"math"
	"strings"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100

	webhookPath = "/api/v1/pos/webhook"
)

// posService implements ports.POSService.
type posService struct {
	customers ports.CustomerRepository
	ledger    ports.LedgerStore
	engine    ports.ReconciliationEngine
	qr        ports.QRService
	provider  ports.RemoteLedgerProvider
	config    ports.ConfigProvider
	now       func() time.Time
	log       zerolog.Logger
}

// NewPOSService creates the service behind the endpoints the POS calls.
func NewPOSService(
	customers ports.CustomerRepository,
	ledger ports.LedgerStore,
	engine ports.ReconciliationEngine,
	qr ports.QRService,
	provider ports.RemoteLedgerProvider,
	config ports.ConfigProvider,
	log zerolog.Logger,
) ports.POSService {
	return &posService{
		customers: customers,
		ledger:    ledger,
		engine:    engine,
		qr:        qr,
		provider:  provider,
		config:    config,
		now:       time.Now,
		log:       log.With().Str("component", "pos_api").Logger(),
	}
}

func (s *posService) Balance(ctx context.Context, lookup ports.CustomerLookup) (*ports.BalanceView, error) {
	customer, err := s.resolve(ctx, lookup)
	if err != nil {
		return nil, err
	}
	return s.balanceView(ctx, customer)
}

func (s *posService) Credit(ctx context.Context, req ports.POSEntryRequest) (*ports.EntryView, error) {
	return s.entry(ctx, domain.TransactionTypeCredit, req)
}

func (s *posService) Debit(ctx context.Context, req ports.POSEntryRequest) (*ports.EntryView, error) {
	return s.entry(ctx, domain.TransactionTypeDebit, req)
}

func (s *posService) entry(ctx context.Context, typ domain.TransactionType, req ports.POSEntryRequest) (*ports.EntryView, error) {
	customer, err := s.resolve(ctx, req.Lookup)
	if err != nil {
		return nil, err
	}
	if customer.WalletLocked {
		return nil, apperror.ErrWalletLocked()
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	details := "Credit from POS"
	if typ == domain.TransactionTypeDebit {
		details = "POS payment"
	}
	if req.Reference != "" {
		details += " #" + req.Reference
	}
	if req.Note != "" {
		details += " - " + req.Note
	}

	res, err := s.engine.ApplyInbound(ctx, cfg, ports.InboundEntry{
		Customer:  customer,
		Type:      typ,
		Amount:    req.Amount,
		Reference: req.Reference,
		Details:   details,
		Origin:    domain.OriginPOS,
	})
	if err != nil {
		return nil, err
	}

	return s.entryView(ctx, cfg, customer, res, req.Reference, "")
}

func (s *posService) Transactions(ctx context.Context, email string, page, perPage int) (*ports.TransactionPage, error) {
	customer, err := s.resolve(ctx, ports.CustomerLookup{Email: email})
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	txns, total, err := s.ledger.List(ctx, customer.ID, page, perPage)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	return &ports.TransactionPage{
		Transactions: txns,
		Total:        total,
		Page:         page,
		PerPage:      perPage,
		TotalPages:   int(math.Ceil(float64(total) / float64(perPage))),
	}, nil
}

func (s *posService) LookupCustomer(ctx context.Context, lookup ports.CustomerLookup) (*ports.BalanceView, error) {
	var (
		customer *domain.Customer
		err      error
	)
	switch {
	case lookup.Email != "":
		customer, err = s.customers.GetByEmail(ctx, lookup.Email)
	case lookup.Phone != "":
		customer, err = s.customers.GetByPhone(ctx, lookup.Phone)
	default:
		return nil, apperror.Validation("Provide email or phone")
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if customer == nil {
		return nil, apperror.ErrNotFound("Customer")
	}
	return s.balanceView(ctx, customer)
}

// QRPay debits the wallet of the customer who presented a QR code.
func (s *posService) QRPay(ctx context.Context, req ports.QRPayRequest) (*ports.EntryView, error) {
	token, err := s.qr.Verify(ctx, req.QRData)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByEmail(ctx, token.Email)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if customer == nil {
		return nil, apperror.ErrNotFound("Customer")
	}
	if customer.WalletLocked {
		return nil, apperror.ErrWalletLocked()
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	details := "QR payment at POS"
	if req.Terminal != "" {
		details += " (" + req.Terminal + ")"
	}
	if req.Reference != "" {
		details += " #" + req.Reference
	}

	res, err := s.engine.ApplyInbound(ctx, cfg, ports.InboundEntry{
		Customer:  customer,
		Type:      domain.TransactionTypeDebit,
		Amount:    req.Amount,
		Reference: req.Reference,
		Details:   details,
		Origin:    domain.OriginPOSQR,
		Terminal:  req.Terminal,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", customer.ID).
		Str("terminal", req.Terminal).
		Str("amount", req.Amount.String()).
		Bool("duplicate", res.Duplicate).
		Msg("qr payment")

	return s.entryView(ctx, cfg, customer, res, req.Reference, req.Terminal)
}

func (s *posService) Status(ctx context.Context) (*ports.StatusView, error) {
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	view := &ports.StatusView{
		Version:       cfg.Version,
		POSConfigured: cfg.OutboundConfigured(),
		SSoT:          cfg.SSoTActive(),
		Currency:      cfg.Currency,
		WebhookURL:    strings.TrimRight(cfg.PublicURL, "/") + webhookPath,
		CheckedAt:     s.now().UTC(),
	}
	if !view.POSConfigured {
		return view, nil
	}

	client, err := s.provider.Client(ctx, cfg)
	if err == nil {
		_, err = client.Ping(ctx)
	}
	if err != nil {
		view.Connection = "error"
		view.ConnectionErr = err.Error()
		return view, nil
	}
	view.Connection = "ok"
	return view, nil
}

// resolve finds a customer by email, else by user id.
func (s *posService) resolve(ctx context.Context, lookup ports.CustomerLookup) (*domain.Customer, error) {
	var (
		customer *domain.Customer
		err      error
	)
	switch {
	case lookup.Email != "":
		customer, err = s.customers.GetByEmail(ctx, lookup.Email)
	case lookup.UserID > 0:
		customer, err = s.customers.GetByID(ctx, lookup.UserID)
	default:
		return nil, apperror.Validation("Provide email or user_id")
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if customer == nil {
		return nil, apperror.ErrNotFound("Customer")
	}
	return customer, nil
}

func (s *posService) balanceView(ctx context.Context, customer *domain.Customer) (*ports.BalanceView, error) {
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := s.engine.LocalBalance(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	return &ports.BalanceView{Customer: customer, Balance: balance, Currency: cfg.Currency}, nil
}

func (s *posService) entryView(
	ctx context.Context,
	cfg *domain.IntegrationConfig,
	customer *domain.Customer,
	res *ports.InboundResult,
	reference, terminal string,
) (*ports.EntryView, error) {
	balance, err := s.engine.LocalBalance(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	return &ports.EntryView{
		Customer:    customer,
		Transaction: res.Transaction,
		NewBalance:  balance,
		Currency:    cfg.Currency,
		Reference:   reference,
		Terminal:    terminal,
		Duplicate:   res.Duplicate,
	}, nil
}
