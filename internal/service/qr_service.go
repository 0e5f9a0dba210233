package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type qrService struct {
	customers ports.CustomerRepository
	engine    ports.ReconciliationEngine
	config    ports.ConfigProvider
	sig       ports.SignatureService
	now       func() time.Time
	log       zerolog.Logger
}

// NewQRService creates the QR payment token service. Tokens are signed with
// the webhook signing secret.
func NewQRService(
	customers ports.CustomerRepository,
	engine ports.ReconciliationEngine,
	config ports.ConfigProvider,
	sig ports.SignatureService,
	log zerolog.Logger,
) ports.QRService {
	return &qrService{
		customers: customers,
		engine:    engine,
		config:    config,
		sig:       sig,
		now:       time.Now,
		log:       log.With().Str("component", "qr").Logger(),
	}
}

func (s *qrService) Issue(ctx context.Context, customerID int64) (*domain.QRPaymentToken, error) {
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.QREnabled {
		return nil, apperror.ErrQRDisabled()
	}
	if cfg.WebhookSecret == "" {
		return nil, apperror.ErrNotConfigured()
	}

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if customer == nil {
		return nil, apperror.ErrNotFound("Customer")
	}

	var balance decimal.Decimal
	if cfg.SSoTActive() {
		balance, _, err = s.engine.CachedBalance(ctx, customer.ID)
	} else {
		balance, err = s.engine.LocalBalance(ctx, customer.ID)
	}
	if err != nil {
		return nil, err
	}

	ts := s.now().Unix()
	return &domain.QRPaymentToken{
		Source:    domain.QRSource,
		Email:     customer.Email,
		UserID:    customer.ID,
		Balance:   balance,
		Currency:  cfg.Currency,
		Timestamp: ts,
		Token:     s.sig.Sign(cfg.WebhookSecret, qrSignedFields(customer.Email, ts)),
	}, nil
}

// Verify checks the scanned payload. Expiry is checked before the signature
// so stale codes are always reported as expired.
func (s *qrService) Verify(ctx context.Context, raw string) (*domain.QRPaymentToken, error) {
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.QREnabled {
		return nil, apperror.ErrQRDisabled()
	}

	var token domain.QRPaymentToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, apperror.ErrQRInvalid()
	}
	if token.Source != domain.QRSource || token.Email == "" {
		return nil, apperror.ErrQRInvalid()
	}
	if token.Expired(s.now()) {
		return nil, apperror.ErrQRExpired()
	}
	if cfg.WebhookSecret == "" {
		return nil, apperror.ErrNotConfigured()
	}
	if !s.sig.Verify(cfg.WebhookSecret, qrSignedFields(token.Email, token.Timestamp), token.Token) {
		s.log.Warn().Str("email", token.Email).Msg("qr token signature mismatch")
		return nil, apperror.ErrQRInvalid()
	}
	return &token, nil
}

func qrSignedFields(email string, ts int64) []byte {
	return CanonicalFields(email, strconv.FormatInt(ts, 10))
}
