package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Built-in webhook event types.
const (
	WebhookEventCredit          = "wallet.credit"
	WebhookEventDebit           = "wallet.debit"
	WebhookEventCustomerCreated = "customer.created"
	WebhookEventPing            = "ping"
)

const generatedPasswordLength = 12

// webhookBody is the envelope the POS posts. Event fields sit next to the
// event name.
type webhookBody struct {
	Event     string           `json:"event"`
	Email     string           `json:"email"`
	Amount    decimal.Decimal  `json:"amount"`
	Reference string           `json:"reference"`
	Details   string           `json:"details"`
	Terminal  string           `json:"terminal"`
	Balance   *decimal.Decimal `json:"balance"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Phone     string           `json:"phone"`
}

// webhookService implements ports.WebhookProcessor.
type webhookService struct {
	config    ports.ConfigProvider
	engine    ports.ReconciliationEngine
	customers ports.CustomerRepository
	hasher    ports.HashService
	bus       ports.EventBus
	metrics   ports.MetricsRecorder
	log       zerolog.Logger
}

// NewWebhookService creates the webhook ingress processor. The body must
// already be signature-verified.
func NewWebhookService(
	config ports.ConfigProvider,
	engine ports.ReconciliationEngine,
	customers ports.CustomerRepository,
	hasher ports.HashService,
	bus ports.EventBus,
	metrics ports.MetricsRecorder,
	log zerolog.Logger,
) ports.WebhookProcessor {
	return &webhookService{
		config:    config,
		engine:    engine,
		customers: customers,
		hasher:    hasher,
		bus:       bus,
		metrics:   metrics,
		log:       log.With().Str("component", "webhook").Logger(),
	}
}

func (s *webhookService) Process(ctx context.Context, body []byte) (*ports.WebhookResult, error) {
	var req webhookBody
	if err := json.Unmarshal(body, &req); err != nil {
		s.metrics.WebhookEvent("unknown", "invalid")
		return nil, apperror.Validation("Invalid webhook payload.")
	}
	event := strings.TrimSpace(req.Event)
	if event == "" {
		s.metrics.WebhookEvent("unknown", "invalid")
		return nil, apperror.Validation("Missing event type.")
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.dispatch(ctx, cfg, event, &req, body)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case res.Message == msgDuplicate:
		outcome = "duplicate"
	case res.Message == msgIgnored:
		outcome = "ignored"
	}
	s.metrics.WebhookEvent(metricEventLabel(event), outcome)

	if err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("webhook rejected")
		return nil, err
	}
	return res, nil
}

const (
	msgIgnored       = "Local to POS sync only. Event ignored."
	msgDuplicate     = "Duplicate webhook - already processed."
	msgReceived      = "Event received."
	msgPong          = "pong"
	msgCustomerFound = "Customer already exists."
	msgCustomerMade  = "Customer created."
)

func (s *webhookService) dispatch(ctx context.Context, cfg *domain.IntegrationConfig, event string, req *webhookBody, raw []byte) (*ports.WebhookResult, error) {
	if !cfg.AcceptsInbound() {
		return &ports.WebhookResult{Status: http.StatusOK, Message: msgIgnored}, nil
	}

	switch event {
	case WebhookEventCredit:
		return s.applyEntry(ctx, cfg, domain.TransactionTypeCredit, req)
	case WebhookEventDebit:
		return s.applyEntry(ctx, cfg, domain.TransactionTypeDebit, req)
	case WebhookEventCustomerCreated:
		return s.customerCreated(ctx, req)
	case WebhookEventPing:
		return &ports.WebhookResult{Status: http.StatusOK, Message: msgPong, Version: cfg.Version}, nil
	default:
		s.bus.Publish(ctx, ports.WebhookEventPrefix+event, ports.WebhookEvent{Name: event, Body: raw})
		return &ports.WebhookResult{Status: http.StatusOK, Message: msgReceived}, nil
	}
}

func (s *webhookService) applyEntry(ctx context.Context, cfg *domain.IntegrationConfig, typ domain.TransactionType, req *webhookBody) (*ports.WebhookResult, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || !req.Amount.IsPositive() {
		return nil, apperror.Validation("Invalid webhook data.")
	}

	customer, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if customer == nil {
		return nil, apperror.ErrNotFound("Customer")
	}

	details := req.Details
	if details == "" {
		if typ == domain.TransactionTypeCredit {
			details = "Credit from POS"
		} else {
			details = "POS payment"
		}
		if req.Reference != "" {
			details = fmt.Sprintf("%s #%s", details, req.Reference)
		}
	}

	res, err := s.engine.ApplyInbound(ctx, cfg, ports.InboundEntry{
		Customer:        customer,
		Type:            typ,
		Amount:          req.Amount,
		Reference:       strings.TrimSpace(req.Reference),
		Details:         details,
		Origin:          domain.OriginPOS,
		Terminal:        req.Terminal,
		ReportedBalance: req.Balance,
	})
	if err != nil {
		return nil, err
	}

	txID := res.Transaction.ID
	out := &ports.WebhookResult{Status: http.StatusOK, TransactionID: &txID}
	if res.Duplicate {
		out.Message = msgDuplicate
	}
	return out, nil
}

func (s *webhookService) customerCreated(ctx context.Context, req *webhookBody) (*ports.WebhookResult, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, apperror.Validation("Missing customer email.")
	}

	existing, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if existing != nil {
		id := existing.ID
		return &ports.WebhookResult{Status: http.StatusOK, Message: msgCustomerFound, UserID: &id}, nil
	}

	password, err := GeneratePassword(generatedPasswordLength)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	customer := &domain.Customer{
		Email:         email,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Phone:         strings.TrimSpace(req.Phone),
		PasswordHash:  hash,
		POSOriginated: true,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.log.Info().Int64("user_id", customer.ID).Msg("customer created from pos")

	id := customer.ID
	return &ports.WebhookResult{Status: http.StatusCreated, Message: msgCustomerMade, UserID: &id}, nil
}

// metricEventLabel keeps the label set bounded.
func metricEventLabel(event string) string {
	switch event {
	case WebhookEventCredit, WebhookEventDebit, WebhookEventCustomerCreated, WebhookEventPing:
		return event
	default:
		return "other"
	}
}
