package posclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultTimeout applies when the configuration leaves it unset.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 1 << 20

// Operation names, used in errors, logs and metrics.
const (
	OpBalance      = "balance"
	OpDebit        = "debit"
	OpCredit       = "credit"
	OpTransactions = "transactions"
	OpCustomer     = "customer"
	OpStatus       = "status"
)

// Metric outcomes.
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
	outcomeRemote    = "remote_error"
	outcomeDecode    = "decode_error"
)

// Config describes one POS endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Auth    AuthStrategy
	Source  string
	// HTTPClient overrides the default client; its Timeout is replaced.
	HTTPClient *http.Client
}

// Client implements ports.RemoteLedger over the POS wallet-connector API.
type Client struct {
	baseURL string
	http    *http.Client
	auth    AuthStrategy
	source  string
	metrics ports.MetricsRecorder
	log     zerolog.Logger
}

var _ ports.RemoteLedger = (*Client)(nil)

// New builds a client. It fails with ports.ErrRemoteNotConfigured when the
// base URL or credentials are missing.
func New(cfg Config, metrics ports.MetricsRecorder, log zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" || cfg.Auth == nil {
		return nil, ports.ErrRemoteNotConfigured
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ports.ErrRemoteNotConfigured, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		httpClient = &c
	}
	httpClient.Timeout = timeout

	return &Client{
		baseURL: base,
		http:    httpClient,
		auth:    cfg.Auth,
		source:  cfg.Source,
		metrics: metrics,
		log:     log.With().Str("component", "pos_client").Str("auth", cfg.Auth.Name()).Logger(),
	}, nil
}

// --- wire types ---

type entryBody struct {
	Email       string      `json:"email"`
	Amount      json.Number `json:"amount"`
	Reference   string      `json:"reference,omitempty"`
	Description string      `json:"description,omitempty"`
}

type balanceBody struct {
	Email    string          `json:"email"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type entryResultBody struct {
	TransactionID flexID           `json:"transaction_id"`
	Balance       *decimal.Decimal `json:"balance"`
	NewBalance    *decimal.Decimal `json:"new_balance"`
}

type transactionBody struct {
	ID      flexID          `json:"transaction_id"`
	Type    string          `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
	Details string          `json:"details"`
	Date    string          `json:"date"`
}

type transactionsBody struct {
	Transactions []transactionBody `json:"transactions"`
	Total        int64             `json:"total"`
	Page         int               `json:"page"`
}

type customerBody struct {
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Phone     string          `json:"phone"`
	Balance   decimal.Decimal `json:"balance"`
}

type statusBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// flexID accepts an id sent either as a JSON string or a JSON number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("transaction_id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// --- operations ---

func (c *Client) GetBalance(ctx context.Context, email string) (*ports.RemoteBalance, error) {
	email, err := requireEmail(OpBalance, email)
	if err != nil {
		return nil, err
	}

	var body balanceBody
	raw, err := c.do(ctx, OpBalance, http.MethodGet, "/balance", url.Values{"email": {email}}, nil, &body)
	if err != nil {
		return nil, err
	}

	return &ports.RemoteBalance{
		Email:    body.Email,
		Balance:  body.Balance,
		Currency: body.Currency,
		Raw:      raw,
	}, nil
}

func (c *Client) Debit(ctx context.Context, req ports.RemoteEntryRequest) (*ports.RemoteEntryResult, error) {
	return c.entry(ctx, OpDebit, "/debit", req)
}

func (c *Client) Credit(ctx context.Context, req ports.RemoteEntryRequest) (*ports.RemoteEntryResult, error) {
	return c.entry(ctx, OpCredit, "/credit", req)
}

func (c *Client) entry(ctx context.Context, op, path string, req ports.RemoteEntryRequest) (*ports.RemoteEntryResult, error) {
	email, err := requireEmail(op, req.Email)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s amount must be greater than zero", ports.ErrInvalidRemoteInput, op)
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, fmt.Errorf("%w: %s amount %s has more than %d decimals", ports.ErrInvalidRemoteInput, op, req.Amount, domain.AmountScale)
	}

	payload := entryBody{
		Email:       email,
		Amount:      json.Number(req.Amount.StringFixed(2)),
		Reference:   req.Reference,
		Description: req.Description,
	}

	var body entryResultBody
	raw, err := c.do(ctx, op, http.MethodPost, path, nil, payload, &body)
	if err != nil {
		return nil, err
	}

	result := &ports.RemoteEntryResult{
		TransactionID: string(body.TransactionID),
		Raw:           raw,
	}
	switch {
	case body.Balance != nil:
		result.Balance, result.HasBalance = *body.Balance, true
	case body.NewBalance != nil:
		result.Balance, result.HasBalance = *body.NewBalance, true
	}
	return result, nil
}

func (c *Client) ListTransactions(ctx context.Context, email string, limit, page int) (*ports.RemoteTransactionPage, error) {
	email, err := requireEmail(OpTransactions, email)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	query := url.Values{
		"email": {email},
		"limit": {strconv.Itoa(limit)},
		"page":  {strconv.Itoa(page)},
	}
	var body transactionsBody
	raw, err := c.do(ctx, OpTransactions, http.MethodGet, "/transactions", query, nil, &body)
	if err != nil {
		return nil, err
	}

	txs := make([]ports.RemoteTransaction, 0, len(body.Transactions))
	for _, t := range body.Transactions {
		txs = append(txs, ports.RemoteTransaction{
			ID:      string(t.ID),
			Type:    t.Type,
			Amount:  t.Amount,
			Details: t.Details,
			Date:    t.Date,
		})
	}
	if body.Page == 0 {
		body.Page = page
	}

	return &ports.RemoteTransactionPage{
		Transactions: txs,
		Total:        body.Total,
		Page:         body.Page,
		Raw:          raw,
	}, nil
}

func (c *Client) GetCustomer(ctx context.Context, email string) (*ports.RemoteCustomer, error) {
	email, err := requireEmail(OpCustomer, email)
	if err != nil {
		return nil, err
	}

	var body customerBody
	raw, err := c.do(ctx, OpCustomer, http.MethodGet, "/customer", url.Values{"email": {email}}, nil, &body)
	if err != nil {
		return nil, err
	}

	return &ports.RemoteCustomer{
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Phone:     body.Phone,
		Balance:   body.Balance,
		Raw:       raw,
	}, nil
}

func (c *Client) Ping(ctx context.Context) (*ports.RemoteStatus, error) {
	var body statusBody
	raw, err := c.do(ctx, OpStatus, http.MethodGet, "/status", nil, nil, &body)
	if err != nil {
		return nil, err
	}
	return &ports.RemoteStatus{Status: body.Status, Version: body.Version, Raw: raw}, nil
}

// do performs one request. Non-2xx responses become *ports.RemoteError and
// network failures *ports.TransportError; out is decoded only on success.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("pos %s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("pos %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.source != "" {
		req.Header.Set(HeaderClientSource, c.source)
	}
	c.auth.Apply(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(op, outcomeTransport, start)
		c.log.Error().Err(err).Str("op", op).Str("method", method).Str("url", redact(endpoint)).Msg("POS request failed")
		return nil, &ports.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(op, outcomeTransport, start)
		c.log.Error().Err(err).Str("op", op).Int("status", resp.StatusCode).Msg("Reading POS response failed")
		return nil, &ports.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.observe(op, outcomeRemote, start)
		remoteErr := &ports.RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw, resp.StatusCode),
		}
		c.log.Error().
			Str("op", op).
			Str("method", method).
			Str("url", redact(endpoint)).
			Int("status", resp.StatusCode).
			Str("message", remoteErr.Message).
			Msg("POS rejected request")
		return nil, remoteErr
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			c.observe(op, outcomeDecode, start)
			c.log.Error().Err(err).Str("op", op).Int("status", resp.StatusCode).Msg("Decoding POS response failed")
			return nil, fmt.Errorf("pos %s: decode response: %w", op, err)
		}
	}

	c.observe(op, outcomeOK, start)
	c.log.Info().
		Str("op", op).
		Str("method", method).
		Str("url", redact(endpoint)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("POS request completed")

	return json.RawMessage(raw), nil
}

func (c *Client) observe(op, outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RemoteCall(op, outcome, time.Since(start))
	}
}

// errorMessage prefers the body's "error" field, then "message", then the
// bare status code.
func errorMessage(raw []byte, status int) string {
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if s, ok := body.Error.(string); ok && s != "" {
			return s
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return "HTTP " + strconv.Itoa(status)
}

func requireEmail(op, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: %s requires an email", ports.ErrInvalidRemoteInput, op)
	}
	return email, nil
}

// redact drops the query string, which carries customer emails.
func redact(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
