package posclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wallet-pos-bridge/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	op, outcome string
}

type fakeMetrics struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeMetrics) RemoteCall(op, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{op, outcome})
}
func (f *fakeMetrics) WebhookEvent(string, string) {}
func (f *fakeMetrics) SyncAttempt(string)          {}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeMetrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := &fakeMetrics{}
	c, err := New(Config{
		BaseURL: srv.URL + "/",
		Timeout: time.Second,
		Auth:    HeaderKeyAuth{APIKey: "pos_test"},
		Source:  "wallet-pos-bridge/test",
	}, m, zerolog.Nop())
	require.NoError(t, err)
	return c, m
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(Config{BaseURL: "", Auth: HeaderKeyAuth{APIKey: "k"}}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ports.ErrRemoteNotConfigured)

	_, err = New(Config{BaseURL: "https://pos.example.com"}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ports.ErrRemoteNotConfigured)

	_, err = New(Config{BaseURL: "not a url", Auth: HeaderKeyAuth{APIKey: "k"}}, nil, zerolog.Nop())
	assert.ErrorIs(t, err, ports.ErrRemoteNotConfigured)
}

func TestClient_GetBalance(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/balance", r.URL.Path)
		assert.Equal(t, "jane@example.com", r.URL.Query().Get("email"))
		assert.Equal(t, "pos_test", r.Header.Get(HeaderAPIKey))
		assert.Equal(t, "wallet-pos-bridge/test", r.Header.Get(HeaderClientSource))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"jane@example.com","balance":"42.50","currency":"USD"}`))
	})

	bal, err := c.GetBalance(context.Background(), " jane@example.com ")
	require.NoError(t, err)
	assert.True(t, bal.Balance.Equal(decimal.RequireFromString("42.50")))
	assert.Equal(t, "USD", bal.Currency)
	assert.JSONEq(t, `{"email":"jane@example.com","balance":"42.50","currency":"USD"}`, string(bal.Raw))
	assert.Equal(t, []recordedCall{{OpBalance, "ok"}}, m.calls)
}

func TestClient_Debit(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/debit", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"email":"jane@example.com","amount":12.50,"reference":"WALLET-ORDER-1-store","description":"Order #1"}`, string(raw))

		_, _ = w.Write([]byte(`{"transaction_id":98765,"balance":87.5}`))
	})

	res, err := c.Debit(context.Background(), ports.RemoteEntryRequest{
		Email:       "jane@example.com",
		Amount:      decimal.RequireFromString("12.5"),
		Reference:   "WALLET-ORDER-1-store",
		Description: "Order #1",
	})
	require.NoError(t, err)
	assert.Equal(t, "98765", res.TransactionID)
	assert.True(t, res.HasBalance)
	assert.True(t, res.Balance.Equal(decimal.RequireFromString("87.5")))
}

func TestClient_Credit_WithoutBalance(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/credit", r.URL.Path)
		_, _ = w.Write([]byte(`{"transaction_id":"pos-tx-1"}`))
	})

	res, err := c.Credit(context.Background(), ports.RemoteEntryRequest{
		Email:  "jane@example.com",
		Amount: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "pos-tx-1", res.TransactionID)
	assert.False(t, res.HasBalance)
}

func TestClient_ValidationBeforeNetwork(t *testing.T) {
	var hits int
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
	})
	ctx := context.Background()

	_, err := c.GetBalance(ctx, "  ")
	assert.ErrorIs(t, err, ports.ErrInvalidRemoteInput)

	_, err = c.Debit(ctx, ports.RemoteEntryRequest{Email: "jane@example.com", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ports.ErrInvalidRemoteInput)

	_, err = c.Credit(ctx, ports.RemoteEntryRequest{Email: "jane@example.com", Amount: decimal.NewFromInt(-3)})
	assert.ErrorIs(t, err, ports.ErrInvalidRemoteInput)

	_, err = c.Credit(ctx, ports.RemoteEntryRequest{Amount: decimal.NewFromInt(3)})
	assert.ErrorIs(t, err, ports.ErrInvalidRemoteInput)

	_, err = c.Debit(ctx, ports.RemoteEntryRequest{Email: "jane@example.com", Amount: decimal.RequireFromString("10.005")})
	assert.ErrorIs(t, err, ports.ErrInvalidRemoteInput)

	assert.Zero(t, hits)
	assert.Empty(t, m.calls)
}

func TestClient_RemoteErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field wins", http.StatusBadRequest, `{"error":"Insufficient balance","message":"ignored"}`, "Insufficient balance"},
		{"message fallback", http.StatusNotFound, `{"message":"Customer not found"}`, "Customer not found"},
		{"non json body", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP 502"},
		{"empty body", http.StatusInternalServerError, ``, "HTTP 500"},
		{"structured error ignored", http.StatusConflict, `{"error":{"code":1}}`, "HTTP 409"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GetCustomer(context.Background(), "jane@example.com")
			var remoteErr *ports.RemoteError
			require.True(t, errors.As(err, &remoteErr))
			assert.Equal(t, tt.status, remoteErr.StatusCode)
			assert.Equal(t, tt.message, remoteErr.Message)
			assert.Equal(t, OpCustomer, remoteErr.Op)
			assert.Equal(t, []recordedCall{{OpCustomer, "remote_error"}}, m.calls)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	m := &fakeMetrics{}
	c, err := New(Config{BaseURL: base, Auth: HeaderKeyAuth{APIKey: "k"}}, m, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.Ping(context.Background())
	var te *ports.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, OpStatus, te.Op)
	assert.Equal(t, []recordedCall{{OpStatus, "transport_error"}}, m.calls)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Auth: HeaderKeyAuth{APIKey: "k"}}, nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = c.GetBalance(context.Background(), "jane@example.com")
	var te *ports.TransportError
	assert.True(t, errors.As(err, &te))
}

func TestClient_DecodeError(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balance":"not-a-number"}`))
	})

	_, err := c.GetBalance(context.Background(), "jane@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	assert.Equal(t, []recordedCall{{OpBalance, "decode_error"}}, m.calls)
}

func TestClient_ListTransactions(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "20", q.Get("limit"))
		assert.Equal(t, "1", q.Get("page"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"transactions": []map[string]any{
				{"transaction_id": 1, "type": "credit", "amount": "10.00", "details": "Top up", "date": "2026-01-01"},
				{"transaction_id": "abc", "type": "debit", "amount": 2.5, "details": "Coffee", "date": "2026-01-02"},
			},
			"total": 2,
		})
	})

	page, err := c.ListTransactions(context.Background(), "jane@example.com", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	assert.Equal(t, "1", page.Transactions[0].ID)
	assert.Equal(t, "abc", page.Transactions[1].ID)
	assert.True(t, page.Transactions[1].Amount.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
}

func TestClient_GetCustomerAndPing(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customer":
			_, _ = w.Write([]byte(`{"email":"jane@example.com","first_name":"Jane","last_name":"Doe","phone":"555","balance":3}`))
		case "/status":
			_, _ = w.Write([]byte(`{"status":"ok","version":"4.2"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	cust, err := c.GetCustomer(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane", cust.FirstName)
	assert.True(t, cust.Balance.Equal(decimal.NewFromInt(3)))

	status, err := c.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "4.2", status.Version)
}
