package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/internal/core/ports/mocks"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type posFixture struct {
	customers *mocks.MockCustomerRepository
	ledger    *mocks.MockLedgerStore
	engine    *mocks.MockReconciliationEngine
	qr        *mocks.MockQRService
	provider  *mocks.MockRemoteLedgerProvider
	remote    *mocks.MockRemoteLedger
	svc       ports.POSService
}

func newPOSFixture(t *testing.T, cfg *domain.IntegrationConfig) *posFixture {
	ctrl := gomock.NewController(t)
	config := mocks.NewMockConfigProvider(ctrl)
	config.EXPECT().Load(gomock.Any()).Return(cfg, nil).AnyTimes()

	f := &posFixture{
		customers: mocks.NewMockCustomerRepository(ctrl),
		ledger:    mocks.NewMockLedgerStore(ctrl),
		engine:    mocks.NewMockReconciliationEngine(ctrl),
		qr:        mocks.NewMockQRService(ctrl),
		provider:  mocks.NewMockRemoteLedgerProvider(ctrl),
		remote:    mocks.NewMockRemoteLedger(ctrl),
	}
	f.svc = NewPOSService(f.customers, f.ledger, f.engine, f.qr, f.provider, config, newTestLogger())
	return f
}

func requireAppCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestPOSService_Balance(t *testing.T) {
	f := newPOSFixture(t, localConfig())

	f.customers.EXPECT().GetByID(gomock.Any(), int64(7)).Return(testCustomer(), nil)
	f.engine.EXPECT().LocalBalance(gomock.Any(), int64(7)).Return(decimal.NewFromInt(42), nil)

	view, err := f.svc.Balance(context.Background(), ports.CustomerLookup{UserID: 7})
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(decimal.NewFromInt(42)))
	assert.Equal(t, "USD", view.Currency)

	_, err = f.svc.Balance(context.Background(), ports.CustomerLookup{})
	requireAppCode(t, err, "WAL_002")

	f.customers.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)
	_, err = f.svc.Balance(context.Background(), ports.CustomerLookup{Email: "ghost@example.com"})
	requireAppCode(t, err, "WAL_003")
}

func TestPOSService_Credit(t *testing.T) {
	f := newPOSFixture(t, localConfig())

	f.customers.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(testCustomer(), nil)
	f.engine.EXPECT().ApplyInbound(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, cfg *domain.IntegrationConfig, entry ports.InboundEntry) (*ports.InboundResult, error) {
			assert.Equal(t, domain.OriginPOS, entry.Origin)
			assert.Equal(t, "Credit from POS #T-9 - loyalty", entry.Details)
			return &ports.InboundResult{Transaction: &domain.WalletTransaction{ID: 5, Type: entry.Type, Amount: entry.Amount}}, nil
		},
	)
	f.engine.EXPECT().LocalBalance(gomock.Any(), int64(7)).Return(decimal.NewFromInt(60), nil)

	view, err := f.svc.Credit(context.Background(), ports.POSEntryRequest{
		Lookup:    ports.CustomerLookup{Email: "jane@example.com"},
		Amount:    decimal.NewFromInt(10),
		Reference: "T-9",
		Note:      "loyalty",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), view.Transaction.ID)
	assert.True(t, view.NewBalance.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "T-9", view.Reference)
}

func TestPOSService_DebitRejections(t *testing.T) {
	t.Run("locked wallet", func(t *testing.T) {
		f := newPOSFixture(t, localConfig())
		locked := testCustomer()
		locked.WalletLocked = true
		f.customers.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(locked, nil)

		_, err := f.svc.Debit(context.Background(), ports.POSEntryRequest{
			Lookup: ports.CustomerLookup{Email: "jane@example.com"},
			Amount: decimal.NewFromInt(1),
		})
		requireAppCode(t, err, "WAL_004")
	})

	t.Run("non-positive amount", func(t *testing.T) {
		f := newPOSFixture(t, localConfig())
		f.customers.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(testCustomer(), nil)

		_, err := f.svc.Debit(context.Background(), ports.POSEntryRequest{
			Lookup: ports.CustomerLookup{Email: "jane@example.com"},
			Amount: decimal.NewFromInt(-3),
		})
		requireAppCode(t, err, "WAL_002")
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newPOSFixture(t, localConfig())
		f.customers.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(testCustomer(), nil)
		f.engine.EXPECT().ApplyInbound(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, apperror.ErrInsufficientFunds(decimal.NewFromInt(5), decimal.NewFromInt(9)))

		_, err := f.svc.Debit(context.Background(), ports.POSEntryRequest{
			Lookup: ports.CustomerLookup{Email: "jane@example.com"},
			Amount: decimal.NewFromInt(9),
		})
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "5.00", appErr.Details["current_balance"])
		assert.Equal(t, "9.00", appErr.Details["requested"])
	})
}

func TestPOSService_Transactions(t *testing.T) {
	f := newPOSFixture(t, localConfig())

	f.customers.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(testCustomer(), nil)
	f.ledger.EXPECT().List(gomock.Any(), int64(7), 1, maxPerPage).Return(
		[]domain.WalletTransaction{{ID: 1}, {ID: 2}}, int64(250), nil,
	)

	page, err := f.svc.Transactions(context.Background(), "jane@example.com", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPerPage, page.PerPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Transactions, 2)
}

func TestPOSService_LookupCustomer(t *testing.T) {
	f := newPOSFixture(t, localConfig())

	f.customers.EXPECT().GetByPhone(gomock.Any(), "555-0101").Return(testCustomer(), nil)
	f.engine.EXPECT().LocalBalance(gomock.Any(), int64(7)).Return(decimal.NewFromInt(3), nil)

	view, err := f.svc.LookupCustomer(context.Background(), ports.CustomerLookup{Phone: "555-0101"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", view.Customer.Email)

	_, err = f.svc.LookupCustomer(context.Background(), ports.CustomerLookup{UserID: 7})
	requireAppCode(t, err, "WAL_002")
}

func TestPOSService_QRPay(t *testing.T) {
	token := &domain.QRPaymentToken{Source: domain.QRSource, Email: "jane@example.com", Timestamp: time.Now().Unix()}

	t.Run("success", func(t *testing.T) {
		f := newPOSFixture(t, qrConfig())
		f.qr.EXPECT().Verify(gomock.Any(), "raw-qr").Return(token, nil)
		f.customers.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(testCustomer(), nil)
		f.engine.EXPECT().ApplyInbound(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, cfg *domain.IntegrationConfig, entry ports.InboundEntry) (*ports.InboundResult, error) {
				assert.Equal(t, domain.OriginPOSQR, entry.Origin)
				assert.Equal(t, "T1", entry.Terminal)
				assert.Equal(t, "QR-7", entry.Reference)
				assert.Equal(t, "QR payment at POS (T1) #QR-7", entry.Details)
				return &ports.InboundResult{Transaction: &domain.WalletTransaction{ID: 9}}, nil
			},
		)
		f.engine.EXPECT().LocalBalance(gomock.Any(), int64(7)).Return(decimal.NewFromInt(11), nil)

		view, err := f.svc.QRPay(context.Background(), ports.QRPayRequest{
			QRData:    "raw-qr",
			Amount:    decimal.NewFromInt(4),
			Terminal:  "T1",
			Reference: "QR-7",
		})
		require.NoError(t, err)
		assert.Equal(t, "T1", view.Terminal)
		assert.Equal(t, int64(9), view.Transaction.ID)
	})

	t.Run("verification failure propagates", func(t *testing.T) {
		f := newPOSFixture(t, qrConfig())
		f.qr.EXPECT().Verify(gomock.Any(), "stale").Return(nil, apperror.ErrQRExpired())

		_, err := f.svc.QRPay(context.Background(), ports.QRPayRequest{QRData: "stale", Amount: decimal.NewFromInt(1)})
		requireAppCode(t, err, "WAL_008")
	})

	t.Run("locked before amount", func(t *testing.T) {
		f := newPOSFixture(t, qrConfig())
		locked := testCustomer()
		locked.WalletLocked = true
		f.qr.EXPECT().Verify(gomock.Any(), "raw").Return(token, nil)
		f.customers.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(locked, nil)

		_, err := f.svc.QRPay(context.Background(), ports.QRPayRequest{QRData: "raw", Amount: decimal.Zero})
		requireAppCode(t, err, "WAL_004")
	})
}

func TestPOSService_Status(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		cfg := localConfig()
		cfg.Enabled = false
		cfg.PublicURL = "https://shop.example.com/"
		f := newPOSFixture(t, cfg)

		view, err := f.svc.Status(context.Background())
		require.NoError(t, err)
		assert.False(t, view.POSConfigured)
		assert.Equal(t, "https://shop.example.com/api/v1/pos/webhook", view.WebhookURL)
		assert.Empty(t, view.Connection)
	})

	t.Run("ping ok", func(t *testing.T) {
		f := newPOSFixture(t, localConfig())
		f.provider.EXPECT().Client(gomock.Any(), gomock.Any()).Return(f.remote, nil)
		f.remote.EXPECT().Ping(gomock.Any()).Return(&ports.RemoteStatus{Status: "ok"}, nil)

		view, err := f.svc.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", view.Connection)
	})

	t.Run("ping error", func(t *testing.T) {
		f := newPOSFixture(t, localConfig())
		f.provider.EXPECT().Client(gomock.Any(), gomock.Any()).Return(f.remote, nil)
		f.remote.EXPECT().Ping(gomock.Any()).Return(nil, &ports.TransportError{Op: "status", Err: errors.New("connection refused")})

		view, err := f.svc.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "error", view.Connection)
		assert.Contains(t, view.ConnectionErr, "connection refused")
	})
}
