package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func localLedgerRows() []domain.WalletTransaction {
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return []domain.WalletTransaction{
		{ID: 12, UserID: 7, Type: domain.TransactionTypeDebit, Amount: decimal.NewFromInt(5), Details: "Coffee", CreatedAt: created},
		{ID: 11, UserID: 7, Type: domain.TransactionTypeCredit, Amount: decimal.NewFromInt(20), Details: "Top up", CreatedAt: created},
	}
}

func TestWalletView_LocalMode(t *testing.T) {
	f := newReconFixture(t)
	f.customers.EXPECT().GetByID(gomock.Any(), int64(7)).Return(testCustomer(), nil)
	f.config.EXPECT().Load(gomock.Any()).Return(localConfig(), nil)
	f.ledger.EXPECT().Balance(gomock.Any(), int64(7)).Return(decimal.NewFromInt(15), nil)
	f.ledger.EXPECT().List(gomock.Any(), int64(7), 1, walletHistorySize).Return(localLedgerRows(), int64(2), nil)

	view, err := f.svc.WalletView(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, view.SSoT)
	assert.False(t, view.Degraded)
	assert.True(t, view.Balance.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, ports.HistorySourceLocal, view.HistorySource)
	require.Len(t, view.History, 2)
	assert.Equal(t, "12", view.History[0].ID)
	assert.Equal(t, "2024-06-01T12:00:00Z", view.History[0].Date)
}

func TestWalletView_SSoTReadsThePOS(t *testing.T) {
	f := newReconFixture(t)
	cfg := ssotConfig()
	f.customers.EXPECT().GetByID(gomock.Any(), int64(7)).Return(testCustomer(), nil)
	f.config.EXPECT().Load(gomock.Any()).Return(cfg, nil)
	f.provider.EXPECT().Client(gomock.Any(), cfg).Return(f.remote, nil).Times(2)
	f.remote.EXPECT().GetBalance(gomock.Any(), "jane@example.com").Return(&ports.RemoteBalance{Balance: decimal.NewFromInt(64)}, nil)
	f.cache.EXPECT().Set(gomock.Any(), int64(7), eqDecimal("64")).Return(nil)
	f.remote.EXPECT().ListTransactions(gomock.Any(), "jane@example.com", walletHistorySize, 1).Return(&ports.RemoteTransactionPage{
		Transactions: []ports.RemoteTransaction{
			{ID: "P-2", Type: "debit", Amount: decimal.NewFromInt(16), Details: "Terminal 3", Date: "2024-06-02 10:00:00"},
		},
		Total: 1,
		Page:  1,
	}, nil)

	view, err := f.svc.WalletView(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, view.SSoT)
	assert.False(t, view.Degraded)
	assert.True(t, view.Balance.Equal(decimal.NewFromInt(64)))
	assert.Equal(t, ports.HistorySourcePOS, view.HistorySource)
	require.Len(t, view.History, 1)
	assert.Equal(t, "P-2", view.History[0].ID)
}

func TestWalletView_SSoTEmptyRemoteHistoryFallsBack(t *testing.T) {
	f := newReconFixture(t)
	cfg := ssotConfig()
	f.customers.EXPECT().GetByID(gomock.Any(), int64(7)).Return(testCustomer(), nil)
	f.config.EXPECT().Load(gomock.Any()).Return(cfg, nil)
	f.provider.EXPECT().Client(gomock.Any(), cfg).Return(f.remote, nil).Times(2)
	f.remote.EXPECT().GetBalance(gomock.Any(), "jane@example.com").Return(&ports.RemoteBalance{Balance: decimal.NewFromInt(64)}, nil)
	f.cache.EXPECT().Set(gomock.Any(), int64(7), gomock.Any()).Return(nil)
	f.remote.EXPECT().ListTransactions(gomock.Any(), "jane@example.com", walletHistorySize, 1).
		Return(&ports.RemoteTransactionPage{}, nil)
	f.ledger.EXPECT().List(gomock.Any(), int64(7), 1, walletHistorySize).Return(localLedgerRows(), int64(2), nil)

	view, err := f.svc.WalletView(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, ports.HistorySourceLocal, view.HistorySource)
	assert.Len(t, view.History, 2)
}

func TestWalletView_SSoTDegraded(t *testing.T) {
	t.Run("cached balance", func(t *testing.T) {
		f := newReconFixture(t)
		cfg := ssotConfig()
		f.customers.EXPECT().GetByID(gomock.Any(), int64(7)).Return(testCustomer(), nil)
		f.config.EXPECT().Load(gomock.Any()).Return(cfg, nil)
		f.provider.EXPECT().Client(gomock.Any(), cfg).Return(f.remote, nil)
		f.remote.EXPECT().GetBalance(gomock.Any(), "jane@example.com").
			Return(nil, &ports.TransportError{Op: "balance", Err: errors.New("connection refused")})
		f.cache.EXPECT().Get(gomock.Any(), int64(7)).Return(&domain.BalanceCache{UserID: 7, Balance: decimal.NewFromInt(33)}, nil)
		f.ledger.EXPECT().List(gomock.Any(), int64(7), 1, walletHistorySize).Return(nil, int64(0), nil)

		view, err := f.svc.WalletView(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, view.Degraded)
		assert.True(t, view.Balance.Equal(decimal.NewFromInt(33)))
		assert.Equal(t, ports.HistorySourceLocal, view.HistorySource)
		assert.NotNil(t, view.History)
		assert.Empty(t, view.History)
	})

	t.Run("nothing cached uses the ledger", func(t *testing.T) {
		f := newReconFixture(t)
		cfg := ssotConfig()
		f.customers.EXPECT().GetByID(gomock.Any(), int64(7)).Return(testCustomer(), nil)
		f.config.EXPECT().Load(gomock.Any()).Return(cfg, nil)
		f.provider.EXPECT().Client(gomock.Any(), cfg).Return(f.remote, nil)
		f.remote.EXPECT().GetBalance(gomock.Any(), "jane@example.com").
			Return(nil, &ports.RemoteError{Op: "balance", StatusCode: 503, Message: "maintenance"})
		f.cache.EXPECT().Get(gomock.Any(), int64(7)).Return(nil, nil)
		f.ledger.EXPECT().Balance(gomock.Any(), int64(7)).Return(decimal.NewFromInt(8), nil)
		f.ledger.EXPECT().List(gomock.Any(), int64(7), 1, walletHistorySize).Return(localLedgerRows(), int64(2), nil)

		view, err := f.svc.WalletView(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, view.Degraded)
		assert.True(t, view.Balance.Equal(decimal.NewFromInt(8)))
	})
}

func TestWalletView_UnknownCustomer(t *testing.T) {
	f := newReconFixture(t)
	f.customers.EXPECT().GetByID(gomock.Any(), int64(404)).Return(nil, nil)

	_, err := f.svc.WalletView(context.Background(), 404)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WAL_003", appErr.Code)
}

func TestRemoteCustomer(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		f := newReconFixture(t)
		cfg := localConfig()
		f.config.EXPECT().Load(gomock.Any()).Return(cfg, nil)
		f.provider.EXPECT().Client(gomock.Any(), cfg).Return(f.remote, nil)
		f.remote.EXPECT().GetCustomer(gomock.Any(), "jane@example.com").Return(&ports.RemoteCustomer{
			Email:     "jane@example.com",
			FirstName: "Jane",
			Balance:   decimal.NewFromInt(12),
		}, nil)

		c, err := f.svc.RemoteCustomer(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Jane", c.FirstName)
	})

	t.Run("not configured", func(t *testing.T) {
		f := newReconFixture(t)
		cfg := localConfig()
		f.config.EXPECT().Load(gomock.Any()).Return(cfg, nil)
		f.provider.EXPECT().Client(gomock.Any(), cfg).Return(nil, ports.ErrRemoteNotConfigured)

		_, err := f.svc.RemoteCustomer(context.Background(), "jane@example.com")
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "POS_001", appErr.Code)
	})
}
