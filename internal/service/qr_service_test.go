package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports/mocks"
	"wallet-pos-bridge/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func qrConfig() *domain.IntegrationConfig {
	cfg := localConfig()
	cfg.QREnabled = true
	return cfg
}

func newTestQRService(t *testing.T, cfg *domain.IntegrationConfig) (*qrService, *mocks.MockCustomerRepository, *mocks.MockReconciliationEngine) {
	ctrl := gomock.NewController(t)
	customers := mocks.NewMockCustomerRepository(ctrl)
	engine := mocks.NewMockReconciliationEngine(ctrl)
	config := mocks.NewMockConfigProvider(ctrl)
	config.EXPECT().Load(gomock.Any()).Return(cfg, nil).AnyTimes()

	svc := NewQRService(customers, engine, config, NewHMACSignatureService(), newTestLogger()).(*qrService)
	return svc, customers, engine
}

func TestQRService_IssueAndVerify(t *testing.T) {
	svc, customers, engine := newTestQRService(t, qrConfig())

	customers.EXPECT().GetByID(gomock.Any(), int64(7)).Return(testCustomer(), nil)
	engine.EXPECT().LocalBalance(gomock.Any(), int64(7)).Return(decimal.NewFromInt(30), nil)

	token, err := svc.Issue(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.QRSource, token.Source)
	assert.Equal(t, "jane@example.com", token.Email)
	assert.NotEmpty(t, token.Token)

	raw, err := json.Marshal(token)
	require.NoError(t, err)

	verified, err := svc.Verify(context.Background(), string(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(7), verified.UserID)
}

func TestQRService_IssueUsesCacheInSSoT(t *testing.T) {
	cfg := ssotConfig()
	cfg.QREnabled = true
	svc, customers, engine := newTestQRService(t, cfg)

	customers.EXPECT().GetByID(gomock.Any(), int64(7)).Return(testCustomer(), nil)
	engine.EXPECT().CachedBalance(gomock.Any(), int64(7)).Return(decimal.NewFromInt(9), true, nil)

	token, err := svc.Issue(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, token.Balance.Equal(decimal.NewFromInt(9)))
}

func TestQRService_VerifyRejections(t *testing.T) {
	svc, _, _ := newTestQRService(t, qrConfig())
	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }

	sign := func(email string, ts int64) string {
		return NewHMACSignatureService().Sign("secret", qrSignedFields(email, ts))
	}
	build := func(mut func(tok *domain.QRPaymentToken)) string {
		tok := domain.QRPaymentToken{
			Source:    domain.QRSource,
			Email:     "jane@example.com",
			UserID:    7,
			Timestamp: now.Unix() - 10,
		}
		tok.Token = sign(tok.Email, tok.Timestamp)
		if mut != nil {
			mut(&tok)
		}
		raw, _ := json.Marshal(tok)
		return string(raw)
	}

	tests := []struct {
		name string
		raw  string
		code string
	}{
		{"not json", "{nope", "WAL_007"},
		{"foreign source", build(func(tok *domain.QRPaymentToken) { tok.Source = "other" }), "WAL_007"},
		{"expired with valid signature", build(func(tok *domain.QRPaymentToken) {
			tok.Timestamp = now.Unix() - 301
			tok.Token = sign(tok.Email, tok.Timestamp)
		}), "WAL_008"},
		{"expired with bad signature", build(func(tok *domain.QRPaymentToken) {
			tok.Timestamp = now.Unix() - 600
			tok.Token = "deadbeef"
		}), "WAL_008"},
		{"tampered email", build(func(tok *domain.QRPaymentToken) { tok.Email = "mallory@example.com" }), "WAL_007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), tt.raw)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}

	_, err := svc.Verify(context.Background(), build(func(tok *domain.QRPaymentToken) {
		tok.Timestamp = now.Unix() - 300
		tok.Token = sign(tok.Email, tok.Timestamp)
	}))
	assert.NoError(t, err, "exactly 300s old is still fresh")
}

func TestQRService_Disabled(t *testing.T) {
	svc, _, _ := newTestQRService(t, localConfig())

	_, err := svc.Verify(context.Background(), "{}")
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WAL_006", appErr.Code)

	_, err = svc.Issue(context.Background(), 7)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WAL_006", appErr.Code)
}
