package service

import (
	"context"
	"testing"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestConfigLoader_Load(t *testing.T) {
	base := domain.IntegrationConfig{
		Enabled:       true,
		BaseURL:       "https://pos.example.com",
		APIKey:        "static",
		WebhookSecret: "static-secret",
	}

	t.Run("stored credentials win", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		creds := mocks.NewMockCredentialManager(ctrl)
		creds.EXPECT().Current(gomock.Any()).Return(&domain.Credentials{APIKey: "pos_new", SigningSecret: "new-secret"}, nil)

		cfg, err := NewConfigLoader(base, creds).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "pos_new", cfg.APIKey)
		assert.Equal(t, "new-secret", cfg.WebhookSecret)
		assert.Equal(t, domain.SyncBoth, cfg.SyncDirection)
		assert.True(t, cfg.OutboundConfigured())
	})

	t.Run("revoked disables outbound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		revokedAt := time.Now()
		creds := mocks.NewMockCredentialManager(ctrl)
		creds.EXPECT().Current(gomock.Any()).Return(&domain.Credentials{RevokedAt: &revokedAt}, nil)

		cfg, err := NewConfigLoader(base, creds).Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, cfg.APIKey)
		assert.False(t, cfg.OutboundConfigured())
	})
}
