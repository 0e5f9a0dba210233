package service

import (
	"context"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"
)

// ConfigLoader merges static integration settings with the stored
// credential pair. Loaded once per request so a rotation applies to the
// next call without a restart.
type ConfigLoader struct {
	base  domain.IntegrationConfig
	creds ports.CredentialManager
}

// NewConfigLoader creates a ConfigLoader.
func NewConfigLoader(base domain.IntegrationConfig, creds ports.CredentialManager) *ConfigLoader {
	return &ConfigLoader{base: base, creds: creds}
}

// Load returns a fresh copy of the merged configuration.
func (l *ConfigLoader) Load(ctx context.Context) (*domain.IntegrationConfig, error) {
	cfg := l.base
	if cfg.SyncDirection == "" {
		cfg.SyncDirection = domain.SyncBoth
	}

	current, err := l.creds.Current(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case current == nil:
		cfg.APIKey = ""
		cfg.WebhookSecret = ""
	case current.RevokedAt != nil:
		cfg.APIKey = ""
		cfg.WebhookSecret = ""
	default:
		cfg.APIKey = current.APIKey
		cfg.WebhookSecret = current.SigningSecret
	}

	return &cfg, nil
}
