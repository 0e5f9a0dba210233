package posclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"

	"github.com/rs/zerolog"
)

// Provider caches one Client and rebuilds it when the configuration that
// shaped it changes.
type Provider struct {
	mu          sync.Mutex
	client      *Client
	fingerprint string

	httpClient *http.Client
	metrics    ports.MetricsRecorder
	log        zerolog.Logger
}

var _ ports.RemoteLedgerProvider = (*Provider)(nil)

// NewProvider creates a provider. httpClient may be nil.
func NewProvider(httpClient *http.Client, metrics ports.MetricsRecorder, log zerolog.Logger) *Provider {
	return &Provider{
		httpClient: httpClient,
		metrics:    metrics,
		log:        log,
	}
}

func (p *Provider) Client(_ context.Context, cfg *domain.IntegrationConfig) (ports.RemoteLedger, error) {
	if cfg == nil || !cfg.OutboundConfigured() {
		return nil, ports.ErrRemoteNotConfigured
	}

	fp := fingerprint(cfg)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.fingerprint == fp {
		return p.client, nil
	}

	client, err := New(Config{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Auth:       StrategyFor(cfg),
		Source:     "wallet-pos-bridge/" + cfg.Version,
		HTTPClient: p.httpClient,
	}, p.metrics, p.log)
	if err != nil {
		return nil, err
	}

	p.client = client
	p.fingerprint = fp
	p.log.Debug().Str("auth", client.auth.Name()).Msg("POS client rebuilt")
	return client, nil
}

func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.client = nil
	p.fingerprint = ""
	p.mu.Unlock()
}

// StrategyFor picks legacy signing only when the config asks for it.
func StrategyFor(cfg *domain.IntegrationConfig) AuthStrategy {
	if cfg.UseLegacyAuth() {
		return LegacyHMACAuth{APIKey: cfg.APIKey, Secret: cfg.LegacySecret}
	}
	return HeaderKeyAuth{APIKey: cfg.APIKey}
}

func fingerprint(cfg *domain.IntegrationConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%t\x00%s",
		cfg.BaseURL, cfg.APIKey, cfg.LegacySecret, cfg.Timeout, cfg.UseLegacyAuth(), cfg.Version)
	return hex.EncodeToString(h.Sum(nil))
}
