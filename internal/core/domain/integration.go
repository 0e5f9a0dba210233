package domain

import (
	"time"
)

// SyncDirection restricts which way events flow between the ledgers.
type SyncDirection string

const (
	SyncBoth          SyncDirection = "both"
	SyncLocalToRemote SyncDirection = "local_to_remote"
	SyncRemoteToLocal SyncDirection = "remote_to_local"
)

// IntegrationConfig is the merged POS configuration for one request.
type IntegrationConfig struct {
	Enabled       bool
	SSoT          bool
	BaseURL       string
	APIKey        string
	WebhookSecret string
	LegacySecret  string
	Timeout       time.Duration
	QREnabled     bool
	SyncDirection SyncDirection
	AutoSync      bool
	SitePrefix    string
	SiteSlug      string
	Currency      string
	Version       string
	PublicURL     string
}

// OutboundConfigured reports whether the POS can be called at all.
func (c *IntegrationConfig) OutboundConfigured() bool {
	return c.Enabled && c.BaseURL != "" && c.APIKey != ""
}

// SSoTActive reports whether the POS is the balance authority.
func (c *IntegrationConfig) SSoTActive() bool {
	return c.SSoT && c.OutboundConfigured()
}

// AcceptsInbound reports whether POS events may mutate the local ledger.
func (c *IntegrationConfig) AcceptsInbound() bool {
	return c.SyncDirection != SyncLocalToRemote
}

// OutboundSyncAllowed reports whether native local transactions are pushed
// to the POS. SSoT mode always disables it.
func (c *IntegrationConfig) OutboundSyncAllowed() bool {
	return c.OutboundConfigured() &&
		c.AutoSync &&
		!c.SSoT &&
		c.SyncDirection != SyncRemoteToLocal
}

// UseLegacyAuth reports whether outbound calls sign with the legacy
// timestamp HMAC instead of the plain API key header.
func (c *IntegrationConfig) UseLegacyAuth() bool {
	return !c.SSoT && c.AutoSync && c.LegacySecret != ""
}

// Credentials is the single active API key / signing secret pair.
type Credentials struct {
	APIKey        string
	SigningSecret string
	GeneratedAt   time.Time
	RevokedAt     *time.Time
}

// Active reports whether the pair can be used for validation.
func (c *Credentials) Active() bool {
	return c != nil && c.RevokedAt == nil && c.APIKey != "" && c.SigningSecret != ""
}
