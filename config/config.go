package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/spf13/viper"
)

// Sync directions accepted by pos.sync_direction.
const (
	SyncBoth          = "both"
	SyncLocalToRemote = "local_to_remote"
	SyncRemoteToLocal = "remote_to_local"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	AES       AESConfig       `mapstructure:"aes"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	POS       POSConfig       `mapstructure:"pos"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Mode      string `mapstructure:"mode"` // debug, release, test
	PublicURL string `mapstructure:"public_url"`
	MaxBodyKB int64  `mapstructure:"max_body_kb"`
	Version   string `mapstructure:"version"`
	Currency  string `mapstructure:"currency"`
	Metrics   bool   `mapstructure:"metrics"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type RateLimitConfig struct {
	POSPerMinute     int `mapstructure:"pos_per_minute"`
	WebhookPerMinute int `mapstructure:"webhook_per_minute"`
}

// POSConfig is the static half of the integration settings. The API key and
// signing secret issued by walletctl live in the database and take precedence.
type POSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	SSoT          bool          `mapstructure:"ssot"`
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	LegacySecret  string        `mapstructure:"legacy_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
	QREnabled     bool          `mapstructure:"qr_enabled"`
	SyncDirection string        `mapstructure:"sync_direction"`
	AutoSync      bool          `mapstructure:"auto_sync"`
	SitePrefix    string        `mapstructure:"site_prefix"`
	SiteSlug      string        `mapstructure:"site_slug"`
}

type SyncConfig struct {
	PollInterval   time.Duration   `mapstructure:"poll_interval"`
	BatchSize      int             `mapstructure:"batch_size"`
	RetryIntervals []time.Duration `mapstructure:"retry_intervals"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: WPB_.
// Nested keys use underscore: WPB_DATABASE_HOST, WPB_POS_BASE_URL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("WPB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file is fine, env vars can carry everything.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Integration returns the static half of the integration settings. The
// persisted credential pair is merged in per request.
func (c *Config) Integration() domain.IntegrationConfig {
	return domain.IntegrationConfig{
		Enabled:       c.POS.Enabled,
		SSoT:          c.POS.SSoT,
		BaseURL:       strings.TrimRight(c.POS.BaseURL, "/"),
		APIKey:        c.POS.APIKey,
		WebhookSecret: c.POS.WebhookSecret,
		LegacySecret:  c.POS.LegacySecret,
		Timeout:       c.POS.Timeout,
		QREnabled:     c.POS.QREnabled,
		SyncDirection: domain.SyncDirection(c.POS.SyncDirection),
		AutoSync:      c.POS.AutoSync,
		SitePrefix:    c.POS.SitePrefix,
		SiteSlug:      c.POS.SiteSlug,
		Currency:      c.Server.Currency,
		Version:       c.Server.Version,
		PublicURL:     strings.TrimRight(c.Server.PublicURL, "/"),
	}
}

// FallbackCredentials is the pair from the config file, used until walletctl
// generates one.
func (c *Config) FallbackCredentials() domain.Credentials {
	return domain.Credentials{
		APIKey:        c.POS.APIKey,
		SigningSecret: c.POS.WebhookSecret,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.max_body_kb", 64)
	v.SetDefault("server.version", "1.0.0")
	v.SetDefault("server.currency", "USD")
	v.SetDefault("server.metrics", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "wallet-pos-bridge")
	v.SetDefault("aes.key", "")
	v.SetDefault("ratelimit.pos_per_minute", 600)
	v.SetDefault("ratelimit.webhook_per_minute", 1200)
	v.SetDefault("pos.enabled", false)
	v.SetDefault("pos.ssot", false)
	v.SetDefault("pos.base_url", "")
	v.SetDefault("pos.api_key", "")
	v.SetDefault("pos.webhook_secret", "")
	v.SetDefault("pos.legacy_secret", "")
	v.SetDefault("pos.timeout", "10s")
	v.SetDefault("pos.qr_enabled", false)
	v.SetDefault("pos.sync_direction", SyncBoth)
	v.SetDefault("pos.auto_sync", true)
	v.SetDefault("pos.site_prefix", "WALLET")
	v.SetDefault("pos.site_slug", "store")
	v.SetDefault("sync.poll_interval", "15s")
	v.SetDefault("sync.batch_size", 20)
	v.SetDefault("sync.retry_intervals", []string{"1m", "5m", "30m", "2h"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if len(c.AES.Key) != 64 {
		errs = append(errs, errors.New("aes.key must be 64 hex characters"))
	}
	switch c.POS.SyncDirection {
	case SyncBoth, SyncLocalToRemote, SyncRemoteToLocal:
	default:
		errs = append(errs, fmt.Errorf("pos.sync_direction %q is not one of both, local_to_remote, remote_to_local", c.POS.SyncDirection))
	}
	if c.POS.Timeout <= 0 {
		errs = append(errs, errors.New("pos.timeout must be positive"))
	}
	if c.POS.SitePrefix == "" || c.POS.SiteSlug == "" {
		errs = append(errs, errors.New("pos.site_prefix and pos.site_slug are required"))
	}
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, errors.New("sync.batch_size must be positive"))
	}

	return errors.Join(errs...)
}
