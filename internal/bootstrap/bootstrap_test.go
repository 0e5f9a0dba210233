package bootstrap

import (
	"strings"
	"testing"

	"wallet-pos-bridge/config"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.JWT.Secret = "test-secret"
	cfg.AES.Key = strings.Repeat("ab", 32)
	require.NoError(t, cfg.Validate())
	return cfg
}

func testRedis(t *testing.T) *goredis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAssemble_WiresServices(t *testing.T) {
	cfg := testConfig(t)

	c, err := Assemble(cfg, nil, testRedis(t), zerolog.Nop())
	require.NoError(t, err)

	assert.NotNil(t, c.Metrics)
	assert.Same(t, c.Metrics, c.Recorder)
	assert.NotNil(t, c.Engine)
	assert.NotNil(t, c.SyncWorker)
	assert.NotNil(t, c.POS)
	assert.NotNil(t, c.Webhooks)
	assert.NotNil(t, c.Checkout)
	assert.NotNil(t, c.QR)
	assert.NotNil(t, c.Wallet)
	assert.NotNil(t, c.Auth)
	assert.NotNil(t, c.Audit)
	assert.NotNil(t, c.RateLimitStore)
	assert.Len(t, c.HealthCheckers, 2)
}

func TestAssemble_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Metrics = false

	c, err := Assemble(cfg, nil, testRedis(t), zerolog.Nop())
	require.NoError(t, err)

	assert.Nil(t, c.Metrics)
	assert.NotNil(t, c.Recorder)
}

func TestAssemble_BadEncryptionKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.AES.Key = "short"

	_, err := Assemble(cfg, nil, testRedis(t), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init encryption")
}
