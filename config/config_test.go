package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "tradelink", cfg.Database.DBName)
	assert.Equal(t, "portal-link-v1", cfg.Auth.Link.Kid)
	assert.Equal(t, "bot-trade-v1", cfg.Auth.Trade.Kid)
	assert.Equal(t, 16, cfg.Portal.CSRFMinLen)
	assert.Equal(t, "dev", cfg.Vault.Env)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
auth:
  link:
    kid: portal-link-v2
    secret: link-secret
  trade:
    kid: bot-trade-v2
    secret: trade-secret
vault:
  namespace: tradelink
  env: prod
portal:
  csrf_min_len: 24
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "portal-link-v2", cfg.Auth.Link.Kid)
	assert.Equal(t, "link-secret", cfg.Auth.Link.Secret)
	assert.Equal(t, "trade-secret", cfg.Auth.Trade.Secret)
	assert.Equal(t, "prod", cfg.Vault.Env)
	assert.Equal(t, 24, cfg.Portal.CSRFMinLen)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TLK_SERVER_PORT", "7070")
	t.Setenv("TLK_AUTH_TRADE_SECRET", "env-trade-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env-trade-secret", cfg.Auth.Trade.Secret)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "svc", Password: "pw",
		DBName: "tradelink", SSLMode: "require",
	}
	assert.Equal(t, "postgres://svc:pw@db.internal:5433/tradelink?sslmode=require", d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
