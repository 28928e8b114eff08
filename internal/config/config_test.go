package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingWallet(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "turbo" }, "unknown mode"},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "unknown log_level"},
		{"short challenge window", func(c *Config) { c.Engine.ChallengeWindow = duration{time.Millisecond} }, "challenge_window"},
		{"fee over 100 percent", func(c *Config) { c.Engine.DefaultFeeBps = 10_001 }, "default_fee_bps"},
		{"bad collateral address", func(c *Config) { c.Engine.CollateralAsset = "not-an-address" }, "collateral_asset"},
		{"bad authorized caller", func(c *Config) { c.Engine.AuthorizedCallers = []string{"zzz"} }, "authorized caller"},
		{"empty postgres host", func(c *Config) { c.Postgres.Host = "" }, "postgres"},
		{"pool min over max", func(c *Config) { c.Postgres.PoolMinConns = 99 }, "pool_min_conns"},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis"},
		{"archive without bucket", func(c *Config) { c.S3.Bucket = "" }, "bucket"},
		{"bad server port", func(c *Config) { c.Server.Port = 0 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.Redis.Addr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "redis")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "projector"

[wallet]
private_key = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

[engine]
challenge_window = "1h"
proposer_bond = 1000

[server]
port = 9999
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "projector", cfg.Mode)
	assert.Equal(t, time.Hour, cfg.Engine.ChallengeWindow.Duration)
	assert.Equal(t, uint64(1000), cfg.Engine.ProposerBond)
	assert.Equal(t, 9999, cfg.Server.Port)

	// Untouched fields keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, uint16(100), cfg.Engine.DefaultFeeBps)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "serve"`), 0o600))

	t.Setenv("SETTLER_MODE", "full")
	t.Setenv("SETTLER_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("SETTLER_ENGINE_PROPOSER_BOND", "777")
	t.Setenv("SETTLER_ENGINE_CHALLENGE_WINDOW", "30m")
	t.Setenv("SETTLER_ENGINE_AUTHORIZED_CALLERS", "0x1111111111111111111111111111111111111111, 0x2222222222222222222222222222222222222222")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, uint64(777), cfg.Engine.ProposerBond)
	assert.Equal(t, 30*time.Minute, cfg.Engine.ChallengeWindow.Duration)
	assert.Len(t, cfg.Engine.AuthorizedCallers, 2)
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "hunter2"
	cfg.Server.APIKey = "sekrit"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Server.APIKey)

	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
