package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/drip/core/address"
	"github.com/drip/core/common"
	"github.com/drip/core/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	p, err := cfg.DeployParams()
	require.NoError(t, err)
	assert.Equal(t, "Drip Token", p.Token.Name)
	assert.Equal(t, "DRIP", p.Token.Symbol)
	assert.True(t, p.Token.MaxSupply.Eq(common.Tokens(1_000_000)))
	assert.True(t, p.Faucet.FaucetAmount.Eq(common.Tokens(100)))
	assert.Equal(t, uint64(86400), p.Faucet.CooldownTime)
	assert.True(t, p.Faucet.MaxClaimAmount.Eq(common.Tokens(1000)))
	assert.Equal(t, "127.0.0.1:1337", cfg.HTTP.Addr())
}

func TestLoad_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drip.json")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRpcPort, cfg.HTTP.Port)

	_, err = os.Stat(path)
	require.NoError(t, err, "defaults are written back")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drip.yaml")
	data := []byte(`
token:
  symbol: TEST
  maxSupply: "500"
faucet:
  amount: "2.5"
  cooldown: 60
  maxClaim: "10"
http:
  port: 9000
`)
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "TEST", cfg.Token.Symbol)
	assert.Equal(t, "Drip Token", cfg.Token.Name, "unset fields keep defaults")
	assert.Equal(t, 9000, cfg.HTTP.Port)

	p, err := cfg.DeployParams()
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000", p.Faucet.FaucetAmount.Dec())
	assert.Equal(t, uint64(60), p.Faucet.CooldownTime)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drip.json")
	t.Setenv("DRIP_HTTP_PORT", "8088")
	t.Setenv("DRIP_FAUCET_COOLDOWN", "3600")
	t.Setenv("DRIP_VAULT_INMEM", "true")
	t.Setenv("DRIP_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.HTTP.Port)
	assert.Equal(t, uint64(3600), cfg.Faucet.Cooldown)
	assert.True(t, cfg.Vault.InMem)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad amount", func(c *Config) { c.Faucet.Amount = "lots" }},
		{"zero amount", func(c *Config) { c.Faucet.Amount = "0" }},
		{"cap below amount", func(c *Config) { c.Faucet.MaxClaim = "1" }},
		{"zero supply", func(c *Config) { c.Token.MaxSupply = "0" }},
		{"empty symbol", func(c *Config) { c.Token.Symbol = "" }},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"negative timeout", func(c *Config) { c.HTTP.ReadTimeout = -1 }},
		{"no vault path", func(c *Config) { c.Vault.Path = "" }},
		{"bad owner", func(c *Config) { c.Owner.Address = "0xnothex" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestOwnerAddress(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.HasOwner())
	_, err := cfg.OwnerAddress()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.Owner.Address = "0xabc0"
	_, err = cfg.OwnerAddress()
	assert.ErrorIs(t, err, address.ErrInvalidHex, "short addresses are rejected")

	full := address.HexToAddress("0xabc0")
	cfg.Owner.Address = full.Hex()
	a, err := cfg.OwnerAddress()
	require.NoError(t, err)
	assert.Equal(t, full, a)
	_, err = cfg.OwnerKey()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	path := filepath.Join(t.TempDir(), "drip.json")
	generated, err := cfg.GenerateOwner(path)
	require.NoError(t, err)
	assert.True(t, cfg.HasOwner())
	assert.Empty(t, cfg.Owner.Address)

	saved, err := ReadFile(path)
	require.NoError(t, err)
	fromFile, err := saved.OwnerAddress()
	require.NoError(t, err)
	assert.Equal(t, generated, fromFile)

	key, err := saved.OwnerKey()
	require.NoError(t, err)
	assert.Equal(t, generated, crypto.PrivKeyToAddress(*key))
}
