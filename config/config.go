package config

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/drip/core/address"
	"github.com/drip/core/common"
	"github.com/drip/core/crypto"
	"github.com/drip/core/deploy"
	"github.com/drip/core/faucet"
	"github.com/drip/core/token"
	"github.com/drip/internal/logger"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRpcPort = 1337
	DefaultPath    = "drip.json"
	EnvPrefix      = "DRIP_"
)

var ErrInvalidConfig = errors.New("invalid config")

type VaultConfig struct {
	InMem bool   `json:"inMem" yaml:"inMem" env:"INMEM"`
	Path  string `json:"path" yaml:"path" env:"PATH"`
}

// TokenConfig amounts are decimal whole-token strings, e.g. "1000000".
type TokenConfig struct {
	Name      string `json:"name" yaml:"name" env:"NAME"`
	Symbol    string `json:"symbol" yaml:"symbol" env:"SYMBOL"`
	MaxSupply string `json:"maxSupply" yaml:"maxSupply" env:"MAX_SUPPLY"`
}

type FaucetConfig struct {
	Amount   string `json:"amount" yaml:"amount" env:"AMOUNT"`
	Cooldown uint64 `json:"cooldown" yaml:"cooldown" env:"COOLDOWN"` // seconds
	MaxClaim string `json:"maxClaim" yaml:"maxClaim" env:"MAX_CLAIM"`
}

// OwnerConfig names the deployer. Address wins over Mnemonic.
type OwnerConfig struct {
	Address    string `json:"address,omitempty" yaml:"address,omitempty" env:"ADDRESS"`
	Mnemonic   string `json:"mnemonic,omitempty" yaml:"mnemonic,omitempty" env:"MNEMONIC"`
	Passphrase string `json:"passphrase,omitempty" yaml:"passphrase,omitempty" env:"PASSPHRASE"`
}

type HTTPConfig struct {
	Host         string `json:"host" yaml:"host" env:"HOST"`
	Port         int    `json:"port" yaml:"port" env:"PORT"`
	ReadTimeout  int    `json:"readTimeout" yaml:"readTimeout" env:"READ_TIMEOUT"`   // seconds
	WriteTimeout int    `json:"writeTimeout" yaml:"writeTimeout" env:"WRITE_TIMEOUT"` // seconds
	CORS         bool   `json:"cors" yaml:"cors" env:"CORS"`
}

// Addr is the listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// main configuration struct
type Config struct {
	Vault  VaultConfig   `json:"vault" yaml:"vault" envPrefix:"VAULT_"`
	Token  TokenConfig   `json:"token" yaml:"token" envPrefix:"TOKEN_"`
	Faucet FaucetConfig  `json:"faucet" yaml:"faucet" envPrefix:"FAUCET_"`
	Owner  OwnerConfig   `json:"owner" yaml:"owner" envPrefix:"OWNER_"`
	HTTP   HTTPConfig    `json:"http" yaml:"http" envPrefix:"HTTP_"`
	Log    logger.Config `json:"log" yaml:"log" envPrefix:"LOG_"`
}

func Default() *Config {
	return &Config{
		Vault: VaultConfig{
			InMem: false,
			Path:  "./vault",
		},
		Token: TokenConfig{
			Name:      deploy.DefaultName,
			Symbol:    deploy.DefaultSymbol,
			MaxSupply: fmt.Sprint(deploy.DefaultMaxTokens),
		},
		Faucet: FaucetConfig{
			Amount:   fmt.Sprint(faucet.DefaultFaucetTokens),
			Cooldown: faucet.DefaultCooldownTime,
			MaxClaim: fmt.Sprint(faucet.DefaultMaxClaimTokens),
		},
		HTTP: HTTPConfig{
			Host:         "127.0.0.1",
			Port:         DefaultRpcPort,
			ReadTimeout:  10,
			WriteTimeout: 10,
			CORS:         true,
		},
		Log: logger.Config{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads the config at path. A missing file is created with the
// defaults. DRIP_* environment variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	var cfg *Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		if err := cfg.WriteFile(path); err != nil {
			return nil, err
		}
	} else {
		cfg, err = ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ReadFile parses a JSON or YAML (by extension) config on top of the defaults.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}
	cfg := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) WriteFile(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (cfg *Config) Validate() error {
	if _, err := cfg.DeployParams(); err != nil {
		return err
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http port %d", ErrInvalidConfig, cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeout < 0 || cfg.HTTP.WriteTimeout < 0 {
		return fmt.Errorf("%w: negative http timeout", ErrInvalidConfig)
	}
	if !cfg.Vault.InMem && cfg.Vault.Path == "" {
		return fmt.Errorf("%w: vault path is required unless inMem", ErrInvalidConfig)
	}
	if cfg.Owner.Address != "" {
		if _, err := address.ParseHex(cfg.Owner.Address); err != nil {
			return fmt.Errorf("%w: owner: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// DeployParams converts the token and faucet sections.
func (cfg *Config) DeployParams() (deploy.Params, error) {
	maxSupply, err := common.ParseUnits(cfg.Token.MaxSupply, common.Decimals)
	if err != nil {
		return deploy.Params{}, fmt.Errorf("%w: token.maxSupply: %v", ErrInvalidConfig, err)
	}
	amount, err := common.ParseUnits(cfg.Faucet.Amount, common.Decimals)
	if err != nil {
		return deploy.Params{}, fmt.Errorf("%w: faucet.amount: %v", ErrInvalidConfig, err)
	}
	maxClaim, err := common.ParseUnits(cfg.Faucet.MaxClaim, common.Decimals)
	if err != nil {
		return deploy.Params{}, fmt.Errorf("%w: faucet.maxClaim: %v", ErrInvalidConfig, err)
	}
	p := deploy.Params{
		Token: token.Params{
			Name:      cfg.Token.Name,
			Symbol:    cfg.Token.Symbol,
			MaxSupply: maxSupply,
		},
		Faucet: faucet.Params{
			FaucetAmount:   amount,
			CooldownTime:   cfg.Faucet.Cooldown,
			MaxClaimAmount: maxClaim,
		},
	}
	if err := p.Token.Validate(); err != nil {
		return deploy.Params{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := p.Faucet.Validate(); err != nil {
		return deploy.Params{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return p, nil
}

// HasOwner reports whether an owner identity is configured.
func (cfg *Config) HasOwner() bool {
	return cfg.Owner.Address != "" || cfg.Owner.Mnemonic != ""
}

// OwnerAddress resolves the deployer address.
func (cfg *Config) OwnerAddress() (address.Address, error) {
	if cfg.Owner.Address != "" {
		return address.ParseHex(cfg.Owner.Address)
	}
	if cfg.Owner.Mnemonic != "" {
		return crypto.AddressFromMnemonic(cfg.Owner.Mnemonic, cfg.Owner.Passphrase)
	}
	return address.Zero, fmt.Errorf("%w: no owner configured", ErrInvalidConfig)
}

// OwnerKey derives the owner's signing key. It needs the mnemonic; a
// bare owner address cannot sign.
func (cfg *Config) OwnerKey() (*ecdsa.PrivateKey, error) {
	if cfg.Owner.Mnemonic == "" {
		return nil, fmt.Errorf("%w: owner mnemonic not configured", ErrInvalidConfig)
	}
	return crypto.KeyFromMnemonic(cfg.Owner.Mnemonic, cfg.Owner.Passphrase)
}

// GenerateOwner creates a fresh mnemonic for the owner and saves the
// config to path.
func (cfg *Config) GenerateOwner(path string) (address.Address, error) {
	m, err := crypto.NewMnemonic()
	if err != nil {
		return address.Zero, err
	}
	cfg.Owner.Mnemonic = m
	cfg.Owner.Address = ""
	owner, err := cfg.OwnerAddress()
	if err != nil {
		return address.Zero, err
	}
	if err := cfg.WriteFile(path); err != nil {
		return address.Zero, err
	}
	return owner, nil
}
