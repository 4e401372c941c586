// Package config loads and saves tokendesk settings from a per-user directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const (
	DefaultTokenAddress = "0x00A6e4FbeAdB0a5EdBd2c8D5505CF93077a9108d"
	DefaultRPCURL       = "http://127.0.0.1:8545"
	DefaultABI          = "pausable"
	DefaultLogLevel     = "warn"
	defaultReceiptPoll  = 2000

	configFile  = "config.json"
	walletsFile = "wallets.json"
	envFile     = ".env"
	keyringDir  = "keys"
)

// Environment overrides, applied after config.json. Values from the process
// environment win over the same keys in the config dir's .env file.
const (
	EnvConfigDir    = "TOKENDESK_CONFIG_DIR"
	EnvRPCURL       = "TOKENDESK_RPC_URL"
	EnvTokenAddress = "TOKENDESK_TOKEN_ADDRESS"
	EnvLogLevel     = "TOKENDESK_LOG_LEVEL"
)

// ErrUnknownKey is returned by Set and Get for keys Config does not have.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds all tokendesk configuration.
type Config struct {
	RPCURL        string `json:"rpc_url"`
	ChainID       int64  `json:"chain_id,omitempty"` // 0 = accept whatever the node reports
	TokenAddress  string `json:"token_address"`
	ABI           string `json:"abi"` // builtin id or path to an ABI / artifact JSON
	DefaultWallet string `json:"default_wallet,omitempty"`
	LogLevel      string `json:"log_level"`
	ConfirmTx     bool   `json:"confirm_tx"`
	ReceiptPollMS int    `json:"receipt_poll_ms"`

	// internal: config dir path used for Save()
	configDir string
}

// Load reads config from dir (or creates defaults). dir defaults to
// $TOKENDESK_CONFIG_DIR, then ~/.tokendesk.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".tokendesk")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg, err := loadJSON(filepath.Join(dir, configFile), defaults())
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk. Environment overrides in effect are
// written too.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is where wallet metadata is stored.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// KeyringDir is the file keyring fallback directory.
func (c *Config) KeyringDir() string {
	return filepath.Join(c.configDir, keyringDir)
}

// Token returns the configured token address.
func (c *Config) Token() (common.Address, error) {
	if !common.IsHexAddress(c.TokenAddress) {
		return common.Address{}, fmt.Errorf("token_address %q is not an address", c.TokenAddress)
	}
	return common.HexToAddress(c.TokenAddress), nil
}

// ReceiptPoll returns the receipt poll interval.
func (c *Config) ReceiptPoll() time.Duration {
	if c.ReceiptPollMS <= 0 {
		return defaultReceiptPoll * time.Millisecond
	}
	return time.Duration(c.ReceiptPollMS) * time.Millisecond
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{"rpc_url", "chain_id", "token_address", "abi", "default_wallet", "log_level", "confirm_tx", "receipt_poll_ms"}
}

// Get returns the string form of key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "rpc_url":
		return c.RPCURL, nil
	case "chain_id":
		return strconv.FormatInt(c.ChainID, 10), nil
	case "token_address":
		return c.TokenAddress, nil
	case "abi":
		return c.ABI, nil
	case "default_wallet":
		return c.DefaultWallet, nil
	case "log_level":
		return c.LogLevel, nil
	case "confirm_tx":
		return strconv.FormatBool(c.ConfirmTx), nil
	case "receipt_poll_ms":
		return strconv.Itoa(c.ReceiptPollMS), nil
	}
	return "", fmt.Errorf("%w: %s (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
}

// Set parses value into key.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "rpc_url":
		c.RPCURL = value
	case "chain_id":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id < 0 {
			return fmt.Errorf("chain_id must be a non-negative integer, got %q", value)
		}
		c.ChainID = id
	case "token_address":
		if !common.IsHexAddress(value) {
			return fmt.Errorf("token_address %q is not an address", value)
		}
		c.TokenAddress = common.HexToAddress(value).Hex()
	case "abi":
		c.ABI = value
	case "default_wallet":
		c.DefaultWallet = value
	case "log_level":
		if !slices.Contains([]string{"debug", "info", "warn", "error", "off"}, value) {
			return fmt.Errorf("log_level must be debug, info, warn, error or off, got %q", value)
		}
		c.LogLevel = value
	case "confirm_tx":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("confirm_tx must be true or false, got %q", value)
		}
		c.ConfirmTx = b
	case "receipt_poll_ms":
		ms, err := strconv.Atoi(value)
		if err != nil || ms <= 0 {
			return fmt.Errorf("receipt_poll_ms must be a positive integer, got %q", value)
		}
		c.ReceiptPollMS = ms
	default:
		return fmt.Errorf("%w: %s (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	return nil
}

// --- helpers ---

func defaults() *Config {
	return &Config{
		RPCURL:        DefaultRPCURL,
		TokenAddress:  DefaultTokenAddress,
		ABI:           DefaultABI,
		LogLevel:      DefaultLogLevel,
		ConfirmTx:     true,
		ReceiptPollMS: defaultReceiptPoll,
	}
}

// applyEnv layers .env and then the process environment over c.
func (c *Config) applyEnv() error {
	dotenv, err := godotenv.Read(filepath.Join(c.configDir, envFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", envFile, err)
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return dotenv[key]
	}

	for env, key := range map[string]string{
		EnvRPCURL:       "rpc_url",
		EnvTokenAddress: "token_address",
		EnvLogLevel:     "log_level",
	} {
		if v := lookup(env); v != "" {
			if err := c.Set(key, v); err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
		}
	}
	return nil
}

func loadJSON[T any](path string, v *T) (*T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return v, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
