package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tokendesk/internal/config"
)

// clearEnv keeps the developer's environment out of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvConfigDir, config.EnvRPCURL, config.EnvTokenAddress, config.EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, config.DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, config.DefaultTokenAddress, cfg.TokenAddress)
	assert.Equal(t, "pausable", cfg.ABI)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.ConfirmTx)
	assert.Equal(t, 2*time.Second, cfg.ReceiptPoll())
}

func TestSaveAndReloadConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.Set("rpc_url", "https://rpc.sepolia.example"))
	require.NoError(t, cfg.Set("chain_id", "11155111"))
	require.NoError(t, cfg.Set("confirm_tx", "false"))
	require.NoError(t, cfg.Set("receipt_poll_ms", "500"))
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.sepolia.example", reloaded.RPCURL)
	assert.Equal(t, int64(11155111), reloaded.ChainID)
	assert.False(t, reloaded.ConfirmTx)
	assert.Equal(t, 500*time.Millisecond, reloaded.ReceiptPoll())
}

func TestSetValidates(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, cfg.Set("token_address", "0x1234"))
	assert.Error(t, cfg.Set("chain_id", "-1"))
	assert.Error(t, cfg.Set("log_level", "loud"))
	assert.Error(t, cfg.Set("confirm_tx", "maybe"))
	assert.Error(t, cfg.Set("receipt_poll_ms", "0"))
	assert.ErrorIs(t, cfg.Set("colour", "blue"), config.ErrUnknownKey)

	require.NoError(t, cfg.Set("token_address", "0x00a6e4fbeadb0a5edbd2c8d5505cf93077a9108d"))
	assert.Equal(t, config.DefaultTokenAddress, cfg.TokenAddress, "stored checksummed")
}

func TestGetEveryKey(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	for _, k := range config.Keys() {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
	v, err := cfg.Get("confirm_tx")
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	_, err = cfg.Get("nope")
	assert.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestDotEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := "TOKENDESK_RPC_URL=http://dotenv:8545\nTOKENDESK_LOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv:8545", cfg.RPCURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestProcessEnvBeatsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TOKENDESK_RPC_URL=http://dotenv:8545\n"), 0o600))
	t.Setenv(config.EnvRPCURL, "http://process:8545")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://process:8545", cfg.RPCURL)
}

func TestBadEnvTokenAddress(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvTokenAddress, "not-an-address")
	_, err := config.Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvTokenAddress)
}

func TestConfigDirFromEnv(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "fromenv")
	t.Setenv(config.EnvConfigDir, dir)
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
	assert.Equal(t, filepath.Join(dir, "wallets.json"), cfg.WalletsPath())
	assert.Equal(t, filepath.Join(dir, "keys"), cfg.KeyringDir())
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err, "config.json should be created on save")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCorruptConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0o600))
	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	addr, err := cfg.Token()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTokenAddress, addr.Hex())

	cfg.TokenAddress = "bogus"
	_, err = cfg.Token()
	assert.Error(t, err)
}
