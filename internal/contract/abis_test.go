package contract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tokendesk/internal/contract"
)

func TestBuiltinsRegistered(t *testing.T) {
	var ids []string
	for _, b := range contract.AllBuiltins() {
		ids = append(ids, b.ID)
	}
	assert.Subset(t, ids, []string{"erc20", "pausable", "w3token"})
}

func TestPausableDescriptorMethods(t *testing.T) {
	parsed := contract.MustDescriptor(contract.DefaultBuiltin)
	for _, name := range []string{"name", "decimals", "totalSupply", "balanceOf", "mint", "burn", "pause", "unpause", "transfer", "approve"} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, name)
	}
	assert.True(t, parsed.Methods["balanceOf"].IsConstant())
	assert.False(t, parsed.Methods["pause"].IsConstant())
}

func TestKnownSelectors(t *testing.T) {
	parsed := contract.MustDescriptor("pausable")
	tests := map[string]string{
		"name":      "06fdde03",
		"decimals":  "313ce567",
		"balanceOf": "70a08231",
		"transfer":  "a9059cbb",
		"approve":   "095ea7b3",
		"mint":      "40c10f19",
		"burn":      "42966c68",
		"pause":     "8456cb59",
		"unpause":   "3f4ba83a",
	}
	for name, want := range tests {
		assert.Equal(t, want, common2hex(parsed.Methods[name].ID), name)
	}
}

func TestERC20HasNoMint(t *testing.T) {
	parsed := contract.MustDescriptor("erc20")
	_, ok := parsed.Methods["mint"]
	assert.False(t, ok)
}

func TestLoadDescriptorFromArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Token.json")
	artifact := `{"contractName":"Token","abi":[{"type":"function","name":"pause","inputs":[],"outputs":[],"stateMutability":"nonpayable"}]}`
	require.NoError(t, os.WriteFile(path, []byte(artifact), 0o600))

	parsed, err := contract.LoadDescriptor(path)
	require.NoError(t, err)
	_, ok := parsed.Methods["pause"]
	assert.True(t, ok)
}

func TestLoadDescriptorFromBareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abi.json")
	raw := `[{"type":"function","name":"paused","inputs":[],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	parsed, err := contract.LoadDescriptor(path)
	require.NoError(t, err)
	assert.True(t, parsed.Methods["paused"].IsConstant())
}

func TestLoadDescriptorUnknown(t *testing.T) {
	_, err := contract.LoadDescriptor("no-such-builtin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pausable")
}

func TestLoadDescriptorInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := contract.LoadDescriptor(path)
	assert.Error(t, err)
}

func TestABIEntryPredicates(t *testing.T) {
	assert.True(t, contract.ABIEntry{Type: "function", StateMutability: "view"}.IsReadFunction())
	assert.True(t, contract.ABIEntry{Type: "function", StateMutability: "pure"}.IsReadFunction())
	assert.True(t, contract.ABIEntry{Type: "function", StateMutability: "nonpayable"}.IsWriteFunction())
	assert.False(t, contract.ABIEntry{Type: "event"}.IsWriteFunction())
}

func common2hex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return string(out)
}
