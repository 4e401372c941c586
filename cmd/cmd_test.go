package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tokendesk/internal/config"
	"github.com/Mohsinsiddi/tokendesk/internal/contract"
	"github.com/Mohsinsiddi/tokendesk/internal/dispatch"
	"github.com/Mohsinsiddi/tokendesk/internal/session"
	"github.com/Mohsinsiddi/tokendesk/internal/tokenstate"
	"github.com/Mohsinsiddi/tokendesk/internal/units"
	"github.com/Mohsinsiddi/tokendesk/internal/wallet"
)

const (
	bobHex       = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	transferData = "0xa9059cbb" +
		"00000000000000000000000070997970c51812dc3a010c7d01b50e0d17dc79c8" +
		"0000000000000000000000000000000000000000000000001bc16d674ec80000"
)

func pairMap(pairs [][2]string) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p[0]] = p[1]
	}
	return m
}

func TestErrorHint(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{session.ErrNoProviderDetected, "rpc_url"},
		{fmt.Errorf("connect: %w", session.ErrUserRejected), "declined"},
		{contract.ErrNoSession, "wallet use"},
		{fmt.Errorf("%w: amount", dispatch.ErrValidation), "whole-token"},
		{units.ErrInvalidAmount, "whole-token"},
		{fmt.Errorf("%w: name", tokenstate.ErrReadFailure), "token_address"},
		{wallet.ErrWatchOnly, "watch-only"},
		{context.DeadlineExceeded, "--timeout"},
		{&dispatch.MultiSendError{Index: 2, Completed: 2, Err: &dispatch.RejectedError{Kind: dispatch.Transfer, Reason: "paused"}}, "resume from index 2"},
		{&dispatch.MultiSendError{Index: 0, Err: &dispatch.RejectedError{Kind: dispatch.Transfer, Reason: "paused"}}, "no pairs were sent"},
		{&dispatch.MultiSendError{Index: 3, Completed: 3, Err: &dispatch.RejectedError{Kind: dispatch.Transfer, Err: session.ErrUserRejected}}, "pairs 0..2 were sent"},
	}
	for _, tc := range cases {
		assert.Contains(t, errorHint(tc.err), tc.want, "%v", tc.err)
	}
	assert.Empty(t, errorHint(errors.New("something else")))
}

func TestDecodeCallTransfer(t *testing.T) {
	data, err := parseCalldata(transferData)
	require.NoError(t, err)

	got := pairMap(decodeCall(contract.MustDescriptor("pausable"), data))
	assert.Contains(t, got["Method"], "transfer(address,uint256)")
	assert.Equal(t, bobHex, got["to"])
	assert.Equal(t, "2000000000000000000", got["value"])
}

func TestDecodeCallUnknownAndEmpty(t *testing.T) {
	desc := contract.MustDescriptor("erc20")

	pause, err := parseCalldata("0x8456cb59")
	require.NoError(t, err)
	got := pairMap(decodeCall(desc, pause))
	assert.Equal(t, "0x8456cb59", got["Selector"])
	assert.Contains(t, got["Method"], "unknown")

	assert.Contains(t, pairMap(decodeCall(desc, nil))["Method"], "none")
}

func TestDecodeCallBadArgs(t *testing.T) {
	data, err := parseCalldata("0xa9059cbb0000")
	require.NoError(t, err)
	got := pairMap(decodeCall(contract.MustDescriptor("pausable"), data))
	assert.Contains(t, got, "Args")
}

func TestParseCalldata(t *testing.T) {
	_, err := parseCalldata("0x")
	assert.Error(t, err)
	_, err = parseCalldata("0xzz")
	assert.Error(t, err)
	b, err := parseCalldata("0X8456CB59")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x84, 0x56, 0xcb, 0x59}, b)
}

func TestDescribeTx(t *testing.T) {
	data, err := parseCalldata(transferData)
	require.NoError(t, err)
	token := common.HexToAddress(config.DefaultTokenAddress)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(31337),
		Nonce:     7,
		GasTipCap: big.NewInt(2_000_000_000),
		GasFeeCap: big.NewInt(22_000_000_000),
		Gas:       51000,
		To:        &token,
		Value:     new(big.Int),
		Data:      data,
	})
	from := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	got := pairMap(describeTx(contract.MustDescriptor("pausable"), from, tx))
	assert.Contains(t, got["From"], from.Hex())
	assert.Contains(t, got["To"], token.Hex())
	assert.Equal(t, "7", got["Nonce"])
	assert.Equal(t, "51000", got["Gas limit"])
	assert.Equal(t, "22 gwei", got["Max fee"])
	assert.Equal(t, "2 gwei", got["Priority fee"])
	assert.Equal(t, "2000000000000000000", got["value"])
}

func TestConvertPairs(t *testing.T) {
	got, err := convertPairs("2", 18, false)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", pairMap(got)["Base units"])
	assert.Equal(t, "0x1bc16d674ec80000", pairMap(got)["Hex"])

	got, err = convertPairs("1500000", 6, true)
	require.NoError(t, err)
	assert.Contains(t, pairMap(got)["Amount"], "1.5")

	got, err = convertPairs("0xde0b6b3a7640000", 18, true)
	require.NoError(t, err)
	assert.Contains(t, pairMap(got)["Amount"], "1")
	assert.Equal(t, "1000000000000000000", pairMap(got)["Base units"])

	_, err = convertPairs("1.0000001", 6, false)
	assert.ErrorIs(t, err, units.ErrInvalidAmount)
	_, err = convertPairs("-5", 18, true)
	assert.ErrorIs(t, err, units.ErrInvalidAmount)
	_, err = convertPairs("1.5", 18, true)
	assert.ErrorIs(t, err, units.ErrInvalidAmount)
}

func TestPrintBatch(t *testing.T) {
	to := []string{"0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222", "0x3333333333333333333333333333333333333333"}
	amounts := []string{"1", "2", "3"}
	sent := []*dispatch.Result{{Receipt: &types.Receipt{TxHash: common.HexToHash("0xabcdef")}}}
	err := &dispatch.MultiSendError{Index: 1, Completed: 1, Err: errors.New("transfer rejected")}

	var out bytes.Buffer
	printBatch(&out, to, amounts, sent, err)
	lines := strings.Split(out.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, lines[2], "sent")
	assert.Contains(t, lines[3], "failed")
	assert.Contains(t, lines[4], "skipped")
	assert.NotContains(t, out.String(), "confirmed")
}

func TestPrintBatchSkipsValidationErrors(t *testing.T) {
	var out bytes.Buffer
	printBatch(&out, []string{"0x1"}, nil, nil, fmt.Errorf("%w: length mismatch", dispatch.ErrValidation))
	assert.Empty(t, out.String())
}

func TestPrintBatchAllConfirmed(t *testing.T) {
	var out bytes.Buffer
	st := tokenstate.TokenState{Name: "Desk", Decimals: 0, TotalSupply: big.NewInt(10), Balance: big.NewInt(7)}
	res := []*dispatch.Result{{State: st}, {State: st}}
	printBatch(&out, []string{"0x1", "0x2"}, []string{"1", "2"}, res, nil)
	assert.Contains(t, out.String(), "2 transfer(s) confirmed")
	assert.Contains(t, out.String(), "balance now 7")
}

func TestWalletItems(t *testing.T) {
	items := walletItems([]*wallet.Wallet{
		{Name: "cold", Address: bobHex, Type: wallet.TypeWatchOnly},
		{Name: "deployer", Address: bobHex, Type: wallet.TypeSigning, IsDefault: true},
		{Name: "ops", Address: bobHex, Type: wallet.TypeSigning},
	})
	require.Len(t, items, 3)
	assert.True(t, items[0].Disabled)
	assert.Equal(t, wallet.TypeWatchOnly, items[0].Tag)
	assert.Equal(t, "active", items[1].Tag)
	assert.False(t, items[2].Disabled)
	assert.Empty(t, items[2].Tag)
	assert.Equal(t, "ops", items[2].Value)
}

func TestConfigCommandsPersist(t *testing.T) {
	for _, env := range []string{config.EnvRPCURL, config.EnvTokenAddress, config.EnvLogLevel} {
		t.Setenv(env, "")
	}
	dir := t.TempDir()

	rootCmd.SetArgs([]string{"--config", dir, "config", "set", "rpc_url", "http://node:8545"})
	require.NoError(t, rootCmd.Execute())
	rootCmd.SetArgs([]string{"--config", dir, "config", "set", "chain_id", "31337"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"--config", dir, "config", "set", "confirm_tx", "maybe"})
	assert.Error(t, rootCmd.Execute())

	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://node:8545", loaded.RPCURL)
	assert.Equal(t, int64(31337), loaded.ChainID)
	assert.True(t, loaded.ConfirmTx)
}

type fakeExtras struct {
	methods map[string]bool
	block   *big.Int
	err     error
}

func (f *fakeExtras) HasMethod(name string) bool { return f.methods[name] }

func (f *fakeExtras) Owner(_ context.Context, block *big.Int) (common.Address, error) {
	f.block = block
	return common.HexToAddress(bobHex), f.err
}

func (f *fakeExtras) Paused(_ context.Context, block *big.Int) (bool, error) {
	f.block = block
	return true, f.err
}

func TestExtraPairs(t *testing.T) {
	full := &fakeExtras{methods: map[string]bool{"owner": true, "paused": true}}
	pairs, err := extraPairs(context.Background(), full, big.NewInt(7))
	require.NoError(t, err)
	m := pairMap(pairs)
	assert.Contains(t, m["Owner"], bobHex)
	assert.Contains(t, m["Status"], "paused")
	assert.Equal(t, int64(7), full.block.Int64())

	plain := &fakeExtras{methods: map[string]bool{}}
	pairs, err = extraPairs(context.Background(), plain, big.NewInt(7))
	require.NoError(t, err)
	assert.Empty(t, pairs)
	assert.Nil(t, plain.block, "no reads for methods the ABI lacks")

	broken := &fakeExtras{methods: map[string]bool{"owner": true}, err: errors.New("connection refused")}
	_, err = extraPairs(context.Background(), broken, big.NewInt(7))
	assert.ErrorContains(t, err, "connection refused")
}

type chainBackend struct {
	wallet.Backend
	id int64
}

func (b chainBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(b.id), nil }

type fakeSwitcher struct {
	switched     []wallet.Backend
	switchErr    error
	disconnected error
}

func (f *fakeSwitcher) SwitchBackend(_ context.Context, b wallet.Backend) error {
	if f.switchErr != nil {
		return f.switchErr
	}
	f.switched = append(f.switched, b)
	return nil
}

func (f *fakeSwitcher) Disconnect(err error) { f.disconnected = err }

type fakeReconnector struct {
	connected bool
	connects  int
	chain     int64
}

func (f *fakeReconnector) Connected() bool { return f.connected }

func (f *fakeReconnector) Connect(context.Context) error {
	f.connects++
	f.connected = true
	return nil
}

func (f *fakeReconnector) ChainID() *big.Int { return big.NewInt(f.chain) }

func newFollower(t *testing.T, url string, chain int64) (*rpcFollower, *config.Config, *fakeSwitcher, *fakeReconnector, *[]string) {
	t.Helper()
	t.Setenv(config.EnvRPCURL, "")
	t.Setenv(config.EnvTokenAddress, "")
	t.Setenv(config.EnvLogLevel, "")
	dir := t.TempDir()
	c, err := config.Load(dir)
	require.NoError(t, err)
	require.NoError(t, c.Set("rpc_url", url))
	require.NoError(t, c.Save())

	var dialed []string
	sw := &fakeSwitcher{}
	sess := &fakeReconnector{connected: true, chain: chain}
	f := &rpcFollower{
		url:  url,
		load: func() (*config.Config, error) { return config.Load(dir) },
		dial: func(_ context.Context, u string) (wallet.Backend, error) {
			dialed = append(dialed, u)
			return chainBackend{id: chain}, nil
		},
		provider: sw,
		sess:     sess,
	}
	return f, c, sw, sess, &dialed
}

func TestRPCFollowerIdleWhileUnchanged(t *testing.T) {
	f, _, sw, _, dialed := newFollower(t, "http://node-a:8545", 1)
	label, err := f.check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, label)
	assert.Empty(t, *dialed)
	assert.Empty(t, sw.switched)
}

func TestRPCFollowerSwitchesOnNewURL(t *testing.T) {
	f, c, sw, sess, dialed := newFollower(t, "http://node-a:8545", 10)
	require.NoError(t, c.Set("rpc_url", "http://node-b:8545"))
	require.NoError(t, c.Save())

	label, err := f.check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "chain 10", label)
	assert.Equal(t, []string{"http://node-b:8545"}, *dialed)
	assert.Len(t, sw.switched, 1)
	assert.Equal(t, "http://node-b:8545", f.url)
	assert.Zero(t, sess.connects)
}

func TestRPCFollowerDisconnectsOnFailure(t *testing.T) {
	f, c, sw, _, _ := newFollower(t, "http://node-a:8545", 1)
	sw.switchErr = errors.New("connection refused")
	require.NoError(t, c.Set("rpc_url", "http://node-b:8545"))
	require.NoError(t, c.Save())

	_, err := f.check(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.ErrorContains(t, sw.disconnected, "node-b")
	assert.Equal(t, "http://node-a:8545", f.url, "retried on the next tick")
}

func TestRPCFollowerReconnectsDroppedSession(t *testing.T) {
	f, _, sw, sess, dialed := newFollower(t, "http://node-a:8545", 1)
	sess.connected = false

	label, err := f.check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "chain 1", label)
	assert.Len(t, *dialed, 1)
	assert.Len(t, sw.switched, 1)
	assert.Equal(t, 1, sess.connects)
	assert.Nil(t, sw.disconnected)
}

func TestRPCFollowerRejectsWrongChain(t *testing.T) {
	f, c, sw, _, _ := newFollower(t, "http://node-a:8545", 5)
	require.NoError(t, c.Set("chain_id", "1"))
	require.NoError(t, c.Set("rpc_url", "http://node-b:8545"))
	require.NoError(t, c.Save())

	_, err := f.check(context.Background())
	assert.ErrorContains(t, err, "config expects 1")
	assert.Empty(t, sw.switched)
}
