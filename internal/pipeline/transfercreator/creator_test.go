package transfercreator

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/evm"
	"github.com/emperorhan/custody-settlement/internal/chain/evm/rpc"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/emperorhan/custody-settlement/internal/store/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	network      = "BSC"
	usdtContract = "0x55d398326f99059fF775485246999027B3197955"
	sender       = "0x1111111111111111111111111111111111111111"
	stranger     = "0x4444444444444444444444444444444444444444"
)

// Checksummed, as the handlers report recipients.
var (
	watchedA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa").Hex()
	watchedB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb").Hex()
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bscAdapter() *chain.Adapter {
	tokens := []model.Token{{Symbol: "USDT", Contract: usdtContract, Decimals: 18}}
	return &chain.Adapter{
		Parser: evm.Parser{},
		Handlers: []chain.CoinHandler{
			evm.NewNativeHandler("BNB", 18),
			evm.NewTokenHandler(tokens, model.NewAssetSet("BNB", "USDT")),
		},
		Logger: testLogger(),
	}
}

func nativeTx(hash, to, weiHex string) *rpc.Transaction {
	return &rpc.Transaction{Hash: hash, From: sender, To: to, Value: weiHex, Input: "0x"}
}

func tokenTx(t *testing.T, hash, to string, units *big.Int) *rpc.Transaction {
	t.Helper()
	data, err := evm.ERC20.Pack("transfer", common.HexToAddress(to), units)
	require.NoError(t, err)
	return &rpc.Transaction{Hash: hash, From: sender, To: usdtContract, Value: "0x0", Input: "0x" + hex.EncodeToString(data)}
}

func block(number int64, hash string, txs ...*rpc.Transaction) *chain.Block {
	return &chain.Block{
		ID:        hash,
		Number:    number,
		ParentID:  "0xparent",
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Payload:   &rpc.Block{Hash: hash, Transactions: txs},
	}
}

func seedAddresses(t *testing.T, st *memory.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Repos().DepositAddresses.Create(ctx, &model.DepositAddress{Network: network, Address: watchedA, AccountID: 1}))
	require.NoError(t, st.Repos().DepositAddresses.Create(ctx, &model.DepositAddress{Network: network, Address: watchedB, AccountID: 2}))
}

func TestProcess_NativeAndTokenToDistinctAddresses(t *testing.T) {
	st := memory.New()
	seedAddresses(t, st)
	c := New(network, bscAdapter(), st, testLogger())

	oneToken := new(big.Int).Mul(big.NewInt(25), big.NewInt(1e17)) // 2.5 USDT
	b := block(100, "0xb100",
		nativeTx("0xn1", watchedA, "0xde0b6b3a7640000"),
		tokenTx(t, "0xt1", watchedB, oneToken),
		nativeTx("0xn2", stranger, "0x1"),
	)

	n, err := c.Process(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	transfers := st.Transfers(network)
	require.Len(t, transfers, 2)
	byHash := map[string]model.Transfer{}
	for _, tr := range transfers {
		byHash[tr.TxHash] = tr
	}

	native := byHash["0xn1"]
	assert.Equal(t, model.Wallet{AccountID: 1, Asset: "BNB"}, native.Wallet)
	assert.True(t, decimal.NewFromInt(1).Equal(native.Amount))
	assert.Equal(t, strings.ToLower(watchedA), native.DepositAddress)

	token := byHash["0xt1"]
	assert.Equal(t, model.Wallet{AccountID: 2, Asset: "USDT"}, token.Wallet)
	assert.Equal(t, "2.5", token.Amount.String())
	assert.Equal(t, common.HexToAddress(sender).Hex(), token.Counterparty)

	for _, tr := range transfers {
		assert.Equal(t, model.StatusPending, tr.Status)
		assert.Equal(t, model.DirectionDeposit, tr.Direction)
		assert.Equal(t, "0xb100", tr.BlockHash)
		assert.Equal(t, int64(100), tr.BlockNumber)
	}

	blocks := st.Blocks(network)
	require.Len(t, blocks, 1)
	assert.Equal(t, "0xb100", blocks[0].Hash)
}

func TestProcess_TwoDepositsToOneAddress(t *testing.T) {
	st := memory.New()
	seedAddresses(t, st)
	c := New(network, bscAdapter(), st, testLogger())

	n, err := c.Process(context.Background(), block(5, "0xb5",
		nativeTx("0xa", watchedA, "0x1"),
		nativeTx("0xb", watchedA, "0x2"),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestProcess_MatchesRegistrationRegardlessOfCase(t *testing.T) {
	for name, registered := range map[string]string{
		"lowercase": strings.ToLower(watchedA),
		"uppercase": "0x" + strings.ToUpper(watchedA[2:]),
		"checksum":  watchedA,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := memory.New()
			require.NoError(t, st.Repos().DepositAddresses.Create(ctx,
				&model.DepositAddress{Network: network, Address: registered, AccountID: 1}))
			c := New(network, bscAdapter(), st, testLogger())

			oneToken := big.NewInt(1e18)
			n, err := c.Process(ctx, block(11, "0xb11",
				nativeTx("0xn", strings.ToLower(watchedA), "0xde0b6b3a7640000"),
				tokenTx(t, "0xt", watchedA, oneToken),
			))
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			for _, tr := range st.Transfers(network) {
				assert.Equal(t, int64(1), tr.Wallet.AccountID)
				assert.Equal(t, strings.ToLower(watchedA), tr.DepositAddress)
			}
		})
	}
}

func TestProcess_SkipsFeeSelfTransfer(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedAddresses(t, st)
	require.NoError(t, st.Repos().Transfers.Create(ctx, &model.Transfer{
		Network:   network,
		Wallet:    model.Wallet{Asset: "BNB"},
		Amount:    decimal.NewFromInt(1),
		Direction: model.DirectionWithdrawal,
		Status:    model.StatusPending,
		TxHash:    "0xfee",
		IsFee:     true,
	}))
	c := New(network, bscAdapter(), st, testLogger())

	n, err := c.Process(ctx, block(7, "0xb7", nativeTx("0xfee", watchedA, "0xde0b6b3a7640000")))
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, tr := range st.Transfers(network) {
		assert.NotEqual(t, model.DirectionDeposit, tr.Direction)
	}
	assert.Len(t, st.Blocks(network), 1)
}

func TestProcess_BlockIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedAddresses(t, st)
	c := New(network, bscAdapter(), st, testLogger())

	_, err := c.Process(ctx, block(9, "0xb9", nativeTx("0x1", watchedA, "0x1")))
	require.NoError(t, err)

	// same height again: the block insert fails and the new deposit rolls back
	_, err = c.Process(ctx, block(9, "0xb9other", nativeTx("0x2", watchedB, "0x1")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrDuplicateBlock))

	transfers := st.Transfers(network)
	require.Len(t, transfers, 1)
	assert.Equal(t, "0x1", transfers[0].TxHash)
}

type failingDecoder struct{}

func (failingDecoder) Decode(*chain.Block) ([]chain.Transaction, error) {
	return nil, errors.New("unexpected block payload")
}

func TestProcess_DecodeFailureRecordsNothing(t *testing.T) {
	st := memory.New()
	c := New(network, failingDecoder{}, st, testLogger())

	_, err := c.Process(context.Background(), block(1, "0x1"))
	require.Error(t, err)
	assert.Empty(t, st.Blocks(network))
}
