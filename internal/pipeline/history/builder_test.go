package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/pipeline/confirmer"
	"github.com/emperorhan/custody-settlement/internal/pipeline/reverter"
	"github.com/emperorhan/custody-settlement/internal/pipeline/transfercreator"
	"github.com/emperorhan/custody-settlement/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watched = "TWatchedDepositAddress"

// fakeChain serves a canonical chain plus every block it ever served by hash.
type fakeChain struct {
	byHash map[string]*chain.Block
	canon  map[int64]*chain.Block
	head   int64
	err    error
}

func newFakeChain(blocks ...*chain.Block) *fakeChain {
	f := &fakeChain{byHash: map[string]*chain.Block{}}
	f.setCanonical(blocks...)
	return f
}

func (f *fakeChain) setCanonical(blocks ...*chain.Block) {
	f.canon = map[int64]*chain.Block{}
	f.head = 0
	for _, b := range blocks {
		f.canon[b.Number] = b
		f.byHash[b.ID] = b
		if b.Number > f.head {
			f.head = b.Number
		}
	}
}

func (f *fakeChain) GetLatestBlock(context.Context) (*chain.Block, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.canon[f.head], nil
}

func (f *fakeChain) GetBlockByID(_ context.Context, id string) (*chain.Block, error) {
	if b, ok := f.byHash[id]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%s: %w", id, chain.ErrBlockNotFound)
}

func (f *fakeChain) GetBlockByNumber(_ context.Context, n int64) (*chain.Block, error) {
	if b, ok := f.canon[n]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%d: %w", n, chain.ErrBlockNotFound)
}

func mkBlock(number int64, id, parent string, txs ...chain.Transaction) *chain.Block {
	return &chain.Block{
		ID:        id,
		Number:    number,
		ParentID:  parent,
		Timestamp: time.Unix(1700000000+number*3, 0).UTC(),
		Payload:   txs,
	}
}

// linear builds blocks from..to named prefix<n>, the first one on parent.
func linear(prefix string, from, to int64, parent string) []*chain.Block {
	var out []*chain.Block
	for n := from; n <= to; n++ {
		id := fmt.Sprintf("%s%d", prefix, n)
		out = append(out, mkBlock(n, id, parent))
		parent = id
	}
	return out
}

func deposit(id string, amount int64) chain.Transaction {
	return chain.Transaction{ID: id, From: "TSender", To: watched, Amount: decimal.NewFromInt(amount), Asset: "TRX"}
}

type payloadDecoder struct{}

func (payloadDecoder) Decode(b *chain.Block) ([]chain.Transaction, error) {
	txs, _ := b.Payload.([]chain.Transaction)
	return txs, nil
}

type allSucceed struct{}

func (allSucceed) TransactionStatus(context.Context, string) (chain.TxStatus, error) {
	return chain.TxStatusSuccess, nil
}

func (allSucceed) LocateTransaction(context.Context, string) (*chain.TxLocation, error) {
	return nil, nil
}

type recordingAlerter struct {
	alerts []alert.Alert
}

func (r *recordingAlerter) Send(_ context.Context, a alert.Alert) error {
	r.alerts = append(r.alerts, a)
	return nil
}

type harness struct {
	st      *memory.Store
	chain   *fakeChain
	creator *transfercreator.Creator
	alerts  *recordingAlerter
	builder *Builder
}

func newHarness(t *testing.T, network model.Network, fc *fakeChain, opts ...Option) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New()
	require.NoError(t, st.Repos().DepositAddresses.Create(context.Background(),
		&model.DepositAddress{Network: network.Symbol, Address: watched, AccountID: 9}))

	h := &harness{st: st, chain: fc, alerts: &recordingAlerter{}}
	h.creator = transfercreator.New(network.Symbol, payloadDecoder{}, st, logger)
	rev := reverter.New(network.Symbol, st, logger)
	conf := confirmer.New(network, allSucceed{}, st, nil, logger)
	opts = append([]Option{WithAlerter(h.alerts)}, opts...)
	h.builder = New(network, fc, h.creator, rev, conf, st, logger, opts...)
	return h
}

func (h *harness) seed(t *testing.T, blocks ...*chain.Block) {
	t.Helper()
	for _, b := range blocks {
		_, err := h.creator.Process(context.Background(), b)
		require.NoError(t, err)
	}
}

func (h *harness) ledger() []string {
	var out []string
	for _, b := range h.st.Blocks("TRX") {
		out = append(out, b.Hash)
	}
	return out
}

func network(minConfirm, threshold int64) model.Network {
	return model.Network{
		Symbol:           "TRX",
		Chain:            model.ChainTron,
		NativeAsset:      "TRX",
		NativeDecimals:   6,
		MinConfirm:       minConfirm,
		ForwardThreshold: threshold,
	}
}

func TestRun_BootstrapRecordsOnlyHead(t *testing.T) {
	fc := newFakeChain(linear("a", 1, 50, "genesis")...)
	h := newHarness(t, network(19, 1000), fc)

	res, err := h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeBootstrap, res.Mode)
	assert.Equal(t, []string{"a50"}, h.ledger())
}

func TestRun_IdempotentAtUnchangedHead(t *testing.T) {
	b1 := mkBlock(1, "b1", "genesis")
	b2 := mkBlock(2, "b2", "b1", deposit("tx2", 5))
	fc := newFakeChain(b1, b2)
	h := newHarness(t, network(19, 1000), fc)
	h.seed(t, b1)

	res, err := h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeBackward, res.Mode)
	assert.Equal(t, 1, res.Deposits)

	for i := 0; i < 3; i++ {
		res, err = h.builder.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ModeSynced, res.Mode)
	}
	assert.Equal(t, []string{"b1", "b2"}, h.ledger())
	assert.Len(t, h.st.Transfers("TRX"), 1)
}

func TestRun_ReorgReplacesForkedBlocks(t *testing.T) {
	b1 := mkBlock(1, "B1", "B0")
	b2 := mkBlock(2, "B2", "B1", deposit("txA", 10))
	b3 := mkBlock(3, "B3", "B2", deposit("txB", 20))
	fc := newFakeChain(b1, b2, b3)
	h := newHarness(t, network(19, 1000), fc)
	h.seed(t, b1, b2, b3)

	// txA is mined again on the new branch, txB is dropped
	b2f := mkBlock(2, "B2'", "B1", deposit("txA", 10))
	b3f := mkBlock(3, "B3'", "B2'")
	b4f := mkBlock(4, "B4'", "B3'", deposit("txC", 30))
	fc.setCanonical(b1, b2f, b3f, b4f)

	res, err := h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeBackward, res.Mode)
	assert.Equal(t, int64(2), res.Reverted)
	assert.Equal(t, 3, res.Appended)

	assert.Equal(t, []string{"B1", "B2'", "B3'", "B4'"}, h.ledger())

	var reverted, pending []string
	for _, tr := range h.st.Transfers("TRX") {
		switch tr.Status {
		case model.StatusReverted:
			reverted = append(reverted, tr.TxHash+"@"+tr.BlockHash)
		case model.StatusPending:
			pending = append(pending, tr.TxHash+"@"+tr.BlockHash)
		}
	}
	assert.ElementsMatch(t, []string{"txA@B2", "txB@B3"}, reverted)
	assert.ElementsMatch(t, []string{"txA@B2'", "txC@B4'"}, pending)
}

func TestRun_ForwardFulfillStopsShortOfHead(t *testing.T) {
	blocks := linear("c", 1, 40, "genesis")
	fc := newFakeChain(blocks...)
	h := newHarness(t, network(3, 10), fc)
	h.seed(t, blocks[0])

	res, err := h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeForward, res.Mode)
	assert.Equal(t, 36, res.Appended)

	latest, err := h.st.Repos().Blocks.Latest(context.Background(), "TRX")
	require.NoError(t, err)
	assert.Equal(t, int64(37), latest.Number)

	// the remaining gap is small, so the next run walks back from the head
	res, err = h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeBackward, res.Mode)
	assert.Equal(t, 3, res.Appended)
	assert.Len(t, h.ledger(), 40)
}

func TestRun_ForwardFulfillHandsForkToBackwardWalk(t *testing.T) {
	old := linear("old", 1, 3, "genesis")
	fc := newFakeChain(old...)
	h := newHarness(t, network(2, 5), fc)
	h.seed(t, old...)

	canon := append(linear("old", 1, 2, "genesis"), linear("new", 3, 20, "old2")...)
	fc.setCanonical(canon...)

	res, err := h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeForward, res.Mode)

	ledger := h.ledger()
	require.Len(t, ledger, 18)
	assert.Equal(t, "old2", ledger[1])
	assert.Equal(t, "new3", ledger[2])
	assert.Equal(t, "new18", ledger[17])
}

func TestRun_ReorgTooDeep(t *testing.T) {
	fc := newFakeChain(linear("x", 1, 2, "genesis")...)
	h := newHarness(t, network(1, 3), fc)
	h.seed(t, linear("x", 1, 2, "genesis")...)

	fc.setCanonical(linear("y", 1, 4, "other-genesis")...)

	_, err := h.builder.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReorgTooDeep))
	assert.Equal(t, []string{"x1", "x2"}, h.ledger(), "ledger is untouched")
	require.Len(t, h.alerts.alerts, 1)
	assert.Equal(t, alert.AlertTypeReorgTooDeep, h.alerts.alerts[0].Type)
}

func TestRun_ConfirmsAfterAppending(t *testing.T) {
	b1 := mkBlock(1, "b1", "genesis")
	b2 := mkBlock(2, "b2", "b1", deposit("tx", 7))
	b3 := mkBlock(3, "b3", "b2")
	fc := newFakeChain(b1, b2)
	h := newHarness(t, network(1, 1000), fc)
	h.seed(t, b1)

	res, err := h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Confirmed.Done, "depth 0 at head 2")

	fc.setCanonical(b1, b2, b3)
	res, err = h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Confirmed.Done)

	transfers := h.st.Transfers("TRX")
	require.Len(t, transfers, 1)
	assert.Equal(t, model.StatusDone, transfers[0].Status)
	total, _ := h.st.Balance(model.Wallet{AccountID: 9, Asset: "TRX"})
	assert.Equal(t, "7", total.String())
}

func TestRun_SyncedHeadStillConfirms(t *testing.T) {
	b1 := mkBlock(1, "b1", "genesis")
	b2 := mkBlock(2, "b2", "b1", deposit("tx", 4))
	b3 := mkBlock(3, "b3", "b2")
	fc := newFakeChain(b1, b2, b3)
	h := newHarness(t, network(1, 1000), fc)
	h.seed(t, b1, b2, b3)

	res, err := h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeSynced, res.Mode)
	assert.Zero(t, res.Appended)
	assert.Equal(t, 1, res.Confirmed.Done)
	assert.Equal(t, []string{"b1", "b2", "b3"}, h.ledger())

	res, err = h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Confirmed.Done, "credited once")
	total, _ := h.st.Balance(model.Wallet{AccountID: 9, Asset: "TRX"})
	assert.Equal(t, "4", total.String())
}

func TestRun_HeadFetchFailure(t *testing.T) {
	fc := newFakeChain(linear("a", 1, 3, "genesis")...)
	fc.err = &chain.FaultError{Network: "TRX", Method: "wallet/getnowblock", Timeout: true, Err: context.DeadlineExceeded}
	h := newHarness(t, network(1, 1000), fc)

	_, err := h.builder.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrTimeout)
	assert.Empty(t, h.ledger())
}

func TestRun_OnlyHead(t *testing.T) {
	blocks := linear("a", 1, 30, "genesis")
	fc := newFakeChain(blocks[:10]...)
	h := newHarness(t, network(1, 1000), fc, WithOnlyHead(true))
	h.seed(t, blocks[0])

	fc.setCanonical(blocks...)
	res, err := h.builder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeBootstrap, res.Mode)
	assert.Equal(t, []string{"a1", "a30"}, h.ledger())
}
