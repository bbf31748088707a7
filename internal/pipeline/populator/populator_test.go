package populator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	locations map[string]*chain.TxLocation
	err       error
}

func (f *fakeInspector) TransactionStatus(context.Context, string) (chain.TxStatus, error) {
	return chain.TxStatusNotFound, nil
}

func (f *fakeInspector) LocateTransaction(_ context.Context, id string) (*chain.TxLocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.locations[id], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingWithdrawal(t *testing.T, st *memory.Store, tx string) *model.Transfer {
	t.Helper()
	tr := &model.Transfer{
		Network:      "ETH",
		Wallet:       model.Wallet{AccountID: 3, Asset: "ETH"},
		Amount:       decimal.NewFromInt(1),
		Direction:    model.DirectionWithdrawal,
		Status:       model.StatusPending,
		TxHash:       tx,
		Counterparty: "0xdest",
	}
	require.NoError(t, st.Repos().Transfers.Create(context.Background(), tr))
	return tr
}

func TestRun_LinksMinedWithdrawals(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	mined := pendingWithdrawal(t, st, "0xmined")
	waiting := pendingWithdrawal(t, st, "0xwaiting")
	insp := &fakeInspector{locations: map[string]*chain.TxLocation{
		"0xmined": {BlockHash: "0xblock", BlockNumber: 77},
	}}

	n, err := New("ETH", insp, st, testLogger()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.Repos().Transfers.Get(ctx, mined.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xblock", got.BlockHash)
	assert.Equal(t, int64(77), got.BlockNumber)

	got, err = st.Repos().Transfers.Get(ctx, waiting.ID)
	require.NoError(t, err)
	assert.False(t, got.Linked())

	// linked withdrawals are not looked up again
	n, err = New("ETH", insp, st, testLogger()).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRun_StopsOnRPCFault(t *testing.T) {
	st := memory.New()
	pendingWithdrawal(t, st, "0x1")

	_, err := New("ETH", &fakeInspector{err: errors.New("http status 503")}, st, testLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0x1")
}
