package tron

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeClient struct {
	now   string
	byID  map[string]string
	byNum map[int64]string
	txs   map[string]string
	infos map[string]string
	err   error
	calls int
}

func (f *fakeClient) doc(s string) (gjson.Result, error) {
	f.calls++
	if f.err != nil {
		return gjson.Result{}, f.err
	}
	if s == "" {
		s = "{}"
	}
	return gjson.Parse(s), nil
}

func (f *fakeClient) GetNowBlock(context.Context) (gjson.Result, error) {
	return f.doc(f.now)
}

func (f *fakeClient) GetBlockByID(_ context.Context, id string) (gjson.Result, error) {
	return f.doc(f.byID[id])
}

func (f *fakeClient) GetBlockByNum(_ context.Context, n int64) (gjson.Result, error) {
	return f.doc(f.byNum[n])
}

func (f *fakeClient) GetTransactionByID(_ context.Context, id string) (gjson.Result, error) {
	return f.doc(f.txs[id])
}

func (f *fakeClient) GetTransactionInfoByID(_ context.Context, id string) (gjson.Result, error) {
	return f.doc(f.infos[id])
}

const block100 = `{"blockID":"0000000000000064aa","block_header":{"raw_data":{"number":100,"parentHash":"0000000000000063bb","timestamp":1700000000000}},"transactions":[{"txID":"t1"},{"nope":1}]}`

func TestRequester(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		now:   block100,
		byID:  map[string]string{"0000000000000064aa": block100},
		byNum: map[int64]string{100: block100},
	}
	r := NewRequester(client)
	ctx := context.Background()

	latest, err := r.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0000000000000064aa", latest.ID)
	assert.Equal(t, int64(100), latest.Number)
	assert.Equal(t, "0000000000000063bb", latest.ParentID)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), latest.Timestamp)

	byID, err := r.GetBlockByID(ctx, "0000000000000064aa")
	require.NoError(t, err)
	assert.Equal(t, latest.Number, byID.Number)

	byNum, err := r.GetBlockByNumber(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, byNum.ID)

	_, err = r.GetBlockByID(ctx, "missing")
	assert.ErrorIs(t, err, chain.ErrBlockNotFound)
	_, err = r.GetBlockByNumber(ctx, 101)
	assert.ErrorIs(t, err, chain.ErrBlockNotFound)

	raws, err := Parser{}.ListOfRawTransactions(latest)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "t1", raws[0].ID)
}

func TestRequester_HeaderlessBlockIsMalformed(t *testing.T) {
	t.Parallel()

	r := NewRequester(&fakeClient{now: `{"blockID":"aa"}`})
	_, err := r.GetLatestBlock(context.Background())
	assert.ErrorIs(t, err, chain.ErrMalformed)
}

func TestRequester_PropagatesClientError(t *testing.T) {
	t.Parallel()

	boom := &chain.FaultError{Network: "TRX", Method: "wallet/getnowblock", Timeout: true, Err: errors.New("deadline")}
	r := NewRequester(&fakeClient{err: boom})
	_, err := r.GetLatestBlock(context.Background())
	assert.ErrorIs(t, err, chain.ErrTimeout)
}

func TestParser_RejectsForeignPayload(t *testing.T) {
	t.Parallel()

	_, err := Parser{}.ListOfRawTransactions(&chain.Block{Payload: 42})
	assert.Error(t, err)
}

func TestInspector_TransactionStatus(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		infos: map[string]string{
			"ok":       `{"id":"ok","blockNumber":100}`,
			"token":    `{"id":"token","blockNumber":100,"receipt":{"result":"SUCCESS"}}`,
			"reverted": `{"id":"reverted","blockNumber":100,"receipt":{"result":"REVERT"}}`,
			"failed":   `{"id":"failed","blockNumber":100,"result":"FAILED"}`,
			"oddret":   `{"id":"oddret","blockNumber":100}`,
		},
		txs: map[string]string{
			"ok":     `{"txID":"ok","ret":[{"contractRet":"SUCCESS"}]}`,
			"token":  `{"txID":"token","ret":[{"contractRet":"SUCCESS"}]}`,
			"oddret": `{"txID":"oddret","ret":[{"contractRet":"OUT_OF_ENERGY"}]}`,
		},
	}
	insp := NewInspector(client)
	ctx := context.Background()

	for id, want := range map[string]chain.TxStatus{
		"ok":       chain.TxStatusSuccess,
		"token":    chain.TxStatusSuccess,
		"reverted": chain.TxStatusFailed,
		"failed":   chain.TxStatusFailed,
		"oddret":   chain.TxStatusFailed,
		"unknown":  chain.TxStatusNotFound,
	} {
		got, err := insp.TransactionStatus(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, want, got, id)
	}
}

func TestInspector_LocateTransaction(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		infos: map[string]string{
			"mined":    `{"id":"mined","blockNumber":100}`,
			"orphaned": `{"id":"orphaned","blockNumber":200}`,
		},
		byNum: map[int64]string{100: block100},
	}
	insp := NewInspector(client)
	ctx := context.Background()

	loc, err := insp.LocateTransaction(ctx, "mined")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, "0000000000000064aa", loc.BlockHash)
	assert.Equal(t, int64(100), loc.BlockNumber)

	loc, err = insp.LocateTransaction(ctx, "pending")
	require.NoError(t, err)
	assert.Nil(t, loc)

	_, err = insp.LocateTransaction(ctx, "orphaned")
	assert.ErrorIs(t, err, chain.ErrBlockNotFound)
}

func TestNewAdapter(t *testing.T) {
	t.Parallel()

	pool, err := rpcpool.New(rpcpool.Config{Network: "TRX", Endpoints: []rpcpool.Endpoint{{URL: "https://api.trongrid.io"}}}, slog.Default())
	require.NoError(t, err)

	adapter, client, err := NewAdapter(model.Network{Symbol: "TRX", Chain: model.ChainTron}, pool, nil, slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, "TRX", adapter.Network.NativeAsset)
	assert.Equal(t, int32(6), adapter.Network.NativeDecimals)
	assert.Equal(t, int64(DefaultMinConfirm), adapter.Network.MinConfirm)

	_, _, err = NewAdapter(model.Network{Symbol: "BSC", Chain: model.ChainBSC}, pool, nil, slog.Default())
	assert.Error(t, err)
}
