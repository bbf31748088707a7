package arbitrum

import (
	"log/slog"
	"testing"

	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	n := WithDefaults(model.Network{Symbol: "X"})
	assert.Equal(t, model.ChainArbitrum, n.Chain)
	assert.Equal(t, NativeAsset, n.NativeAsset)
	assert.Equal(t, int32(18), n.NativeDecimals)
	assert.Equal(t, int64(MainnetChainID), n.ChainID)
	assert.Equal(t, int64(DefaultMinConfirm), n.MinConfirm)

	custom := WithDefaults(model.Network{Symbol: "X", MinConfirm: 3, ChainID: 1337})
	assert.Equal(t, int64(3), custom.MinConfirm)
	assert.Equal(t, int64(1337), custom.ChainID)
}

func TestNewAdapter(t *testing.T) {
	t.Parallel()

	pool, err := rpcpool.New(rpcpool.Config{Network: "X", Endpoints: []rpcpool.Endpoint{{URL: "https://arb.example.com"}}}, slog.Default())
	require.NoError(t, err)

	adapter, client, err := NewAdapter(model.Network{Symbol: "X"}, pool, nil, slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, model.ChainArbitrum, adapter.Network.Chain)
	assert.Equal(t, NativeAsset, adapter.Network.NativeAsset)
}
