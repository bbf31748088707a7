package bsc

import (
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/evm"
	"github.com/emperorhan/custody-settlement/internal/chain/evm/rpc"
	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
)

const (
	NativeAsset       = "BNB"
	MainnetChainID    = 56
	DefaultMinConfirm = 15
)

// NewAdapter creates an EVM adapter configured for BNB Smart Chain, filling in
// chain defaults the network registry left empty.
func NewAdapter(network model.Network, pool *rpcpool.Pool, listed model.AssetSet, logger *slog.Logger) (*chain.Adapter, *rpc.Client, error) {
	return evm.NewAdapter(WithDefaults(network), pool, listed, logger)
}

func WithDefaults(network model.Network) model.Network {
	network.Chain = model.ChainBSC
	if network.NativeAsset == "" {
		network.NativeAsset = NativeAsset
	}
	if network.NativeDecimals == 0 {
		network.NativeDecimals = 18
	}
	if network.ChainID == 0 {
		network.ChainID = MainnetChainID
	}
	if network.MinConfirm == 0 {
		network.MinConfirm = DefaultMinConfirm
	}
	return network
}
