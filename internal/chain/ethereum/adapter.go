package ethereum

import (
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/evm"
	"github.com/emperorhan/custody-settlement/internal/chain/evm/rpc"
	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
)

const (
	NativeAsset       = "ETH"
	MainnetChainID    = 1
	DefaultMinConfirm = 12
)

// NewAdapter creates an EVM adapter configured for Ethereum mainnet, filling in
// chain defaults the network registry left empty.
func NewAdapter(network model.Network, pool *rpcpool.Pool, listed model.AssetSet, logger *slog.Logger) (*chain.Adapter, *rpc.Client, error) {
	return evm.NewAdapter(WithDefaults(network), pool, listed, logger)
}

func WithDefaults(network model.Network) model.Network {
	network.Chain = model.ChainEthereum
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
