// Package tron implements the chain adapter for the TRON network.
package tron

import (
	"fmt"
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/emperorhan/custody-settlement/internal/chain/tron/rpc"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
)

const (
	NativeAsset    = "TRX"
	NativeDecimals = 6
	// DefaultMinConfirm matches the solidification depth of the network.
	DefaultMinConfirm = 19

	blockCacheSize = 256
)

func NewAdapter(network model.Network, pool *rpcpool.Pool, listed model.AssetSet, logger *slog.Logger) (*chain.Adapter, *rpc.Client, error) {
	if network.Chain != model.ChainTron {
		return nil, nil, fmt.Errorf("network %s: chain %q is not tron", network.Symbol, network.Chain)
	}
	client := rpc.NewClient(pool, logger)
	return NewAdapterWithClient(WithDefaults(network), client, listed, logger), client, nil
}

func NewAdapterWithClient(network model.Network, client Client, listed model.AssetSet, logger *slog.Logger) *chain.Adapter {
	return &chain.Adapter{
		Network:   network,
		Requester: chain.NewCachingRequester(NewRequester(client), blockCacheSize),
		Parser:    Parser{},
		Handlers: []chain.CoinHandler{
			NewTRXHandler(network.NativeAsset, network.NativeDecimals),
			NewTRC20Handler(network.Tokens, listed),
		},
		Inspector: NewInspector(client),
		Logger:    logger.With("component", "tron_adapter", "network", network.Symbol),
	}
}

func WithDefaults(network model.Network) model.Network {
	if network.NativeAsset == "" {
		network.NativeAsset = NativeAsset
	}
	if network.NativeDecimals == 0 {
		network.NativeDecimals = NativeDecimals
	}
	if network.MinConfirm == 0 {
		network.MinConfirm = DefaultMinConfirm
	}
	return network
}
