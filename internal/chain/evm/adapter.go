// Package evm implements the chain adapter for Ethereum-compatible networks.
package evm

import (
	"fmt"
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/evm/rpc"
	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
)

const blockCacheSize = 512

// NewAdapter wires requester, parser, native and token handlers and the
// receipt inspector for one EVM network.
func NewAdapter(network model.Network, pool *rpcpool.Pool, listed model.AssetSet, logger *slog.Logger) (*chain.Adapter, *rpc.Client, error) {
	if network.Chain.Kind() != model.ChainKindEVM {
		return nil, nil, fmt.Errorf("network %s: chain %q is not an EVM chain", network.Symbol, network.Chain)
	}
	client := rpc.NewClient(pool, logger)
	return NewAdapterWithClient(network, client, listed, logger), client, nil
}

// NewAdapterWithClient builds the adapter around an existing client.
func NewAdapterWithClient(network model.Network, client Client, listed model.AssetSet, logger *slog.Logger) *chain.Adapter {
	return &chain.Adapter{
		Network:   network,
		Requester: chain.NewCachingRequester(NewRequester(client), blockCacheSize),
		Parser:    Parser{},
		Handlers: []chain.CoinHandler{
			NewNativeHandler(network.NativeAsset, network.NativeDecimals),
			NewTokenHandler(network.Tokens, listed),
		},
		Inspector: NewInspector(client),
		Logger:    logger.With("component", "evm_adapter", "network", network.Symbol),
	}
}
