package main

import (
	"fmt"
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/arbitrum"
	"github.com/emperorhan/custody-settlement/internal/chain/bsc"
	"github.com/emperorhan/custody-settlement/internal/chain/ethereum"
	"github.com/emperorhan/custody-settlement/internal/chain/polygon"
	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/emperorhan/custody-settlement/internal/chain/tron"
	"github.com/emperorhan/custody-settlement/internal/config"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/notify"
	"github.com/emperorhan/custody-settlement/internal/pipeline"
	"github.com/emperorhan/custody-settlement/internal/pipeline/confirmer"
	"github.com/emperorhan/custody-settlement/internal/pipeline/history"
	"github.com/emperorhan/custody-settlement/internal/pipeline/populator"
	"github.com/emperorhan/custody-settlement/internal/pipeline/reverter"
	"github.com/emperorhan/custody-settlement/internal/pipeline/transfercreator"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/emperorhan/custody-settlement/internal/wallet"
	"github.com/emperorhan/custody-settlement/internal/withdraw"
)

// sharedDeps are the collaborators every network's pipeline is built from.
type sharedDeps struct {
	store    store.Store
	lock     pipeline.RunLock
	notifier notify.Notifier
	alerter  alert.Alerter
	run      config.RunConfig
	logger   *slog.Logger
}

// newAdapter returns the chain adapter and the raw RPC client, which the
// withdrawal creator needs for building and broadcasting.
func newAdapter(network model.Network, pool *rpcpool.Pool, listed model.AssetSet, logger *slog.Logger) (*chain.Adapter, any, error) {
	switch network.Chain {
	case model.ChainTron:
		a, c, err := tron.NewAdapter(network, pool, listed, logger)
		return a, c, err
	case model.ChainEthereum:
		a, c, err := ethereum.NewAdapter(network, pool, listed, logger)
		return a, c, err
	case model.ChainBSC:
		a, c, err := bsc.NewAdapter(network, pool, listed, logger)
		return a, c, err
	case model.ChainPolygon:
		a, c, err := polygon.NewAdapter(network, pool, listed, logger)
		return a, c, err
	case model.ChainArbitrum:
		a, c, err := arbitrum.NewAdapter(network, pool, listed, logger)
		return a, c, err
	default:
		return nil, nil, fmt.Errorf("unsupported chain %q", network.Chain)
	}
}

func buildPipeline(nc config.NetworkConfig, deps sharedDeps) (*pipeline.Pipeline, error) {
	network, err := nc.Model()
	if err != nil {
		return nil, err
	}
	logger := deps.logger.With("network", network.Symbol, "chain", network.Chain)

	pool, err := rpcpool.New(nc.PoolConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("rpc pool: %w", err)
	}
	adapter, client, err := newAdapter(network, pool, nc.Listed(), logger)
	if err != nil {
		return nil, err
	}
	// The chain package fills in defaults such as min_confirm.
	network = adapter.Network
	if err := network.CheckDepth(); err != nil {
		return nil, fmt.Errorf("network %s: %w", network.Symbol, err)
	}

	rev := reverter.New(network.Symbol, deps.store, logger, reverter.WithAlerter(deps.alerter))
	conf := confirmer.New(network, adapter.Inspector, deps.store, deps.notifier, logger)
	creator := transfercreator.New(network.Symbol, adapter, deps.store, logger)
	builder := history.New(network, adapter.Requester, creator, rev, conf, deps.store, logger,
		history.WithAlerter(deps.alerter),
		history.WithOnlyHead(nc.OnlyHead),
	)
	pop := populator.New(network.Symbol, adapter.Inspector, deps.store, logger)

	opts := []pipeline.Option{
		pipeline.WithAlerter(deps.alerter),
		pipeline.WithEndpoints(pool),
	}
	if nc.Wallets.Hot.Empty() {
		logger.Info("no hot wallet configured, withdrawals disabled")
	} else {
		h, err := buildWithdrawHandler(network, nc, client, deps, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithWithdraw(h))
	}

	logger.Info("network configured",
		"min_confirm", network.MinConfirm,
		"forward_threshold", network.ForwardThreshold,
		"endpoints", len(nc.Endpoints),
		"tokens", len(network.Tokens),
		"only_head", nc.OnlyHead,
	)
	return pipeline.New(pipeline.Config{
		Network:            network,
		Interval:           deps.run.Interval(),
		RunTimeout:         deps.run.Timeout(),
		UnhealthyThreshold: deps.run.UnhealthyThreshold,
	}, deps.lock, builder, pop, logger, opts...), nil
}

func buildWithdrawHandler(
	network model.Network,
	nc config.NetworkConfig,
	client any,
	deps sharedDeps,
	logger *slog.Logger,
) (*withdraw.Handler, error) {
	hot, err := loadWallet(network, nc.Wallets.Hot)
	if err != nil {
		return nil, fmt.Errorf("hot wallet: %w", err)
	}
	creator, err := withdraw.NewCreator(network, client)
	if err != nil {
		return nil, err
	}
	opts := []withdraw.Option{
		withdraw.WithAlerter(deps.alerter),
		withdraw.WithMaxAttempts(nc.BroadcastAttempts()),
	}
	if !nc.Wallets.Fee.Empty() {
		fee, err := loadWallet(network, nc.Wallets.Fee)
		if err != nil {
			return nil, fmt.Errorf("fee wallet: %w", err)
		}
		opts = append(opts, withdraw.WithFeeWallet(fee))
	}
	logger.Info("withdrawals enabled", "hot_wallet", hot.Address(), "fee_wallet", !nc.Wallets.Fee.Empty())
	return withdraw.NewHandler(network, creator, hot, deps.store, logger, opts...), nil
}

func loadWallet(network model.Network, kc config.KeyConfig) (wallet.Wallet, error) {
	key, err := wallet.LoadKey(wallet.KeySource{
		PrivateKey: kc.PrivateKey,
		Mnemonic:   kc.Mnemonic,
		Path:       kc.Path,
	})
	if err != nil {
		return nil, err
	}
	return wallet.New(network, key)
}
