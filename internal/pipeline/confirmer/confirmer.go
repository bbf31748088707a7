// Package confirmer settles pending transfers once they are deep enough.
package confirmer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/ledger"
	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/emperorhan/custody-settlement/internal/notify"
	"github.com/emperorhan/custody-settlement/internal/store"
)

// Result counts what one confirmation pass did.
type Result struct {
	Done     int
	Canceled int
	// Waiting are withdrawals sent back to the populator because their
	// block is no longer canonical.
	Waiting int
}

type Confirmer struct {
	network   model.Network
	inspector chain.TransactionInspector
	store     store.Store
	notifier  notify.Notifier
	logger    *slog.Logger
}

func New(network model.Network, inspector chain.TransactionInspector, st store.Store, notifier notify.Notifier, logger *slog.Logger) *Confirmer {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Confirmer{
		network:   network,
		inspector: inspector,
		store:     st,
		notifier:  notifier,
		logger:    logger.With("component", "confirmer", "network", network.Symbol),
	}
}

type verdict int

const (
	verdictDone verdict = iota
	verdictCancel
	verdictUnlink
)

// Run settles every pending transfer at least MinConfirm blocks below head.
// A transfer becomes done only if its block is still in the ledger and the
// chain still reports the transaction as successful. An RPC failure aborts
// the pass; transfers already settled stay settled.
func (c *Confirmer) Run(ctx context.Context, head int64) (Result, error) {
	var res Result
	maxBlock := head - c.network.MinConfirm
	if maxBlock < 0 {
		return res, nil
	}

	candidates, err := c.store.Repos().Transfers.ListConfirmable(ctx, c.network.Symbol, maxBlock)
	if err != nil {
		return res, fmt.Errorf("list confirmable: %w", err)
	}

	for _, t := range candidates {
		if !t.ConfirmedAt(head, c.network.MinConfirm) {
			continue
		}
		v, err := c.judge(ctx, t)
		if err != nil {
			return res, err
		}
		switch v {
		case verdictDone:
			ok, err := c.complete(ctx, t)
			if err != nil {
				return res, err
			}
			if ok {
				res.Done++
			}
		case verdictCancel:
			ok, err := c.cancel(ctx, t)
			if err != nil {
				return res, err
			}
			if ok {
				res.Canceled++
			}
		case verdictUnlink:
			if err := c.store.Repos().Transfers.LinkBlock(ctx, t.ID, "", 0); err != nil {
				return res, fmt.Errorf("unlink %s: %w", t.ID, err)
			}
			c.logger.Info("withdrawal left canonical chain, waiting to relink", "transfer", t.ID, "tx", t.TxHash)
			res.Waiting++
		}
	}

	if res.Done+res.Canceled+res.Waiting > 0 {
		c.logger.Info("confirmation pass finished",
			"head", head,
			"done", res.Done,
			"canceled", res.Canceled,
			"waiting", res.Waiting,
		)
	}
	return res, nil
}

func (c *Confirmer) judge(ctx context.Context, t *model.Transfer) (verdict, error) {
	inLedger, err := c.store.Repos().Blocks.Exists(ctx, c.network.Symbol, t.BlockHash)
	if err != nil {
		return 0, fmt.Errorf("check block %s: %w", t.BlockHash, err)
	}

	status := chain.TxStatusNotFound
	if inLedger {
		status, err = c.inspector.TransactionStatus(ctx, t.TxHash)
		if err != nil {
			return 0, fmt.Errorf("re-query %s: %w", t.TxHash, err)
		}
	}

	if inLedger && status == chain.TxStatusSuccess {
		return verdictDone, nil
	}
	if t.Direction == model.DirectionWithdrawal && status != chain.TxStatusFailed {
		// Our own transaction may still be mined elsewhere; never cancel it
		// without a definite failure.
		return verdictUnlink, nil
	}
	c.logger.Warn("transfer failed re-validation",
		"transfer", t.ID,
		"tx", t.TxHash,
		"block", t.BlockNumber,
		"block_in_ledger", inLedger,
		"status", status,
	)
	return verdictCancel, nil
}

// complete moves t to done and applies it to the ledger in one unit of work.
// The status change is a compare-and-set, so a concurrent or repeated pass
// never applies a transfer twice.
func (c *Confirmer) complete(ctx context.Context, t *model.Transfer) (bool, error) {
	var changed bool
	err := c.store.WithTx(ctx, func(ctx context.Context, r store.Repos) error {
		var err error
		changed, err = r.Transfers.TransitionStatus(ctx, t.ID, model.StatusPending, model.StatusDone)
		if err != nil || !changed {
			return err
		}
		if t.IsFee {
			return nil
		}
		if err := r.Ledger.Apply(ctx, t); err != nil {
			if errors.Is(err, ledger.ErrAlreadyApplied) {
				c.logger.Error("ledger entry exists for pending transfer", "transfer", t.ID)
			}
			return fmt.Errorf("apply %s: %w", t.ID, err)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("complete %s: %w", t.ID, err)
	}
	if !changed {
		return false, nil
	}

	t.Status = model.StatusDone
	metrics.TransfersConfirmed.WithLabelValues(c.network.Symbol, string(t.Direction)).Inc()
	c.logger.Info("transfer done",
		"transfer", t.ID,
		"direction", t.Direction,
		"asset", t.Asset,
		"amount", t.Amount.String(),
		"block", t.BlockNumber,
	)
	c.notify(ctx, t)
	return true, nil
}

func (c *Confirmer) cancel(ctx context.Context, t *model.Transfer) (bool, error) {
	var changed bool
	err := c.store.WithTx(ctx, func(ctx context.Context, r store.Repos) error {
		var err error
		changed, err = r.Transfers.TransitionStatus(ctx, t.ID, model.StatusPending, model.StatusCanceled)
		if err != nil || !changed {
			return err
		}
		if t.Direction == model.DirectionWithdrawal && !t.IsFee {
			return r.Ledger.ReleaseLock(ctx, t.GroupID)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("cancel %s: %w", t.ID, err)
	}
	if !changed {
		return false, nil
	}

	t.Status = model.StatusCanceled
	metrics.TransfersCanceled.WithLabelValues(c.network.Symbol, string(t.Direction)).Inc()
	c.notify(ctx, t)
	return true, nil
}

func (c *Confirmer) notify(ctx context.Context, t *model.Transfer) {
	if t.IsFee {
		return
	}
	if err := c.notifier.Notify(ctx, t); err != nil {
		c.logger.Warn("transfer notification failed", "transfer", t.ID, "error", err)
	}
}
