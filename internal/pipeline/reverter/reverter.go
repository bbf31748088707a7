// Package reverter rolls the block ledger back to a fork point.
package reverter

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/domain/event"
	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/emperorhan/custody-settlement/internal/store"
)

type Reverter struct {
	network string
	store   store.Store
	alerter alert.Alerter
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Reverter)

func WithAlerter(a alert.Alerter) Option {
	return func(r *Reverter) { r.alerter = a }
}

func New(network string, st store.Store, logger *slog.Logger, opts ...Option) *Reverter {
	r := &Reverter{
		network: network,
		store:   st,
		now:     time.Now,
		logger:  logger.With("component", "reverter", "network", network),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FromNumber deletes ledger blocks at or above number. Pending deposits in
// those blocks become reverted and pending withdrawals lose their block
// linkage. Transfer rows are never deleted.
func (r *Reverter) FromNumber(ctx context.Context, number int64) (event.ReorgEvent, error) {
	ev := event.ReorgEvent{Network: r.network, ForkNumber: number}

	err := r.store.WithTx(ctx, func(ctx context.Context, repos store.Repos) error {
		var err error
		if ev.RemovedBlocks, err = repos.Blocks.DeleteFromNumber(ctx, r.network, number); err != nil {
			return fmt.Errorf("delete blocks: %w", err)
		}
		if ev.RevertedDeposits, err = repos.Transfers.RevertFromBlock(ctx, r.network, number); err != nil {
			return fmt.Errorf("revert deposits: %w", err)
		}
		if ev.UnlinkedWithdrawals, err = repos.Transfers.UnlinkFromBlock(ctx, r.network, number); err != nil {
			return fmt.Errorf("unlink withdrawals: %w", err)
		}
		return nil
	})
	if err != nil {
		return ev, fmt.Errorf("revert from block %d: %w", number, err)
	}
	ev.DetectedAt = r.now()

	if ev.RemovedBlocks == 0 {
		return ev, nil
	}

	metrics.ReorgsTotal.WithLabelValues(r.network).Inc()
	metrics.ReorgDepth.WithLabelValues(r.network).Observe(float64(ev.RemovedBlocks))
	metrics.TransfersReverted.WithLabelValues(r.network).Add(float64(ev.RevertedDeposits))

	r.logger.Warn("fork rolled back",
		"fork_number", number,
		"removed_blocks", ev.RemovedBlocks,
		"reverted_deposits", ev.RevertedDeposits,
		"unlinked_withdrawals", ev.UnlinkedWithdrawals,
	)

	if r.alerter != nil {
		sendErr := r.alerter.Send(ctx, alert.Alert{
			Type:    alert.AlertTypeReorg,
			Network: r.network,
			Title:   "Chain reorganization",
			Message: fmt.Sprintf("Rolled back %d blocks from #%d", ev.RemovedBlocks, number),
			Fields: map[string]string{
				"reverted_deposits":    strconv.FormatInt(ev.RevertedDeposits, 10),
				"unlinked_withdrawals": strconv.FormatInt(ev.UnlinkedWithdrawals, 10),
			},
		})
		if sendErr != nil {
			r.logger.Warn("failed to send reorg alert", "error", sendErr)
		}
	}
	return ev, nil
}
