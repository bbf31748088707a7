// Package populator links broadcast withdrawals to the block that mined them.
package populator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/emperorhan/custody-settlement/internal/store"
)

type Populator struct {
	network   string
	inspector chain.TransactionInspector
	store     store.Store
	logger    *slog.Logger
}

func New(network string, inspector chain.TransactionInspector, st store.Store, logger *slog.Logger) *Populator {
	return &Populator{
		network:   network,
		inspector: inspector,
		store:     st,
		logger:    logger.With("component", "populator", "network", network),
	}
}

// Run back-fills block hash and number for pending withdrawals that have a
// transaction hash but no block yet. Unmined transactions are left for the
// next run. It returns the number of transfers linked.
func (p *Populator) Run(ctx context.Context) (int, error) {
	repos := p.store.Repos()
	unlinked, err := repos.Transfers.ListUnlinked(ctx, p.network)
	if err != nil {
		return 0, fmt.Errorf("list unlinked: %w", err)
	}

	linked := 0
	for _, t := range unlinked {
		loc, err := p.inspector.LocateTransaction(ctx, t.TxHash)
		if err != nil {
			return linked, fmt.Errorf("locate %s: %w", t.TxHash, err)
		}
		if loc == nil {
			continue
		}
		if err := repos.Transfers.LinkBlock(ctx, t.ID, loc.BlockHash, loc.BlockNumber); err != nil {
			return linked, fmt.Errorf("link %s: %w", t.ID, err)
		}
		p.logger.Debug("withdrawal linked", "transfer", t.ID, "tx", t.TxHash, "block", loc.BlockNumber)
		linked++
	}

	if linked > 0 {
		metrics.BlockInfoPopulated.WithLabelValues(p.network).Add(float64(linked))
		p.logger.Info("block info populated", "linked", linked, "waiting", len(unlinked)-linked)
	}
	return linked, nil
}
