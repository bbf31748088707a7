// Package transfercreator turns one decoded block into pending deposit
// transfers and appends it to the block ledger.
package transfercreator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/emperorhan/custody-settlement/internal/store"
)

// Decoder is the part of a chain adapter the creator needs.
type Decoder interface {
	Decode(block *chain.Block) ([]chain.Transaction, error)
}

type Creator struct {
	network string
	decoder Decoder
	store   store.Store
	logger  *slog.Logger
}

func New(network string, decoder Decoder, st store.Store, logger *slog.Logger) *Creator {
	return &Creator{
		network: network,
		decoder: decoder,
		store:   st,
		logger:  logger.With("component", "transfer_creator", "network", network),
	}
}

// Process records the deposits in block and the block itself in one unit of
// work, so a block is either fully applied or not at all. It returns the
// number of transfers created. A block already in the ledger fails with
// store.ErrDuplicateBlock.
func (c *Creator) Process(ctx context.Context, block *chain.Block) (int, error) {
	txs, err := c.decoder.Decode(block)
	if err != nil {
		return 0, err
	}

	var assets []string
	err = c.store.WithTx(ctx, func(ctx context.Context, r store.Repos) error {
		assets = assets[:0]
		deposits, err := c.match(ctx, r, txs)
		if err != nil {
			return err
		}
		for _, d := range deposits {
			wallet, err := r.Ledger.ResolveWallet(ctx, d.addr.AccountID, d.tx.Asset)
			if err != nil {
				return fmt.Errorf("resolve wallet for account %d: %w", d.addr.AccountID, err)
			}
			t := &model.Transfer{
				Network:        c.network,
				Wallet:         wallet,
				Amount:         d.tx.Amount,
				Direction:      model.DirectionDeposit,
				Status:         model.StatusPending,
				TxHash:         d.tx.ID,
				BlockHash:      block.ID,
				BlockNumber:    block.Number,
				DepositAddress: d.addr.Address,
				Counterparty:   d.tx.From,
			}
			if err := r.Transfers.Create(ctx, t); err != nil {
				return fmt.Errorf("create deposit %s: %w", d.tx.ID, err)
			}
			assets = append(assets, t.Asset)
		}
		return r.Blocks.Insert(ctx, &model.BlockRecord{
			Network:   c.network,
			Number:    block.Number,
			Hash:      block.ID,
			Timestamp: block.Timestamp,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("process block %d (%s): %w", block.Number, block.ID, err)
	}

	for _, asset := range assets {
		metrics.TransfersCreated.WithLabelValues(c.network, asset).Inc()
	}
	if len(assets) > 0 {
		c.logger.Info("deposits recorded", "block", block.Number, "count", len(assets))
	}
	return len(assets), nil
}

type deposit struct {
	tx   chain.Transaction
	addr model.DepositAddress
}

// match drops fee self-transfers and pairs the remaining transactions with
// the deposit addresses they pay into. Recipients are compared in canonical
// form, so a checksummed EVM recipient matches a lowercase registration.
func (c *Creator) match(ctx context.Context, r store.Repos, txs []chain.Transaction) ([]deposit, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}
	fees, err := r.Transfers.FeeTxHashes(ctx, c.network, ids)
	if err != nil {
		return nil, fmt.Errorf("load fee transactions: %w", err)
	}

	byRecipient := make(map[string][]chain.Transaction)
	seen := make(map[string]struct{})
	for _, tx := range txs {
		if _, ok := fees[tx.ID]; ok {
			c.logger.Debug("skipping fee transaction", "tx", tx.ID)
			continue
		}
		to := model.CanonicalAddress(tx.To)
		key := tx.ID + "|" + to + "|" + tx.Asset
		if _, dup := seen[key]; dup {
			c.logger.Warn("transaction matched by more than one handler", "tx", tx.ID)
			continue
		}
		seen[key] = struct{}{}
		byRecipient[to] = append(byRecipient[to], tx)
	}
	if len(byRecipient) == 0 {
		return nil, nil
	}

	recipients := make([]string, 0, len(byRecipient))
	for addr := range byRecipient {
		recipients = append(recipients, addr)
	}
	addrs, err := r.DepositAddresses.FindByAddresses(ctx, c.network, recipients)
	if err != nil {
		return nil, fmt.Errorf("find deposit addresses: %w", err)
	}

	var out []deposit
	for _, a := range addrs {
		for _, tx := range byRecipient[model.CanonicalAddress(a.Address)] {
			out = append(out, deposit{tx: tx, addr: a})
		}
	}
	return out, nil
}
