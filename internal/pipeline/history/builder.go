// Package history walks a chain from the block ledger's tip to the current
// head, appending blocks and their deposits and rolling back forks.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/domain/event"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/emperorhan/custody-settlement/internal/pipeline/confirmer"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/emperorhan/custody-settlement/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

// ErrReorgTooDeep is returned when walking parents back from the head does
// not reach a recorded block within the walk limit.
var ErrReorgTooDeep = errors.New("no recorded ancestor within backward walk limit")

type Mode string

const (
	ModeSynced    Mode = "synced"
	ModeBootstrap Mode = "bootstrap"
	ModeForward   Mode = "forward"
	ModeBackward  Mode = "backward"
)

// BlockProcessor records one block and its deposits atomically.
type BlockProcessor interface {
	Process(ctx context.Context, block *chain.Block) (int, error)
}

type Reverter interface {
	FromNumber(ctx context.Context, number int64) (event.ReorgEvent, error)
}

type Confirmer interface {
	Run(ctx context.Context, head int64) (confirmer.Result, error)
}

// Result describes one Run.
type Result struct {
	Mode      Mode
	Head      int64
	Appended  int
	Deposits  int
	Reverted  int64
	Confirmed confirmer.Result
}

type Builder struct {
	network   model.Network
	requester chain.Requester
	processor BlockProcessor
	reverter  Reverter
	confirmer Confirmer
	store     store.Store
	alerter   alert.Alerter
	onlyHead  bool
	logger    *slog.Logger
}

type Option func(*Builder)

func WithAlerter(a alert.Alerter) Option {
	return func(b *Builder) { b.alerter = a }
}

// WithOnlyHead makes every run record just the current head, skipping any
// gap. It is meant for bringing a new network online.
func WithOnlyHead(on bool) Option {
	return func(b *Builder) { b.onlyHead = on }
}

func New(
	network model.Network,
	requester chain.Requester,
	processor BlockProcessor,
	reverter Reverter,
	confirmer Confirmer,
	st store.Store,
	logger *slog.Logger,
	opts ...Option,
) *Builder {
	b := &Builder{
		network:   network,
		requester: requester,
		processor: processor,
		reverter:  reverter,
		confirmer: confirmer,
		store:     st,
		logger:    logger.With("component", "history_builder", "network", network.Symbol),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Builder) threshold() int64 {
	return b.network.ForwardGap()
}

// Run brings the block ledger up to the chain head and then confirms
// pending transfers against it. A run at an already recorded head does
// nothing. Any error leaves the ledger at the last fully committed block.
func (b *Builder) Run(ctx context.Context) (Result, error) {
	ctx, span := tracing.Tracer("history").Start(ctx, "history.run",
		otelTrace.WithAttributes(attribute.String("network", b.network.Symbol)),
	)
	defer span.End()

	res, err := b.run(ctx)
	span.SetAttributes(
		attribute.String("mode", string(res.Mode)),
		attribute.Int64("head", res.Head),
		attribute.Int("appended", res.Appended),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (b *Builder) run(ctx context.Context) (Result, error) {
	var res Result

	head, err := b.requester.GetLatestBlock(ctx)
	if err != nil {
		return res, fmt.Errorf("get latest block: %w", err)
	}
	res.Head = head.Number
	metrics.ChainHead.WithLabelValues(b.network.Symbol).Set(float64(head.Number))

	blocks := b.store.Repos().Blocks
	known, err := blocks.Exists(ctx, b.network.Symbol, head.ID)
	if err != nil {
		return res, fmt.Errorf("check head %s: %w", head.ID, err)
	}
	if known {
		// Nothing to append. Confirming still runs so a pass cut short by
		// an RPC fault does not wait for the head to move.
		res.Mode = ModeSynced
		return b.confirm(ctx, head, res)
	}

	local, err := blocks.Latest(ctx, b.network.Symbol)
	if err != nil {
		return res, fmt.Errorf("latest recorded block: %w", err)
	}

	switch {
	case local == nil || b.onlyHead:
		res.Mode = ModeBootstrap
		err = b.add(ctx, head, &res)
	case head.Number-local.Number > b.threshold():
		res.Mode = ModeForward
		err = b.forward(ctx, local, head, &res)
	default:
		res.Mode = ModeBackward
		err = b.backward(ctx, head, &res)
	}
	if err != nil {
		return res, err
	}
	return b.confirm(ctx, head, res)
}

func (b *Builder) confirm(ctx context.Context, head *chain.Block, res Result) (Result, error) {
	var err error
	res.Confirmed, err = b.confirmer.Run(ctx, head.Number)
	if err != nil {
		return res, fmt.Errorf("confirm at %d: %w", head.Number, err)
	}

	b.logger.Debug("history run finished",
		"mode", res.Mode,
		"head", head.Number,
		"appended", res.Appended,
		"deposits", res.Deposits,
	)
	return res, nil
}

// forward appends blocks local+1 .. head-MinConfirm by number. Blocks that
// far behind the head are assumed final; a block whose parent is not the
// previous one is handed to the backward walk instead.
func (b *Builder) forward(ctx context.Context, local *model.BlockRecord, head *chain.Block, res *Result) error {
	to := head.Number - b.network.MinConfirm
	parent := local.Hash

	b.logger.Info("forward fulfill", "from", local.Number+1, "to", to, "head", head.Number)

	for n := local.Number + 1; n <= to; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		blk, err := b.requester.GetBlockByNumber(ctx, n)
		if err != nil {
			return fmt.Errorf("get block %d: %w", n, err)
		}
		if blk.ParentID != parent {
			b.logger.Warn("parent mismatch during forward fulfill",
				"number", n,
				"parent", blk.ParentID,
				"expected_parent", parent,
			)
			if err := b.backward(ctx, blk, res); err != nil {
				return err
			}
		} else if err := b.add(ctx, blk, res); err != nil {
			return err
		}
		parent = blk.ID
	}
	return nil
}

// backward collects tip and its ancestors until one whose parent is
// recorded, rolls the ledger back to that height and replays the collected
// blocks oldest first.
func (b *Builder) backward(ctx context.Context, tip *chain.Block, res *Result) error {
	limit := b.threshold()
	collected := []*chain.Block{tip}
	blocks := b.store.Repos().Blocks

	for {
		oldest := collected[len(collected)-1]
		known, err := blocks.Exists(ctx, b.network.Symbol, oldest.ParentID)
		if err != nil {
			return fmt.Errorf("check parent %s: %w", oldest.ParentID, err)
		}
		if known {
			break
		}
		if int64(len(collected)) >= limit || oldest.ParentID == "" {
			b.raiseTooDeep(ctx, tip, len(collected))
			return fmt.Errorf("walked %d blocks back from %d: %w", len(collected), tip.Number, ErrReorgTooDeep)
		}
		parent, err := b.requester.GetBlockByID(ctx, oldest.ParentID)
		if err != nil {
			return fmt.Errorf("get parent block %s: %w", oldest.ParentID, err)
		}
		collected = append(collected, parent)
	}

	fork := collected[len(collected)-1].Number
	ev, err := b.reverter.FromNumber(ctx, fork)
	if err != nil {
		return err
	}
	res.Reverted += ev.RevertedDeposits

	for i := len(collected) - 1; i >= 0; i-- {
		if err := b.add(ctx, collected[i], res); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) add(ctx context.Context, blk *chain.Block, res *Result) error {
	ctx, span := tracing.Tracer("history").Start(ctx, "history.add_block",
		otelTrace.WithAttributes(
			attribute.String("network", b.network.Symbol),
			attribute.Int64("number", blk.Number),
		),
	)
	defer span.End()

	n, err := b.processor.Process(ctx, blk)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	res.Appended++
	res.Deposits += n

	metrics.BlocksAppended.WithLabelValues(b.network.Symbol, string(res.Mode)).Inc()
	metrics.LedgerHeight.WithLabelValues(b.network.Symbol).Set(float64(blk.Number))
	b.logger.Info("block recorded", "number", blk.Number, "hash", blk.ID, "deposits", n)
	return nil
}

func (b *Builder) raiseTooDeep(ctx context.Context, tip *chain.Block, walked int) {
	b.logger.Error("no recorded ancestor found",
		"tip", tip.Number,
		"walked", walked,
		"limit", b.threshold(),
	)
	if b.alerter == nil {
		return
	}
	err := b.alerter.Send(ctx, alert.Alert{
		Type:    alert.AlertTypeReorgTooDeep,
		Network: b.network.Symbol,
		Title:   "Reorg deeper than walk limit",
		Message: fmt.Sprintf("Walked %d blocks back from #%d without reaching a recorded block", walked, tip.Number),
	})
	if err != nil {
		b.logger.Warn("failed to send alert", "error", err)
	}
}
