package withdraw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/amount"
	"github.com/emperorhan/custody-settlement/internal/chain/tron"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/emperorhan/custody-settlement/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const DefaultMaxAttempts = 3

var ErrInvalidRequest = errors.New("invalid withdrawal request")

// Request asks to pay Amount of Asset from AccountID to the external
// address To.
type Request struct {
	Network   string
	AccountID int64
	Asset     string
	Amount    decimal.Decimal
	To        string
}

// Handler accepts withdrawal requests and broadcasts them for one network.
type Handler struct {
	network     model.Network
	creator     TransactionCreator
	hot         wallet.Wallet
	fees        *FeeHandler
	store       store.Store
	maxAttempts int
	alerter     alert.Alerter
	logger      *slog.Logger
}

type Option func(*Handler)

func WithAlerter(a alert.Alerter) Option {
	return func(h *Handler) { h.alerter = a }
}

// WithMaxAttempts bounds failed broadcasts per withdrawal. Exhausted
// withdrawals stay not_broadcast for an operator.
func WithMaxAttempts(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxAttempts = n
		}
	}
}

// WithFeeWallet enables automatic fee top-ups from w.
func WithFeeWallet(w wallet.Wallet) Option {
	return func(h *Handler) { h.fees.fee = w }
}

func NewHandler(
	network model.Network,
	creator TransactionCreator,
	hot wallet.Wallet,
	st store.Store,
	logger *slog.Logger,
	opts ...Option,
) *Handler {
	h := &Handler{
		network:     network,
		creator:     creator,
		hot:         hot,
		store:       st,
		maxAttempts: DefaultMaxAttempts,
		alerter:     &alert.NoopAlerter{},
		logger:      logger.With("component", "withdraw", "network", network.Symbol),
	}
	h.fees = NewFeeHandler(network, creator, hot, nil, st, nil, logger)
	for _, opt := range opts {
		opt(h)
	}
	h.fees.alerter = h.alerter
	return h
}

// Request records a not_broadcast withdrawal and locks its amount in one unit
// of work. The transfer is broadcast by a later Process.
//
// Request is the entry point for the exchange's withdrawal API, which runs
// outside this service and owns user authentication and limits. It calls
// Request with a Handler built for the target network; the settlement loop
// itself only calls Process.
func (h *Handler) Request(ctx context.Context, req Request) (*model.Transfer, error) {
	if err := h.validate(req); err != nil {
		return nil, err
	}

	t := &model.Transfer{
		Network:      h.network.Symbol,
		Amount:       req.Amount,
		Direction:    model.DirectionWithdrawal,
		Status:       model.StatusNotBroadcast,
		Counterparty: req.To,
	}
	err := h.store.WithTx(ctx, func(ctx context.Context, r store.Repos) error {
		w, err := r.Ledger.ResolveWallet(ctx, req.AccountID, strings.ToUpper(req.Asset))
		if err != nil {
			return fmt.Errorf("resolve wallet: %w", err)
		}
		t.Wallet = w
		if err := r.Transfers.Create(ctx, t); err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}
		if err := r.Ledger.LockBalance(ctx, t.GroupID, w, t.Amount); err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger.Info("withdrawal requested",
		"transfer_id", t.ID,
		"account_id", req.AccountID,
		"asset", t.Asset,
		"amount", t.Amount,
	)
	return t, nil
}

func (h *Handler) validate(req Request) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRequest}, args...)...)
	}
	if !strings.EqualFold(req.Network, h.network.Symbol) {
		return invalid("network %s is handled by %s", req.Network, h.network.Symbol)
	}
	if !req.Amount.IsPositive() {
		return invalid("amount must be positive")
	}
	decimals, ok := h.network.Decimals(req.Asset)
	if !ok {
		return invalid("asset %s is not carried by %s", req.Asset, h.network.Symbol)
	}
	if _, err := amount.NewNormalizer(decimals).FromDecimal(req.Amount); err != nil {
		return invalid("amount: %v", err)
	}
	switch h.network.Chain.Kind() {
	case model.ChainKindAccount:
		if !tron.ValidAddress(req.To) {
			return invalid("destination %q is not a tron address", req.To)
		}
	case model.ChainKindEVM:
		if !common.IsHexAddress(req.To) {
			return invalid("destination %q is not an evm address", req.To)
		}
	}
	return nil
}

// Process broadcasts every not_broadcast withdrawal whose asset the hot
// wallet can currently pay fees for. Failed broadcasts are recorded on the
// transfer and returned joined.
func (h *Handler) Process(ctx context.Context) error {
	queued, err := h.store.Repos().Transfers.ListNotBroadcast(ctx, h.network.Symbol, h.maxAttempts)
	if err != nil {
		return fmt.Errorf("list not broadcast: %w", err)
	}

	byAsset := make(map[string][]*model.Transfer)
	for _, t := range queued {
		if t.IsFee {
			continue
		}
		byAsset[t.Asset] = append(byAsset[t.Asset], t)
	}
	assets := make([]string, 0, len(byAsset))
	for a := range byAsset {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	var errs []error
	for _, asset := range assets {
		batch := byAsset[asset]
		extra := decimal.Zero
		if h.network.IsNative(asset) {
			for _, t := range batch {
				extra = extra.Add(t.Amount)
			}
		}
		if err := h.fees.Ensure(ctx, extra); err != nil {
			if errors.Is(err, ErrFeeDeferred) {
				h.logger.Info("withdrawals deferred for fees", "asset", asset, "count", len(batch))
				continue
			}
			errs = append(errs, fmt.Errorf("fee check for %s: %w", asset, err))
			continue
		}
		for _, t := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := h.broadcast(ctx, t); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) broadcast(ctx context.Context, t *model.Transfer) error {
	transfers := h.store.Repos().Transfers
	txHash, err := h.creator.Send(ctx, h.hot, Payment{
		TransferID: t.ID,
		To:         t.Counterparty,
		Asset:      t.Asset,
		Amount:     t.Amount,
	})
	if err != nil {
		attempts := t.BroadcastAttempts + 1
		metrics.WithdrawalFailures.WithLabelValues(h.network.Symbol, string(stageOf(err))).Inc()
		h.logger.Error("withdrawal broadcast failed",
			"transfer_id", t.ID,
			"attempt", attempts,
			"max_attempts", h.maxAttempts,
			"error", err,
		)
		if recErr := transfers.RecordBroadcastFailure(ctx, t.ID, err.Error()); recErr != nil {
			h.logger.Warn("record broadcast failure", "transfer_id", t.ID, "error", recErr)
		}
		h.sendAlert(ctx, alert.Alert{
			Type:    alert.AlertTypeBroadcastFailed,
			Network: h.network.Symbol,
			Title:   fmt.Sprintf("%s withdrawal broadcast failed", h.network.Symbol),
			Message: err.Error(),
			Fields: map[string]string{
				"transfer_id": t.ID.String(),
				"asset":       t.Asset,
				"amount":      t.Amount.String(),
				"attempt":     strconv.Itoa(attempts) + "/" + strconv.Itoa(h.maxAttempts),
			},
		})
		return err
	}

	if err := transfers.MarkBroadcast(ctx, t.ID, txHash); err != nil {
		// The transaction is on its way; only the record is missing.
		h.logger.Error("broadcast withdrawal not recorded", "transfer_id", t.ID, "tx_hash", txHash, "error", err)
		h.sendAlert(ctx, alert.Alert{
			Type:    alert.AlertTypeBroadcastFailed,
			Network: h.network.Symbol,
			Title:   fmt.Sprintf("%s withdrawal broadcast but not recorded", h.network.Symbol),
			Message: err.Error(),
			Fields:  map[string]string{"transfer_id": t.ID.String(), "tx_hash": txHash},
		})
		return fmt.Errorf("record broadcast of %s (%s): %w", t.ID, txHash, err)
	}

	metrics.WithdrawalsBroadcast.WithLabelValues(h.network.Symbol, t.Asset).Inc()
	h.logger.Info("withdrawal broadcast", "transfer_id", t.ID, "tx_hash", txHash, "asset", t.Asset, "amount", t.Amount)
	return nil
}

func (h *Handler) sendAlert(ctx context.Context, a alert.Alert) {
	if err := h.alerter.Send(ctx, a); err != nil {
		h.logger.Warn("send alert failed", "type", a.Type, "error", err)
	}
}
