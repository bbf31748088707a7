package withdraw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emperorhan/custody-settlement/internal/alert"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/metrics"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/emperorhan/custody-settlement/internal/wallet"
	"github.com/shopspring/decimal"
)

// FeeHandler keeps the hot wallet's native balance above the network's fee
// reserve by topping it up from the fee wallet.
type FeeHandler struct {
	network model.Network
	creator TransactionCreator
	hot     wallet.Wallet
	// fee is nil when no fee wallet is configured; shortfalls then only
	// defer withdrawals.
	fee     wallet.Wallet
	store   store.Store
	alerter alert.Alerter
	logger  *slog.Logger
}

func NewFeeHandler(
	network model.Network,
	creator TransactionCreator,
	hot, fee wallet.Wallet,
	st store.Store,
	alerter alert.Alerter,
	logger *slog.Logger,
) *FeeHandler {
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	return &FeeHandler{
		network: network,
		creator: creator,
		hot:     hot,
		fee:     fee,
		store:   st,
		alerter: alerter,
		logger:  logger.With("component", "fee_handler", "network", network.Symbol),
	}
}

// Ensure returns nil when the hot wallet holds the fee reserve plus extra.
// Otherwise it starts a top-up, unless one is already in flight, and returns
// ErrFeeDeferred.
func (f *FeeHandler) Ensure(ctx context.Context, extra decimal.Decimal) error {
	balance, err := f.creator.NativeBalance(ctx, f.hot.Address())
	if err != nil {
		return fmt.Errorf("hot wallet balance: %w", err)
	}
	required := f.network.Fee.Reserve.Add(extra)
	if balance.GreaterThanOrEqual(required) {
		return nil
	}

	inFlight, err := f.store.Repos().Transfers.HasPendingFee(ctx, f.network.Symbol)
	if err != nil {
		return fmt.Errorf("check pending fee transfer: %w", err)
	}
	if inFlight {
		f.logger.Debug("fee top-up in flight, deferring", "balance", balance, "required", required)
		return ErrFeeDeferred
	}
	if f.fee == nil {
		f.logger.Warn("hot wallet below fee reserve and no fee wallet configured",
			"balance", balance, "required", required)
		return ErrFeeDeferred
	}

	topUp := decimal.Max(f.network.Fee.TopUp, required.Sub(balance))
	if err := f.topUp(ctx, topUp); err != nil {
		return err
	}
	f.logger.Info("hot wallet topped up", "amount", topUp, "balance", balance, "required", required)
	return ErrFeeDeferred
}

func (f *FeeHandler) topUp(ctx context.Context, amt decimal.Decimal) error {
	t := &model.Transfer{
		Network:      f.network.Symbol,
		Wallet:       model.Wallet{Asset: f.network.NativeAsset},
		Amount:       amt,
		Direction:    model.DirectionWithdrawal,
		Status:       model.StatusNotBroadcast,
		Counterparty: f.hot.Address(),
		IsFee:        true,
	}
	transfers := f.store.Repos().Transfers
	if err := transfers.Create(ctx, t); err != nil {
		return fmt.Errorf("record fee transfer: %w", err)
	}

	txHash, err := f.creator.Send(ctx, f.fee, Payment{
		TransferID: t.ID,
		To:         f.hot.Address(),
		Asset:      f.network.NativeAsset,
		Amount:     amt,
	})
	if err != nil {
		f.logger.Error("fee top-up failed", "transfer_id", t.ID, "error", err)
		metrics.WithdrawalFailures.WithLabelValues(f.network.Symbol, string(stageOf(err))).Inc()
		// A stuck not_broadcast fee transfer would block every later top-up.
		if recErr := transfers.RecordBroadcastFailure(ctx, t.ID, err.Error()); recErr != nil {
			f.logger.Warn("record fee failure", "transfer_id", t.ID, "error", recErr)
		}
		if _, cErr := transfers.TransitionStatus(ctx, t.ID, model.StatusNotBroadcast, model.StatusCanceled); cErr != nil {
			f.logger.Warn("cancel failed fee transfer", "transfer_id", t.ID, "error", cErr)
		}
		return err
	}
	if err := transfers.MarkBroadcast(ctx, t.ID, txHash); err != nil {
		return fmt.Errorf("record fee broadcast %s: %w", txHash, err)
	}

	metrics.FeeTopUps.WithLabelValues(f.network.Symbol).Inc()
	if err := f.alerter.Send(ctx, alert.Alert{
		Type:    alert.AlertTypeFeeTopUp,
		Network: f.network.Symbol,
		Title:   fmt.Sprintf("%s hot wallet fee top-up", f.network.Symbol),
		Message: fmt.Sprintf("sent %s %s from the fee wallet", amt, f.network.NativeAsset),
		Fields: map[string]string{
			"tx_hash":     txHash,
			"transfer_id": t.ID.String(),
		},
	}); err != nil {
		f.logger.Warn("send fee alert failed", "error", err)
	}
	return nil
}

func stageOf(err error) Stage {
	var tce *TransactionCreationError
	if errors.As(err, &tce) {
		return tce.Stage
	}
	return StageBuild
}
