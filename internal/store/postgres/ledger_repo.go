package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerRepo keeps wallet balances, locks and one entry per applied
// transfer in the settlement database.
type LedgerRepo struct {
	q querier
}

var _ ledger.Ledger = (*LedgerRepo)(nil)

func (r *LedgerRepo) ResolveWallet(ctx context.Context, accountID int64, asset string) (model.Wallet, error) {
	w := model.Wallet{AccountID: accountID, Asset: strings.ToUpper(asset)}
	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO ledger_wallets (account_id, asset) VALUES ($1, $2)
		ON CONFLICT (account_id, asset) DO NOTHING
	`, w.AccountID, w.Asset); err != nil {
		return model.Wallet{}, fmt.Errorf("resolve wallet %d/%s: %w", w.AccountID, w.Asset, err)
	}
	return w, nil
}

func (r *LedgerRepo) LockBalance(ctx context.Context, groupID uuid.UUID, w model.Wallet, amount decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE ledger_wallets SET locked = locked + $3, updated_at = now()
		WHERE account_id = $1 AND asset = $2 AND balance - locked >= $3
	`, w.AccountID, w.Asset, amount)
	if err != nil {
		return fmt.Errorf("lock balance %d/%s: %w", w.AccountID, w.Asset, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("wallet %d/%s: %w", w.AccountID, w.Asset, ledger.ErrInsufficientBalance)
	}

	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO balance_locks (group_id, account_id, asset, amount)
		VALUES ($1, $2, $3, $4)
	`, groupID, w.AccountID, w.Asset, amount); err != nil {
		return fmt.Errorf("insert balance lock %s: %w", groupID, err)
	}
	return nil
}

func (r *LedgerRepo) Apply(ctx context.Context, t *model.Transfer) error {
	delta := ledger.Delta(t)
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO ledger_entries (transfer_id, account_id, asset, delta)
		VALUES ($1, $2, $3, $4)
	`, t.ID, t.AccountID, t.Asset, delta)
	if isUniqueViolation(err, "ledger_entries_transfer_id_key") {
		return fmt.Errorf("transfer %s: %w", t.ID, ledger.ErrAlreadyApplied)
	}
	if err != nil {
		return fmt.Errorf("insert ledger entry %s: %w", t.ID, err)
	}

	if t.Direction == model.DirectionWithdrawal {
		if err := r.ReleaseLock(ctx, t.GroupID); err != nil {
			return err
		}
	}

	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO ledger_wallets (account_id, asset, balance) VALUES ($1, $2, $3)
		ON CONFLICT (account_id, asset)
		DO UPDATE SET balance = ledger_wallets.balance + EXCLUDED.balance, updated_at = now()
	`, t.AccountID, t.Asset, delta); err != nil {
		return fmt.Errorf("apply balance %d/%s: %w", t.AccountID, t.Asset, err)
	}
	return nil
}

func (r *LedgerRepo) ReleaseLock(ctx context.Context, groupID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `
		WITH released AS (
			UPDATE balance_locks SET released = true, released_at = now()
			WHERE group_id = $1 AND NOT released
			RETURNING account_id, asset, amount
		)
		UPDATE ledger_wallets w
		SET locked = w.locked - r.amount, updated_at = now()
		FROM released r
		WHERE w.account_id = r.account_id AND w.asset = r.asset
	`, groupID); err != nil {
		return fmt.Errorf("release lock %s: %w", groupID, err)
	}
	return nil
}
