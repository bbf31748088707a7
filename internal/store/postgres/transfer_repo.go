package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type TransferRepo struct {
	q querier
}

var _ store.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id, group_id, network, account_id, asset, amount, direction, status,
	tx_hash, block_hash, block_number, deposit_address, counterparty, is_fee,
	broadcast_attempts, last_error, created_at, updated_at`

func scanTransfer(row interface{ Scan(...interface{}) error }) (*model.Transfer, error) {
	var t model.Transfer
	err := row.Scan(
		&t.ID, &t.GroupID, &t.Network, &t.AccountID, &t.Asset, &t.Amount, &t.Direction, &t.Status,
		&t.TxHash, &t.BlockHash, &t.BlockNumber, &t.DepositAddress, &t.Counterparty, &t.IsFee,
		&t.BroadcastAttempts, &t.LastError, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransferRepo) list(ctx context.Context, what, query string, args ...interface{}) ([]*model.Transfer, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	var out []*model.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", what, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return out, nil
}

func (r *TransferRepo) Create(ctx context.Context, t *model.Transfer) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.GroupID == uuid.Nil {
		t.GroupID = uuid.New()
	}
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO transfers (
			id, group_id, network, account_id, asset, amount, direction, status,
			tx_hash, block_hash, block_number, deposit_address, counterparty, is_fee
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`, t.ID, t.GroupID, t.Network, t.AccountID, t.Asset, t.Amount, t.Direction, t.Status,
		t.TxHash, t.BlockHash, t.BlockNumber, t.DepositAddress, t.Counterparty, t.IsFee,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if isUniqueViolation(err, "transfers_live_tx_key") {
		return fmt.Errorf("transfer %s/%s: %w", t.Network, t.TxHash, store.ErrDuplicateTransfer)
	}
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (r *TransferRepo) Get(ctx context.Context, id uuid.UUID) (*model.Transfer, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = $1`, id)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transfer %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transfer %s: %w", id, err)
	}
	return t, nil
}

func (r *TransferRepo) FeeTxHashes(ctx context.Context, network string, hashes []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(hashes) == 0 {
		return out, nil
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT DISTINCT tx_hash
		FROM transfers
		WHERE network = $1 AND is_fee AND tx_hash = ANY($2)
	`, network, pq.Array(hashes))
	if err != nil {
		return nil, fmt.Errorf("fee tx hashes %s: %w", network, err)
	}
	defer rows.Close()

	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan fee tx hash: %w", err)
		}
		out[h] = struct{}{}
	}
	return out, rows.Err()
}

func (r *TransferRepo) ListConfirmable(ctx context.Context, network string, maxBlock int64) ([]*model.Transfer, error) {
	return r.list(ctx, "list confirmable", `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE network = $1 AND status = 'pending' AND block_hash <> '' AND block_number <= $2
		ORDER BY block_number, created_at
	`, network, maxBlock)
}

func (r *TransferRepo) ListUnlinked(ctx context.Context, network string) ([]*model.Transfer, error) {
	return r.list(ctx, "list unlinked", `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE network = $1 AND direction = 'withdrawal' AND status = 'pending'
		  AND tx_hash <> '' AND block_hash = ''
		ORDER BY created_at
	`, network)
}

func (r *TransferRepo) ListNotBroadcast(ctx context.Context, network string, maxAttempts int) ([]*model.Transfer, error) {
	return r.list(ctx, "list not broadcast", `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE network = $1 AND status = 'not_broadcast'
		  AND ($2 <= 0 OR broadcast_attempts < $2)
		ORDER BY created_at
	`, network, maxAttempts)
}

func (r *TransferRepo) HasPendingFee(ctx context.Context, network string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM transfers
			WHERE network = $1 AND is_fee AND status IN ('not_broadcast', 'pending')
		)
	`, network).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pending fee %s: %w", network, err)
	}
	return exists, nil
}

func (r *TransferRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.TransferStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("%s -> %s: %w", from, to, store.ErrInvalidTransition)
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE transfers SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("transition transfer %s: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transfers WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("transfer %s exists: %w", id, err)
	}
	if !exists {
		return false, fmt.Errorf("transfer %s: %w", id, store.ErrNotFound)
	}
	return false, nil
}

func (r *TransferRepo) RevertFromBlock(ctx context.Context, network string, number int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transfers SET status = 'reverted', updated_at = now()
		WHERE network = $1 AND direction = 'deposit' AND status = 'pending'
		  AND block_hash <> '' AND block_number >= $2
	`, network, number)
	if err != nil {
		return 0, fmt.Errorf("revert transfers %s from %d: %w", network, number, err)
	}
	return rowsAffected(res)
}

func (r *TransferRepo) UnlinkFromBlock(ctx context.Context, network string, number int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transfers SET block_hash = '', block_number = 0, updated_at = now()
		WHERE network = $1 AND direction = 'withdrawal' AND status = 'pending'
		  AND block_hash <> '' AND block_number >= $2
	`, network, number)
	if err != nil {
		return 0, fmt.Errorf("unlink transfers %s from %d: %w", network, number, err)
	}
	return rowsAffected(res)
}

func (r *TransferRepo) updateOne(ctx context.Context, id uuid.UUID, notFound error, query string, args ...interface{}) error {
	res, err := r.q.ExecContext(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update transfer %s: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transfer %s: %w", id, notFound)
	}
	return nil
}

func (r *TransferRepo) LinkBlock(ctx context.Context, id uuid.UUID, hash string, number int64) error {
	return r.updateOne(ctx, id, store.ErrNotFound, `
		UPDATE transfers SET block_hash = $2, block_number = $3, updated_at = now()
		WHERE id = $1
	`, hash, number)
}

func (r *TransferRepo) MarkBroadcast(ctx context.Context, id uuid.UUID, txHash string) error {
	return r.updateOne(ctx, id, store.ErrInvalidTransition, `
		UPDATE transfers SET status = 'pending', tx_hash = $2, updated_at = now()
		WHERE id = $1 AND status = 'not_broadcast'
	`, txHash)
}

func (r *TransferRepo) RecordBroadcastFailure(ctx context.Context, id uuid.UUID, reason string) error {
	return r.updateOne(ctx, id, store.ErrNotFound, `
		UPDATE transfers
		SET broadcast_attempts = broadcast_attempts + 1, last_error = $2, updated_at = now()
		WHERE id = $1
	`, reason)
}
