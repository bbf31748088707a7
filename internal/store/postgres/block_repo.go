package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/store"
)

type BlockRepo struct {
	q querier
}

var _ store.BlockRepository = (*BlockRepo)(nil)

const blockColumns = `network, number, hash, "timestamp", created_at`

func scanBlock(row interface{ Scan(...interface{}) error }) (*model.BlockRecord, error) {
	var b model.BlockRecord
	if err := row.Scan(&b.Network, &b.Number, &b.Hash, &b.Timestamp, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BlockRepo) Latest(ctx context.Context, network string) (*model.BlockRecord, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+blockColumns+`
		FROM block_records
		WHERE network = $1
		ORDER BY number DESC
		LIMIT 1
	`, network)
	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest block %s: %w", network, err)
	}
	return b, nil
}

func (r *BlockRepo) Exists(ctx context.Context, network, hash string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM block_records WHERE network = $1 AND hash = $2)`,
		network, hash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("block exists %s/%s: %w", network, hash, err)
	}
	return exists, nil
}

func (r *BlockRepo) Get(ctx context.Context, network string, number int64) (*model.BlockRecord, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+blockColumns+`
		FROM block_records
		WHERE network = $1 AND number = $2
	`, network, number)
	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("block %s/%d: %w", network, number, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get block %s/%d: %w", network, number, err)
	}
	return b, nil
}

func (r *BlockRepo) Insert(ctx context.Context, block *model.BlockRecord) error {
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO block_records (network, number, hash, "timestamp")
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, block.Network, block.Number, block.Hash, block.Timestamp).Scan(&block.CreatedAt)
	if isUniqueViolation(err, "") {
		return fmt.Errorf("block %s/%d: %w", block.Network, block.Number, store.ErrDuplicateBlock)
	}
	if err != nil {
		return fmt.Errorf("insert block %s/%d: %w", block.Network, block.Number, err)
	}
	return nil
}

func (r *BlockRepo) DeleteFromNumber(ctx context.Context, network string, number int64) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM block_records WHERE network = $1 AND number >= $2`,
		network, number,
	)
	if err != nil {
		return 0, fmt.Errorf("delete blocks %s from %d: %w", network, number, err)
	}
	return rowsAffected(res)
}
