package postgres

import (
	"context"
	"fmt"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/lib/pq"
)

type DepositAddressRepo struct {
	q querier
}

var _ store.DepositAddressRepository = (*DepositAddressRepo)(nil)

func (r *DepositAddressRepo) FindByAddresses(ctx context.Context, network string, addresses []string) ([]model.DepositAddress, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	candidates := make([]string, len(addresses))
	for i, a := range addresses {
		candidates[i] = model.CanonicalAddress(a)
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, network, address, account_id, created_at
		FROM deposit_addresses
		WHERE network = $1 AND address = ANY($2)
		ORDER BY address
	`, network, pq.Array(candidates))
	if err != nil {
		return nil, fmt.Errorf("find deposit addresses %s: %w", network, err)
	}
	defer rows.Close()

	var out []model.DepositAddress
	for rows.Next() {
		var d model.DepositAddress
		if err := rows.Scan(&d.ID, &d.Network, &d.Address, &d.AccountID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deposit address: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DepositAddressRepo) Create(ctx context.Context, addr *model.DepositAddress) error {
	addr.Address = model.CanonicalAddress(addr.Address)
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO deposit_addresses (network, address, account_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, addr.Network, addr.Address, addr.AccountID).Scan(&addr.ID, &addr.CreatedAt)
	if isUniqueViolation(err, "deposit_addresses_network_address_key") {
		return fmt.Errorf("%s/%s: %w", addr.Network, addr.Address, store.ErrDuplicateAddress)
	}
	if err != nil {
		return fmt.Errorf("insert deposit address: %w", err)
	}
	return nil
}
