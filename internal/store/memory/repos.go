package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/ledger"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sortBlocks(bs []model.BlockRecord) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].Number < bs[j].Number })
}

func sortTransfers(ts []model.Transfer) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.Before(ts[j].CreatedAt)
		}
		return ts[i].ID.String() < ts[j].ID.String()
	})
}

func collect(st *state, keep func(t *model.Transfer) bool) []*model.Transfer {
	var out []model.Transfer
	for _, t := range st.transfers {
		t := t
		if keep(&t) {
			out = append(out, t)
		}
	}
	sortTransfers(out)
	ptrs := make([]*model.Transfer, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	return ptrs
}

type blockRepo struct{ s *Store }

func (r blockRepo) Latest(_ context.Context, network string) (*model.BlockRecord, error) {
	var out *model.BlockRecord
	r.s.locked(func(st *state) {
		for _, b := range st.blocks[network] {
			if out == nil || b.Number > out.Number {
				b := b
				out = &b
			}
		}
	})
	return out, nil
}

func (r blockRepo) Exists(_ context.Context, network, hash string) (bool, error) {
	var ok bool
	r.s.locked(func(st *state) {
		for _, b := range st.blocks[network] {
			if b.Hash == hash {
				ok = true
				return
			}
		}
	})
	return ok, nil
}

func (r blockRepo) Get(_ context.Context, network string, number int64) (*model.BlockRecord, error) {
	var out *model.BlockRecord
	r.s.locked(func(st *state) {
		if b, ok := st.blocks[network][number]; ok {
			out = &b
		}
	})
	if out == nil {
		return nil, fmt.Errorf("block %s/%d: %w", network, number, store.ErrNotFound)
	}
	return out, nil
}

func (r blockRepo) Insert(_ context.Context, block *model.BlockRecord) error {
	var err error
	r.s.locked(func(st *state) {
		blocks := st.blocks[block.Network]
		if blocks == nil {
			blocks = make(map[int64]model.BlockRecord)
			st.blocks[block.Network] = blocks
		}
		if _, ok := blocks[block.Number]; ok {
			err = fmt.Errorf("block %s/%d: %w", block.Network, block.Number, store.ErrDuplicateBlock)
			return
		}
		for _, b := range blocks {
			if b.Hash == block.Hash {
				err = fmt.Errorf("block hash %s: %w", block.Hash, store.ErrDuplicateBlock)
				return
			}
		}
		rec := *block
		rec.CreatedAt = r.s.now()
		blocks[block.Number] = rec
	})
	return err
}

func (r blockRepo) DeleteFromNumber(_ context.Context, network string, number int64) (int64, error) {
	var n int64
	r.s.locked(func(st *state) {
		for num := range st.blocks[network] {
			if num >= number {
				delete(st.blocks[network], num)
				n++
			}
		}
	})
	return n, nil
}

type transferRepo struct{ s *Store }

func (r transferRepo) Create(_ context.Context, t *model.Transfer) error {
	var err error
	r.s.locked(func(st *state) {
		if t.TxHash != "" {
			for _, o := range st.transfers {
				if o.Network == t.Network && o.TxHash == t.TxHash &&
					o.DepositAddress == t.DepositAddress && o.Status != model.StatusReverted {
					err = fmt.Errorf("transfer %s/%s: %w", t.Network, t.TxHash, store.ErrDuplicateTransfer)
					return
				}
			}
		}
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if t.GroupID == uuid.Nil {
			t.GroupID = uuid.New()
		}
		now := r.s.now()
		t.CreatedAt, t.UpdatedAt = now, now
		st.transfers[t.ID] = *t
	})
	return err
}

func (r transferRepo) Get(_ context.Context, id uuid.UUID) (*model.Transfer, error) {
	var out *model.Transfer
	r.s.locked(func(st *state) {
		if t, ok := st.transfers[id]; ok {
			out = &t
		}
	})
	if out == nil {
		return nil, fmt.Errorf("transfer %s: %w", id, store.ErrNotFound)
	}
	return out, nil
}

func (r transferRepo) FeeTxHashes(_ context.Context, network string, hashes []string) (map[string]struct{}, error) {
	want := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		want[h] = struct{}{}
	}
	out := make(map[string]struct{})
	r.s.locked(func(st *state) {
		for _, t := range st.transfers {
			if _, ok := want[t.TxHash]; ok && t.IsFee && t.Network == network {
				out[t.TxHash] = struct{}{}
			}
		}
	})
	return out, nil
}

func (r transferRepo) ListConfirmable(_ context.Context, network string, maxBlock int64) ([]*model.Transfer, error) {
	var out []*model.Transfer
	r.s.locked(func(st *state) {
		out = collect(st, func(t *model.Transfer) bool {
			return t.Network == network && t.Status == model.StatusPending &&
				t.Linked() && t.BlockNumber <= maxBlock
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].BlockNumber < out[j].BlockNumber })
	return out, nil
}

func (r transferRepo) ListUnlinked(_ context.Context, network string) ([]*model.Transfer, error) {
	var out []*model.Transfer
	r.s.locked(func(st *state) {
		out = collect(st, func(t *model.Transfer) bool {
			return t.Network == network && t.Direction == model.DirectionWithdrawal &&
				t.Status == model.StatusPending && t.TxHash != "" && !t.Linked()
		})
	})
	return out, nil
}

func (r transferRepo) ListNotBroadcast(_ context.Context, network string, maxAttempts int) ([]*model.Transfer, error) {
	var out []*model.Transfer
	r.s.locked(func(st *state) {
		out = collect(st, func(t *model.Transfer) bool {
			return t.Network == network && t.Status == model.StatusNotBroadcast &&
				(maxAttempts <= 0 || t.BroadcastAttempts < maxAttempts)
		})
	})
	return out, nil
}

func (r transferRepo) HasPendingFee(_ context.Context, network string) (bool, error) {
	var ok bool
	r.s.locked(func(st *state) {
		for _, t := range st.transfers {
			if t.Network == network && t.IsFee &&
				(t.Status == model.StatusNotBroadcast || t.Status == model.StatusPending) {
				ok = true
				return
			}
		}
	})
	return ok, nil
}

func (r transferRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to model.TransferStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("%s -> %s: %w", from, to, store.ErrInvalidTransition)
	}
	var (
		changed bool
		err     error
	)
	r.s.locked(func(st *state) {
		t, ok := st.transfers[id]
		if !ok {
			err = fmt.Errorf("transfer %s: %w", id, store.ErrNotFound)
			return
		}
		if t.Status != from {
			return
		}
		t.Status = to
		t.UpdatedAt = r.s.now()
		st.transfers[id] = t
		changed = true
	})
	return changed, err
}

func (r transferRepo) update(network string, match func(t *model.Transfer) bool, apply func(t *model.Transfer)) int64 {
	var n int64
	r.s.locked(func(st *state) {
		for id, t := range st.transfers {
			if t.Network != network || !match(&t) {
				continue
			}
			apply(&t)
			t.UpdatedAt = r.s.now()
			st.transfers[id] = t
			n++
		}
	})
	return n
}

func (r transferRepo) RevertFromBlock(_ context.Context, network string, number int64) (int64, error) {
	return r.update(network, func(t *model.Transfer) bool {
		return t.Direction == model.DirectionDeposit && t.Status == model.StatusPending &&
			t.Linked() && t.BlockNumber >= number
	}, func(t *model.Transfer) {
		t.Status = model.StatusReverted
	}), nil
}

func (r transferRepo) UnlinkFromBlock(_ context.Context, network string, number int64) (int64, error) {
	return r.update(network, func(t *model.Transfer) bool {
		return t.Direction == model.DirectionWithdrawal && t.Status == model.StatusPending &&
			t.Linked() && t.BlockNumber >= number
	}, func(t *model.Transfer) {
		t.BlockHash, t.BlockNumber = "", 0
	}), nil
}

func (r transferRepo) mutate(id uuid.UUID, fn func(t *model.Transfer) error) error {
	var err error
	r.s.locked(func(st *state) {
		t, ok := st.transfers[id]
		if !ok {
			err = fmt.Errorf("transfer %s: %w", id, store.ErrNotFound)
			return
		}
		if err = fn(&t); err != nil {
			return
		}
		t.UpdatedAt = r.s.now()
		st.transfers[id] = t
	})
	return err
}

func (r transferRepo) LinkBlock(_ context.Context, id uuid.UUID, hash string, number int64) error {
	return r.mutate(id, func(t *model.Transfer) error {
		t.BlockHash, t.BlockNumber = hash, number
		return nil
	})
}

func (r transferRepo) MarkBroadcast(_ context.Context, id uuid.UUID, txHash string) error {
	return r.mutate(id, func(t *model.Transfer) error {
		if t.Status != model.StatusNotBroadcast {
			return fmt.Errorf("transfer %s is %s: %w", id, t.Status, store.ErrInvalidTransition)
		}
		t.Status = model.StatusPending
		t.TxHash = txHash
		return nil
	})
}

func (r transferRepo) RecordBroadcastFailure(_ context.Context, id uuid.UUID, reason string) error {
	return r.mutate(id, func(t *model.Transfer) error {
		t.BroadcastAttempts++
		t.LastError = reason
		return nil
	})
}

type addressRepo struct{ s *Store }

func (r addressRepo) FindByAddresses(_ context.Context, network string, addresses []string) ([]model.DepositAddress, error) {
	var out []model.DepositAddress
	r.s.locked(func(st *state) {
		seen := make(map[string]struct{}, len(addresses))
		for _, a := range addresses {
			a = model.CanonicalAddress(a)
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			if d, ok := st.addresses[network][a]; ok {
				out = append(out, d)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Address, out[j].Address) < 0 })
	return out, nil
}

func (r addressRepo) Create(_ context.Context, addr *model.DepositAddress) error {
	addr.Address = model.CanonicalAddress(addr.Address)
	var err error
	r.s.locked(func(st *state) {
		m := st.addresses[addr.Network]
		if m == nil {
			m = make(map[string]model.DepositAddress)
			st.addresses[addr.Network] = m
		}
		if _, ok := m[addr.Address]; ok {
			err = fmt.Errorf("%s/%s: %w", addr.Network, addr.Address, store.ErrDuplicateAddress)
			return
		}
		st.nextAddrID++
		addr.ID = st.nextAddrID
		addr.CreatedAt = r.s.now()
		m[addr.Address] = *addr
	})
	return err
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) ResolveWallet(_ context.Context, accountID int64, asset string) (model.Wallet, error) {
	w := model.Wallet{AccountID: accountID, Asset: strings.ToUpper(asset)}
	r.s.locked(func(st *state) {
		if _, ok := st.balances[w]; !ok {
			st.balances[w] = balance{}
		}
	})
	return w, nil
}

func (r ledgerRepo) LockBalance(_ context.Context, groupID uuid.UUID, w model.Wallet, amount decimal.Decimal) error {
	var err error
	r.s.locked(func(st *state) {
		if _, ok := st.locks[groupID]; ok {
			err = fmt.Errorf("lock %s already exists", groupID)
			return
		}
		b := st.balances[w]
		if b.total.Sub(b.locked).LessThan(amount) {
			err = fmt.Errorf("wallet %d/%s: %w", w.AccountID, w.Asset, ledger.ErrInsufficientBalance)
			return
		}
		b.locked = b.locked.Add(amount)
		st.balances[w] = b
		st.locks[groupID] = lock{wallet: w, amount: amount}
	})
	return err
}

func releaseLocked(st *state, groupID uuid.UUID) {
	l, ok := st.locks[groupID]
	if !ok || l.released {
		return
	}
	b := st.balances[l.wallet]
	b.locked = b.locked.Sub(l.amount)
	st.balances[l.wallet] = b
	l.released = true
	st.locks[groupID] = l
}

func (r ledgerRepo) Apply(_ context.Context, t *model.Transfer) error {
	var err error
	r.s.locked(func(st *state) {
		if _, ok := st.applied[t.ID]; ok {
			err = fmt.Errorf("transfer %s: %w", t.ID, ledger.ErrAlreadyApplied)
			return
		}
		if t.Direction == model.DirectionWithdrawal {
			releaseLocked(st, t.GroupID)
		}
		b := st.balances[t.Wallet]
		b.total = b.total.Add(ledger.Delta(t))
		st.balances[t.Wallet] = b
		st.applied[t.ID] = struct{}{}
	})
	return err
}

func (r ledgerRepo) ReleaseLock(_ context.Context, groupID uuid.UUID) error {
	r.s.locked(func(st *state) { releaseLocked(st, groupID) })
	return nil
}
