// Package memory is an in-process Store used by tests and local runs
// without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/ledger"
	"github.com/emperorhan/custody-settlement/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type balance struct {
	total  decimal.Decimal
	locked decimal.Decimal
}

type lock struct {
	wallet   model.Wallet
	amount   decimal.Decimal
	released bool
}

type state struct {
	blocks     map[string]map[int64]model.BlockRecord
	transfers  map[uuid.UUID]model.Transfer
	addresses  map[string]map[string]model.DepositAddress
	nextAddrID int64
	balances   map[model.Wallet]balance
	locks      map[uuid.UUID]lock
	applied    map[uuid.UUID]struct{}
}

func newState() *state {
	return &state{
		blocks:    make(map[string]map[int64]model.BlockRecord),
		transfers: make(map[uuid.UUID]model.Transfer),
		addresses: make(map[string]map[string]model.DepositAddress),
		balances:  make(map[model.Wallet]balance),
		locks:     make(map[uuid.UUID]lock),
		applied:   make(map[uuid.UUID]struct{}),
	}
}

func (s *state) clone() *state {
	c := newState()
	for network, blocks := range s.blocks {
		m := make(map[int64]model.BlockRecord, len(blocks))
		for n, b := range blocks {
			m[n] = b
		}
		c.blocks[network] = m
	}
	for id, t := range s.transfers {
		c.transfers[id] = t
	}
	for network, addrs := range s.addresses {
		m := make(map[string]model.DepositAddress, len(addrs))
		for a, d := range addrs {
			m[a] = d
		}
		c.addresses[network] = m
	}
	c.nextAddrID = s.nextAddrID
	for w, b := range s.balances {
		c.balances[w] = b
	}
	for id, l := range s.locks {
		c.locks[id] = l
	}
	for id := range s.applied {
		c.applied[id] = struct{}{}
	}
	return c
}

// Store keeps all state in maps. WithTx serializes units of work and
// restores a snapshot when one fails.
type Store struct {
	txMu sync.Mutex

	mu    sync.Mutex
	state *state
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{state: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Repos() store.Repos {
	return store.Repos{
		Blocks:           blockRepo{s},
		Transfers:        transferRepo{s},
		DepositAddresses: addressRepo{s},
		Ledger:           ledgerRepo{s},
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r store.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(ctx, s.Repos()); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) locked(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Balance returns the total and locked amounts of a wallet.
func (s *Store) Balance(w model.Wallet) (total, locked decimal.Decimal) {
	s.locked(func(st *state) {
		b := st.balances[w]
		total, locked = b.total, b.locked
	})
	return total, locked
}

// Applied reports whether a transfer has a ledger entry.
func (s *Store) Applied(id uuid.UUID) bool {
	var ok bool
	s.locked(func(st *state) { _, ok = st.applied[id] })
	return ok
}

// Credit adds funds to a wallet outside of any transfer, for seeding.
func (s *Store) Credit(w model.Wallet, amount decimal.Decimal) {
	s.locked(func(st *state) {
		b := st.balances[w]
		b.total = b.total.Add(amount)
		st.balances[w] = b
	})
}

// Transfers returns every transfer of a network in creation order.
func (s *Store) Transfers(network string) []model.Transfer {
	var out []model.Transfer
	s.locked(func(st *state) {
		for _, t := range st.transfers {
			if t.Network == network {
				out = append(out, t)
			}
		}
	})
	sortTransfers(out)
	return out
}

// Blocks returns the recorded blocks of a network in height order.
func (s *Store) Blocks(network string) []model.BlockRecord {
	var out []model.BlockRecord
	s.locked(func(st *state) {
		for _, b := range st.blocks[network] {
			out = append(out, b)
		}
	})
	sortBlocks(out)
	return out
}

var _ ledger.Ledger = ledgerRepo{}
