package store

import (
	"context"
	"errors"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/ledger"
	"github.com/google/uuid"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . Store,BlockRepository,TransferRepository,DepositAddressRepository

var (
	// ErrDuplicateBlock is returned when a block number is already recorded
	// for the network. Two hashes never coexist at one height.
	ErrDuplicateBlock = errors.New("block already recorded")
	// ErrDuplicateTransfer is returned when a live transfer already exists
	// for the (network, tx hash, deposit address) triple.
	ErrDuplicateTransfer = errors.New("transfer already recorded")
	ErrDuplicateAddress  = errors.New("deposit address already registered")
	ErrNotFound          = errors.New("not found")
	// ErrInvalidTransition is returned for a status change the transfer
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// BlockRepository is the block ledger: the per-network record of processed
// blocks and the resumption checkpoint.
type BlockRepository interface {
	// Latest returns the highest recorded block, or nil for an empty ledger.
	Latest(ctx context.Context, network string) (*model.BlockRecord, error)
	Exists(ctx context.Context, network, hash string) (bool, error)
	Get(ctx context.Context, network string, number int64) (*model.BlockRecord, error)
	Insert(ctx context.Context, block *model.BlockRecord) error
	// DeleteFromNumber removes every record at or above number.
	DeleteFromNumber(ctx context.Context, network string, number int64) (int64, error)
}

// TransferRepository stores deposits and withdrawals. Status changes go
// through TransitionStatus so that concurrent writers cannot both win.
type TransferRepository interface {
	Create(ctx context.Context, t *model.Transfer) error
	Get(ctx context.Context, id uuid.UUID) (*model.Transfer, error)

	// FeeTxHashes returns the subset of hashes recorded as fee transfers.
	FeeTxHashes(ctx context.Context, network string, hashes []string) (map[string]struct{}, error)
	// ListConfirmable returns pending, block-linked transfers at or below
	// maxBlock, oldest block first.
	ListConfirmable(ctx context.Context, network string, maxBlock int64) ([]*model.Transfer, error)
	// ListUnlinked returns pending withdrawals with a hash but no block.
	ListUnlinked(ctx context.Context, network string) ([]*model.Transfer, error)
	// ListNotBroadcast returns requested withdrawals with fewer than
	// maxAttempts failed broadcasts, oldest first.
	ListNotBroadcast(ctx context.Context, network string, maxAttempts int) ([]*model.Transfer, error)
	// HasPendingFee reports whether a fee top-up is still in flight.
	HasPendingFee(ctx context.Context, network string) (bool, error)

	// TransitionStatus moves a transfer from one status to another and
	// reports whether this call made the change.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.TransferStatus) (bool, error)
	// RevertFromBlock marks pending deposits at or above number reverted.
	RevertFromBlock(ctx context.Context, network string, number int64) (int64, error)
	// UnlinkFromBlock clears block linkage of pending withdrawals at or
	// above number; the populator relinks them once they are mined again.
	UnlinkFromBlock(ctx context.Context, network string, number int64) (int64, error)
	LinkBlock(ctx context.Context, id uuid.UUID, hash string, number int64) error
	// MarkBroadcast records the hash of an accepted withdrawal and moves it
	// to pending.
	MarkBroadcast(ctx context.Context, id uuid.UUID, txHash string) error
	RecordBroadcastFailure(ctx context.Context, id uuid.UUID, reason string) error
}

// DepositAddressRepository is the registry of exchange-controlled addresses.
// Addresses are stored and looked up in model.CanonicalAddress form.
type DepositAddressRepository interface {
	FindByAddresses(ctx context.Context, network string, addresses []string) ([]model.DepositAddress, error)
	Create(ctx context.Context, addr *model.DepositAddress) error
}

// Repos groups the repositories of one store, bound either to the store
// itself or to an open unit of work.
type Repos struct {
	Blocks           BlockRepository
	Transfers        TransferRepository
	DepositAddresses DepositAddressRepository
	Ledger           ledger.Ledger
}

// Store hands out repositories and runs units of work.
type Store interface {
	Repos() Repos
	// WithTx runs fn against repositories bound to one transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
