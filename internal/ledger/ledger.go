// Package ledger defines the balance engine contract the settlement layer
// credits and debits through.
package ledger

import (
	"context"
	"errors"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -destination=mocks/mock_ledger.go -package=mocks . Ledger

var (
	ErrInsufficientBalance = errors.New("insufficient available balance")
	// ErrAlreadyApplied is returned when a transfer already has a ledger entry.
	ErrAlreadyApplied = errors.New("transfer already applied")
	ErrLockNotFound   = errors.New("balance lock not found")
)

// Ledger records the balance effect of settled transfers. Implementations
// handed out by a store run inside that store's unit of work, so a ledger
// write commits or rolls back together with the transfer status change.
type Ledger interface {
	// ResolveWallet returns the wallet holding asset for accountID, creating
	// it on first use.
	ResolveWallet(ctx context.Context, accountID int64, asset string) (model.Wallet, error)

	// LockBalance reserves amount of the wallet's available balance under
	// groupID until the withdrawal settles or is canceled.
	LockBalance(ctx context.Context, groupID uuid.UUID, wallet model.Wallet, amount decimal.Decimal) error

	// Apply credits a deposit or debits a withdrawal and releases the lock of
	// the transfer's group. It fails with ErrAlreadyApplied on a second call
	// for the same transfer.
	Apply(ctx context.Context, t *model.Transfer) error

	// ReleaseLock returns a reserved amount to the available balance.
	// Releasing an already released lock is a no-op.
	ReleaseLock(ctx context.Context, groupID uuid.UUID) error
}

// Delta is the signed balance change t causes.
func Delta(t *model.Transfer) decimal.Decimal {
	if t.Direction == model.DirectionWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}
