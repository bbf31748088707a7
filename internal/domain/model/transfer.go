package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferDirection string

const (
	DirectionDeposit    TransferDirection = "deposit"
	DirectionWithdrawal TransferDirection = "withdrawal"
)

type TransferStatus string

const (
	// StatusNotBroadcast is a requested withdrawal whose transaction has not
	// been accepted by the network yet.
	StatusNotBroadcast TransferStatus = "not_broadcast"
	StatusPending      TransferStatus = "pending"
	StatusDone         TransferStatus = "done"
	StatusCanceled     TransferStatus = "canceled"
	StatusReverted     TransferStatus = "reverted"
)

func (s TransferStatus) String() string {
	return string(s)
}

// Terminal reports whether s can never be left.
func (s TransferStatus) Terminal() bool {
	switch s {
	case StatusDone, StatusCanceled, StatusReverted:
		return true
	}
	return false
}

// CanTransition reports whether a transfer may move from s to next.
func (s TransferStatus) CanTransition(next TransferStatus) bool {
	switch s {
	case StatusNotBroadcast:
		return next == StatusPending || next == StatusCanceled
	case StatusPending:
		return next == StatusDone || next == StatusCanceled || next == StatusReverted
	default:
		return false
	}
}

// Transfer is the internal record of one on-chain deposit or withdrawal.
type Transfer struct {
	ID      uuid.UUID `db:"id"`
	GroupID uuid.UUID `db:"group_id"`
	Network string    `db:"network"`
	Wallet
	Amount    decimal.Decimal   `db:"amount"`
	Direction TransferDirection `db:"direction"`
	Status    TransferStatus    `db:"status"`
	TxHash    string            `db:"tx_hash"`
	// BlockHash is empty until the transaction is linked to a block.
	BlockHash   string `db:"block_hash"`
	BlockNumber int64  `db:"block_number"`
	// DepositAddress is the watched address a deposit arrived at.
	DepositAddress string `db:"deposit_address"`
	// Counterparty is the sender of a deposit or the destination of a
	// withdrawal.
	Counterparty      string    `db:"counterparty"`
	IsFee             bool      `db:"is_fee"`
	BroadcastAttempts int       `db:"broadcast_attempts"`
	LastError         string    `db:"last_error"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// Linked reports whether the transfer carries block linkage.
func (t *Transfer) Linked() bool {
	return t.BlockHash != ""
}

// ConfirmedAt reports whether the transfer's block is at least minConfirm
// blocks below head.
func (t *Transfer) ConfirmedAt(head, minConfirm int64) bool {
	return t.Linked() && head-t.BlockNumber >= minConfirm
}
