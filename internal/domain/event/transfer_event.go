package event

import (
	"time"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
)

type TransferEventType string

const (
	TransferDone     TransferEventType = "transfer.done"
	TransferCanceled TransferEventType = "transfer.canceled"
)

// TransferEvent is published after a transfer reaches a final status.
type TransferEvent struct {
	Type        TransferEventType       `json:"type"`
	TransferID  string                  `json:"transfer_id"`
	Network     string                  `json:"network"`
	AccountID   int64                   `json:"account_id"`
	Asset       string                  `json:"asset"`
	Amount      string                  `json:"amount"`
	Direction   model.TransferDirection `json:"direction"`
	Status      model.TransferStatus    `json:"status"`
	TxHash      string                  `json:"tx_hash"`
	BlockNumber int64                   `json:"block_number"`
	OccurredAt  time.Time               `json:"occurred_at"`
}

// NewTransferEvent snapshots t. The event type follows t.Status.
func NewTransferEvent(t *model.Transfer, at time.Time) TransferEvent {
	typ := TransferCanceled
	if t.Status == model.StatusDone {
		typ = TransferDone
	}
	return TransferEvent{
		Type:        typ,
		TransferID:  t.ID.String(),
		Network:     t.Network,
		AccountID:   t.AccountID,
		Asset:       t.Asset,
		Amount:      t.Amount.String(),
		Direction:   t.Direction,
		Status:      t.Status,
		TxHash:      t.TxHash,
		BlockNumber: t.BlockNumber,
		OccurredAt:  at.UTC(),
	}
}
