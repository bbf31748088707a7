package event

import "time"

// ReorgEvent describes one rollback of the block ledger.
// ForkNumber is the lowest height whose recorded block was replaced.
type ReorgEvent struct {
	Network             string
	ForkNumber          int64
	RemovedBlocks       int64
	RevertedDeposits    int64
	UnlinkedWithdrawals int64
	DetectedAt          time.Time
}
