// Package withdraw builds, fee-funds, signs and broadcasts outgoing
// transfers. Broadcast withdrawals continue through the same populator and
// confirmer path as deposits.
package withdraw

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrBroadcastFailed matches every TransactionCreationError.
	ErrBroadcastFailed = errors.New("withdrawal broadcast failed")
	// ErrFeeDeferred means the hot wallet cannot pay network fees yet and
	// the withdrawal waits for a later cycle.
	ErrFeeDeferred = errors.New("withdrawal deferred until hot wallet is funded")
)

// Stage names where building an outgoing transaction failed.
type Stage string

const (
	StageBuild     Stage = "build"
	StageSign      Stage = "sign"
	StageBroadcast Stage = "broadcast"
)

// TransactionCreationError is the operator-facing fault for a withdrawal
// that could not be put on chain.
type TransactionCreationError struct {
	TransferID uuid.UUID
	Network    string
	Stage      Stage
	Err        error
}

func (e *TransactionCreationError) Error() string {
	return fmt.Sprintf("withdrawal %s on %s failed at %s: %v", e.TransferID, e.Network, e.Stage, e.Err)
}

func (e *TransactionCreationError) Unwrap() error { return e.Err }

func (e *TransactionCreationError) Is(target error) bool { return target == ErrBroadcastFailed }

func creationError(id uuid.UUID, network string, stage Stage, err error) error {
	return &TransactionCreationError{TransferID: id, Network: network, Stage: stage, Err: err}
}
