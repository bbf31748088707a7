package chain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Block is a chain-agnostic view of one block.
type Block struct {
	ID        string
	Number    int64
	ParentID  string
	Timestamp time.Time
	// Payload is the adapter's decoded form of the block, handed back to the
	// same adapter's TransactionParser.
	Payload any
}

// RawTransaction is a candidate transaction extracted from a block before any
// handler has looked at it.
type RawTransaction struct {
	ID      string
	Payload any
}

// Transaction is a decoded value transfer.
type Transaction struct {
	ID     string
	From   string
	To     string
	Amount decimal.Decimal
	Asset  string
}

// Requester fetches blocks with their transactions.
type Requester interface {
	// GetLatestBlock returns the current chain head.
	GetLatestBlock(ctx context.Context) (*Block, error)

	// GetBlockByID returns the block with the given hash, or ErrBlockNotFound.
	GetBlockByID(ctx context.Context, id string) (*Block, error)

	// GetBlockByNumber returns the canonical block at a height, or ErrBlockNotFound.
	GetBlockByNumber(ctx context.Context, number int64) (*Block, error)
}

// TransactionParser flattens a block into candidate transactions.
type TransactionParser interface {
	ListOfRawTransactions(block *Block) ([]RawTransaction, error)
}

// CoinHandler recognizes and decodes one family of transfers.
// Decode is only called for transactions IsValid accepted.
type CoinHandler interface {
	IsValid(raw RawTransaction) bool
	Decode(raw RawTransaction) (*Transaction, error)
}

type TxStatus int

const (
	TxStatusNotFound TxStatus = iota
	TxStatusSuccess
	TxStatusFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxStatusSuccess:
		return "success"
	case TxStatusFailed:
		return "failed"
	default:
		return "not_found"
	}
}

// TxLocation is the block a transaction was mined in.
type TxLocation struct {
	BlockHash   string
	BlockNumber int64
}

// TransactionInspector re-queries the chain about single transactions.
type TransactionInspector interface {
	// TransactionStatus reports whether the transaction executed successfully.
	TransactionStatus(ctx context.Context, id string) (TxStatus, error)

	// LocateTransaction returns the including block, or nil if the
	// transaction is not mined yet.
	LocateTransaction(ctx context.Context, id string) (*TxLocation, error)
}

// Adapter bundles the chain-specific pieces for one network.
type Adapter struct {
	Network   model.Network
	Requester Requester
	Parser    TransactionParser
	Handlers  []CoinHandler
	Inspector TransactionInspector
	Logger    *slog.Logger
}

// Decode runs every handler over the block's transactions and returns the
// union of matches. A transaction a handler fails to decode is skipped.
func (a *Adapter) Decode(block *Block) ([]Transaction, error) {
	raws, err := a.Parser.ListOfRawTransactions(block)
	if err != nil {
		return nil, fmt.Errorf("list transactions of block %d: %w", block.Number, err)
	}

	var out []Transaction
	for _, raw := range raws {
		for _, h := range a.Handlers {
			if !h.IsValid(raw) {
				continue
			}
			tx, err := h.Decode(raw)
			if err != nil {
				a.logger().Debug("skipping undecodable transaction",
					"tx", raw.ID,
					"block", block.Number,
					"error", err,
				)
				continue
			}
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (a *Adapter) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
