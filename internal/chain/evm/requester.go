package evm

import (
	"context"
	"fmt"
	"time"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/evm/rpc"
)

// Client is the subset of the JSON-RPC client the adapter reads through.
type Client interface {
	GetBlockByTag(ctx context.Context, tag string, includeFullTx bool) (*rpc.Block, error)
	GetBlockByHash(ctx context.Context, hash string, includeFullTx bool) (*rpc.Block, error)
	GetBlockByNumber(ctx context.Context, blockNumber int64, includeFullTx bool) (*rpc.Block, error)
	GetTransactionReceipt(ctx context.Context, hash string) (*rpc.TransactionReceipt, error)
}

var _ Client = (*rpc.Client)(nil)

// Requester fetches full blocks over JSON-RPC.
type Requester struct {
	client Client
}

var _ chain.Requester = (*Requester)(nil)

func NewRequester(client Client) *Requester {
	return &Requester{client: client}
}

func (r *Requester) GetLatestBlock(ctx context.Context) (*chain.Block, error) {
	b, err := r.client.GetBlockByTag(ctx, "latest", true)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("latest: %w", chain.ErrBlockNotFound)
	}
	return toBlock(b)
}

func (r *Requester) GetBlockByID(ctx context.Context, id string) (*chain.Block, error) {
	b, err := r.client.GetBlockByHash(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("hash %s: %w", id, chain.ErrBlockNotFound)
	}
	return toBlock(b)
}

func (r *Requester) GetBlockByNumber(ctx context.Context, number int64) (*chain.Block, error) {
	b, err := r.client.GetBlockByNumber(ctx, number, true)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("number %d: %w", number, chain.ErrBlockNotFound)
	}
	return toBlock(b)
}

func toBlock(b *rpc.Block) (*chain.Block, error) {
	number, err := rpc.ParseHexInt64(b.Number)
	if err != nil {
		return nil, fmt.Errorf("parse block number %q: %w", b.Number, err)
	}
	ts, err := rpc.ParseHexInt64(b.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse block timestamp %q: %w", b.Timestamp, err)
	}
	return &chain.Block{
		ID:        b.Hash,
		Number:    number,
		ParentID:  b.ParentHash,
		Timestamp: time.Unix(ts, 0).UTC(),
		Payload:   b,
	}, nil
}

// Parser lists the transactions of a full block.
type Parser struct{}

var _ chain.TransactionParser = Parser{}

func (Parser) ListOfRawTransactions(block *chain.Block) ([]chain.RawTransaction, error) {
	b, ok := block.Payload.(*rpc.Block)
	if !ok {
		return nil, fmt.Errorf("unexpected block payload %T", block.Payload)
	}
	out := make([]chain.RawTransaction, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		if tx == nil {
			continue
		}
		out = append(out, chain.RawTransaction{ID: tx.Hash, Payload: tx})
	}
	return out, nil
}

// Inspector answers transaction questions from receipts.
type Inspector struct {
	client Client
}

var _ chain.TransactionInspector = (*Inspector)(nil)

func NewInspector(client Client) *Inspector {
	return &Inspector{client: client}
}

func (i *Inspector) TransactionStatus(ctx context.Context, id string) (chain.TxStatus, error) {
	receipt, err := i.client.GetTransactionReceipt(ctx, id)
	if err != nil {
		return chain.TxStatusNotFound, err
	}
	if receipt == nil {
		return chain.TxStatusNotFound, nil
	}
	if receipt.Status == "0x1" {
		return chain.TxStatusSuccess, nil
	}
	return chain.TxStatusFailed, nil
}

func (i *Inspector) LocateTransaction(ctx context.Context, id string) (*chain.TxLocation, error) {
	receipt, err := i.client.GetTransactionReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil || receipt.BlockHash == "" {
		return nil, nil
	}
	number, err := rpc.ParseHexInt64(receipt.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("parse receipt block number %q: %w", receipt.BlockNumber, err)
	}
	return &chain.TxLocation{BlockHash: receipt.BlockHash, BlockNumber: number}, nil
}
