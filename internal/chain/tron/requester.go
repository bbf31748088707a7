package tron

import (
	"context"
	"fmt"
	"time"

	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/tron/rpc"
	"github.com/tidwall/gjson"
)

// Client is the subset of the node API the adapter reads through.
type Client interface {
	GetNowBlock(ctx context.Context) (gjson.Result, error)
	GetBlockByID(ctx context.Context, id string) (gjson.Result, error)
	GetBlockByNum(ctx context.Context, num int64) (gjson.Result, error)
	GetTransactionByID(ctx context.Context, id string) (gjson.Result, error)
	GetTransactionInfoByID(ctx context.Context, id string) (gjson.Result, error)
}

var _ Client = (*rpc.Client)(nil)

type Requester struct {
	client Client
}

var _ chain.Requester = (*Requester)(nil)

func NewRequester(client Client) *Requester {
	return &Requester{client: client}
}

func (r *Requester) GetLatestBlock(ctx context.Context) (*chain.Block, error) {
	doc, err := r.client.GetNowBlock(ctx)
	if err != nil {
		return nil, err
	}
	return toBlock(doc, "latest")
}

func (r *Requester) GetBlockByID(ctx context.Context, id string) (*chain.Block, error) {
	doc, err := r.client.GetBlockByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toBlock(doc, "id "+id)
}

func (r *Requester) GetBlockByNumber(ctx context.Context, number int64) (*chain.Block, error) {
	doc, err := r.client.GetBlockByNum(ctx, number)
	if err != nil {
		return nil, err
	}
	return toBlock(doc, fmt.Sprintf("number %d", number))
}

// toBlock reads a block document. Nodes answer unknown blocks with {}.
func toBlock(doc gjson.Result, ref string) (*chain.Block, error) {
	id := doc.Get("blockID").String()
	if id == "" {
		return nil, fmt.Errorf("%s: %w", ref, chain.ErrBlockNotFound)
	}
	header := doc.Get("block_header.raw_data")
	if !header.Exists() {
		return nil, chain.Malformed("block %s has no header", id)
	}
	return &chain.Block{
		ID:        id,
		Number:    header.Get("number").Int(),
		ParentID:  header.Get("parentHash").String(),
		Timestamp: time.UnixMilli(header.Get("timestamp").Int()).UTC(),
		Payload:   doc,
	}, nil
}

type Parser struct{}

var _ chain.TransactionParser = Parser{}

func (Parser) ListOfRawTransactions(block *chain.Block) ([]chain.RawTransaction, error) {
	doc, ok := block.Payload.(gjson.Result)
	if !ok {
		return nil, fmt.Errorf("unexpected block payload %T", block.Payload)
	}
	txs := doc.Get("transactions").Array()
	out := make([]chain.RawTransaction, 0, len(txs))
	for _, tx := range txs {
		id := tx.Get("txID").String()
		if id == "" {
			continue
		}
		out = append(out, chain.RawTransaction{ID: id, Payload: tx})
	}
	return out, nil
}

// Inspector checks execution results through the transaction and
// transaction-info endpoints.
type Inspector struct {
	client Client
}

var _ chain.TransactionInspector = (*Inspector)(nil)

func NewInspector(client Client) *Inspector {
	return &Inspector{client: client}
}

func (i *Inspector) TransactionStatus(ctx context.Context, id string) (chain.TxStatus, error) {
	info, err := i.client.GetTransactionInfoByID(ctx, id)
	if err != nil {
		return chain.TxStatusNotFound, err
	}
	if info.Get("id").String() == "" {
		return chain.TxStatusNotFound, nil
	}
	if info.Get("result").String() == "FAILED" {
		return chain.TxStatusFailed, nil
	}
	if r := info.Get("receipt.result"); r.Exists() && r.String() != "SUCCESS" {
		return chain.TxStatusFailed, nil
	}

	tx, err := i.client.GetTransactionByID(ctx, id)
	if err != nil {
		return chain.TxStatusNotFound, err
	}
	if tx.Get("txID").String() == "" {
		return chain.TxStatusNotFound, nil
	}
	if contractRet(tx) != "SUCCESS" {
		return chain.TxStatusFailed, nil
	}
	return chain.TxStatusSuccess, nil
}

func (i *Inspector) LocateTransaction(ctx context.Context, id string) (*chain.TxLocation, error) {
	info, err := i.client.GetTransactionInfoByID(ctx, id)
	if err != nil {
		return nil, err
	}
	number := info.Get("blockNumber").Int()
	if info.Get("id").String() == "" || number == 0 {
		return nil, nil
	}
	doc, err := i.client.GetBlockByNum(ctx, number)
	if err != nil {
		return nil, err
	}
	hash := doc.Get("blockID").String()
	if hash == "" {
		return nil, fmt.Errorf("block %d of tx %s: %w", number, id, chain.ErrBlockNotFound)
	}
	return &chain.TxLocation{BlockHash: hash, BlockNumber: number}, nil
}

func contractRet(tx gjson.Result) string {
	return tx.Get("ret.0.contractRet").String()
}
