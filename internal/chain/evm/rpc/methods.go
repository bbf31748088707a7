package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

func (c *Client) GetBlockNumber(ctx context.Context) (int64, error) {
	result, err := c.call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}

	var hexNum string
	if err := json.Unmarshal(result, &hexNum); err != nil {
		return 0, fmt.Errorf("unmarshal block number: %w", err)
	}
	blockNumber, err := ParseHexInt64(hexNum)
	if err != nil {
		return 0, fmt.Errorf("parse block number: %w", err)
	}
	return blockNumber, nil
}

// GetBlockByNumber returns nil, nil when the node has no block at that height.
func (c *Client) GetBlockByNumber(ctx context.Context, blockNumber int64, includeFullTx bool) (*Block, error) {
	result, err := c.call(ctx, "eth_getBlockByNumber", []interface{}{FormatHexInt64(blockNumber), includeFullTx})
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber(%d): %w", blockNumber, err)
	}
	return decodeBlock(result)
}

// GetBlockByTag fetches "latest", "safe" or "finalized".
func (c *Client) GetBlockByTag(ctx context.Context, tag string, includeFullTx bool) (*Block, error) {
	result, err := c.call(ctx, "eth_getBlockByNumber", []interface{}{tag, includeFullTx})
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber(%s): %w", tag, err)
	}
	return decodeBlock(result)
}

func (c *Client) GetBlockByHash(ctx context.Context, hash string, includeFullTx bool) (*Block, error) {
	result, err := c.call(ctx, "eth_getBlockByHash", []interface{}{hash, includeFullTx})
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByHash(%s): %w", hash, err)
	}
	return decodeBlock(result)
}

// GetTransactionReceipt returns nil, nil for unknown or unmined transactions.
func (c *Client) GetTransactionReceipt(ctx context.Context, hash string) (*TransactionReceipt, error) {
	result, err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt(%s): %w", hash, err)
	}
	if isNull(result) {
		return nil, nil
	}

	var receipt TransactionReceipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}
	return &receipt, nil
}

func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	result, err := c.call(ctx, "eth_getBalance", []interface{}{address, "latest"})
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance(%s): %w", address, err)
	}
	return decodeQuantity(result)
}

// GetPendingNonce returns the next nonce including transactions still in the
// mempool.
func (c *Client) GetPendingNonce(ctx context.Context, address string) (uint64, error) {
	result, err := c.call(ctx, "eth_getTransactionCount", []interface{}{address, "pending"})
	if err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount(%s): %w", address, err)
	}
	n, err := decodeQuantity(result)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	result, err := c.call(ctx, "eth_gasPrice", nil)
	if err != nil {
		return nil, fmt.Errorf("eth_gasPrice: %w", err)
	}
	return decodeQuantity(result)
}

// SendRawTransaction broadcasts a signed, RLP-encoded transaction and returns
// the hash the node reports.
func (c *Client) SendRawTransaction(ctx context.Context, rawHex string) (string, error) {
	result, err := c.call(ctx, "eth_sendRawTransaction", []interface{}{rawHex})
	if err != nil {
		return "", fmt.Errorf("eth_sendRawTransaction: %w", err)
	}
	var hash string
	if err := json.Unmarshal(result, &hash); err != nil {
		return "", fmt.Errorf("unmarshal tx hash: %w", err)
	}
	return hash, nil
}

func decodeBlock(result json.RawMessage) (*Block, error) {
	if isNull(result) {
		return nil, nil
	}
	var block Block
	if err := json.Unmarshal(result, &block); err != nil {
		return nil, fmt.Errorf("unmarshal block: %w", err)
	}
	return &block, nil
}

func decodeQuantity(result json.RawMessage) (*big.Int, error) {
	var hexNum string
	if err := json.Unmarshal(result, &hexNum); err != nil {
		return nil, fmt.Errorf("unmarshal quantity: %w", err)
	}
	v, ok := new(big.Int).SetString(strings.TrimPrefix(hexNum, "0x"), 16)
	if !ok {
		if hexNum == "0x" {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("invalid quantity %q", hexNum)
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func ParseHexInt64(s string) (int64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 16, 64)
}

func FormatHexInt64(n int64) string {
	return fmt.Sprintf("0x%x", n)
}
