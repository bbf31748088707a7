// Package rpc is a client for the TRON full-node HTTP API (/wallet/*).
package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const apiKeyHeader = "TRON-PRO-API-KEY"

// APIError is an error reported in a 200 response body.
type APIError struct {
	Path    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Client posts to the /wallet API of the pool's endpoints. Responses are
// returned as parsed gjson documents; the adapter picks the fields it needs.
type Client struct {
	http   *resty.Client
	pool   *rpcpool.Pool
	logger *slog.Logger
}

func NewClient(pool *rpcpool.Pool, logger *slog.Logger) *Client {
	return &Client{
		http: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		pool:   pool,
		logger: logger.With("component", "tron_rpc", "network", pool.Network()),
	}
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (gjson.Result, error) {
	var out gjson.Result
	err := c.pool.Do(ctx, path, func(ctx context.Context, ep rpcpool.Endpoint) error {
		req := c.http.R().SetContext(ctx).SetBody(body)
		if ep.APIKey != "" {
			req.SetHeader(apiKeyHeader, ep.APIKey)
		}
		resp, err := req.Post(strings.TrimRight(ep.URL, "/") + "/" + path)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("http status %d: %s", resp.StatusCode(), resp.String())
		}
		raw := resp.Body()
		if !gjson.ValidBytes(raw) {
			return fmt.Errorf("invalid json from %s", path)
		}
		doc := gjson.ParseBytes(raw)
		if msg := doc.Get("Error"); msg.Exists() {
			return &APIError{Path: path, Message: msg.String()}
		}
		out = doc
		return nil
	})
	return out, err
}

// GetNowBlock returns the current head block with transactions.
func (c *Client) GetNowBlock(ctx context.Context) (gjson.Result, error) {
	return c.post(ctx, "wallet/getnowblock", struct{}{})
}

// GetBlockByID returns an empty object for an unknown hash.
func (c *Client) GetBlockByID(ctx context.Context, id string) (gjson.Result, error) {
	return c.post(ctx, "wallet/getblockbyid", map[string]interface{}{"value": id})
}

func (c *Client) GetBlockByNum(ctx context.Context, num int64) (gjson.Result, error) {
	return c.post(ctx, "wallet/getblockbynum", map[string]interface{}{"num": num})
}

func (c *Client) GetTransactionByID(ctx context.Context, id string) (gjson.Result, error) {
	return c.post(ctx, "wallet/gettransactionbyid", map[string]interface{}{"value": id})
}

// GetTransactionInfoByID returns execution info; empty until the transaction
// is in a block.
func (c *Client) GetTransactionInfoByID(ctx context.Context, id string) (gjson.Result, error) {
	return c.post(ctx, "wallet/gettransactioninfobyid", map[string]interface{}{"value": id})
}

// GetAccountBalance returns the TRX balance of a base58 address in sun. An
// unactivated account has no balance field and reports zero.
func (c *Client) GetAccountBalance(ctx context.Context, address string) (int64, error) {
	doc, err := c.post(ctx, "wallet/getaccount", map[string]interface{}{"address": address, "visible": true})
	if err != nil {
		return 0, err
	}
	return doc.Get("balance").Int(), nil
}

// CreateTransaction builds an unsigned TRX transfer between base58 addresses.
func (c *Client) CreateTransaction(ctx context.Context, owner, to string, amountSun int64) (json.RawMessage, error) {
	doc, err := c.post(ctx, "wallet/createtransaction", map[string]interface{}{
		"owner_address": owner,
		"to_address":    to,
		"amount":        amountSun,
		"visible":       true,
	})
	if err != nil {
		return nil, err
	}
	if !doc.Get("txID").Exists() {
		return nil, &APIError{Path: "wallet/createtransaction", Message: "no transaction returned"}
	}
	return json.RawMessage(doc.Raw), nil
}

// TriggerRequest is an unsigned contract call.
type TriggerRequest struct {
	Owner            string `json:"owner_address"`
	Contract         string `json:"contract_address"`
	FunctionSelector string `json:"function_selector"`
	// Parameter is the hex ABI encoding of the arguments, without selector.
	Parameter string `json:"parameter"`
	FeeLimit  int64  `json:"fee_limit"`
	CallValue int64  `json:"call_value"`
	Visible   bool   `json:"visible"`
}

// TriggerSmartContract builds an unsigned contract call transaction.
func (c *Client) TriggerSmartContract(ctx context.Context, req TriggerRequest) (json.RawMessage, error) {
	req.Visible = true
	doc, err := c.post(ctx, "wallet/triggersmartcontract", req)
	if err != nil {
		return nil, err
	}
	if !doc.Get("result.result").Bool() {
		return nil, &APIError{Path: "wallet/triggersmartcontract", Message: decodeMessage(doc.Get("result.message").String())}
	}
	tx := doc.Get("transaction")
	if !tx.Get("txID").Exists() {
		return nil, &APIError{Path: "wallet/triggersmartcontract", Message: "no transaction returned"}
	}
	return json.RawMessage(tx.Raw), nil
}

// BroadcastResult is the node's verdict on a signed transaction.
type BroadcastResult struct {
	Result  bool
	TxID    string
	Code    string
	Message string
}

func (c *Client) BroadcastTransaction(ctx context.Context, signed json.RawMessage) (*BroadcastResult, error) {
	doc, err := c.post(ctx, "wallet/broadcasttransaction", signed)
	if err != nil {
		return nil, err
	}
	return &BroadcastResult{
		Result:  doc.Get("result").Bool(),
		TxID:    doc.Get("txid").String(),
		Code:    doc.Get("code").String(),
		Message: decodeMessage(doc.Get("message").String()),
	}, nil
}

// decodeMessage undoes the hex encoding nodes apply to error messages.
func decodeMessage(s string) string {
	if b, err := hex.DecodeString(s); err == nil && len(b) > 0 {
		return string(b)
	}
	return s
}
