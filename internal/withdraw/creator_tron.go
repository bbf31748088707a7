package withdraw

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/emperorhan/custody-settlement/internal/amount"
	"github.com/emperorhan/custody-settlement/internal/chain/evm"
	"github.com/emperorhan/custody-settlement/internal/chain/tron"
	tronrpc "github.com/emperorhan/custody-settlement/internal/chain/tron/rpc"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	trc20TransferSelector = "transfer(address,uint256)"
	defaultTronFeeLimit   = 30_000_000
)

// TronClient is the subset of the full-node API withdrawals need.
type TronClient interface {
	GetAccountBalance(ctx context.Context, address string) (int64, error)
	CreateTransaction(ctx context.Context, owner, to string, amountSun int64) (json.RawMessage, error)
	TriggerSmartContract(ctx context.Context, req tronrpc.TriggerRequest) (json.RawMessage, error)
	BroadcastTransaction(ctx context.Context, signed json.RawMessage) (*tronrpc.BroadcastResult, error)
}

var _ TronClient = (*tronrpc.Client)(nil)

type TronCreator struct {
	network model.Network
	client  TronClient
}

func NewTronCreator(network model.Network, client TronClient) *TronCreator {
	return &TronCreator{network: network, client: client}
}

func (c *TronCreator) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	sun, err := c.client.GetAccountBalance(ctx, address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w", address, err)
	}
	return amount.NewNormalizer(c.network.NativeDecimals).ToDecimal(big.NewInt(sun)), nil
}

// Send transfers TRX with createtransaction or a TRC20 token with
// triggersmartcontract, signs the txID and broadcasts.
func (c *TronCreator) Send(ctx context.Context, from wallet.Wallet, p Payment) (string, error) {
	fail := func(stage Stage, err error) (string, error) {
		return "", creationError(p.TransferID, c.network.Symbol, stage, err)
	}

	signer, ok := from.(*wallet.TronWallet)
	if !ok {
		return fail(StageBuild, fmt.Errorf("%w: wallet %T cannot sign tron transactions", wallet.ErrUnsupportedNetwork, from))
	}
	if !tron.ValidAddress(p.To) {
		return fail(StageBuild, fmt.Errorf("invalid destination %q", p.To))
	}
	decimals, err := decimalsFor(c.network, p.Asset)
	if err != nil {
		return fail(StageBuild, err)
	}
	units, err := amount.NewNormalizer(decimals).FromDecimal(p.Amount)
	if err != nil {
		return fail(StageBuild, err)
	}

	var unsigned json.RawMessage
	if c.network.IsNative(p.Asset) {
		if !units.IsInt64() {
			return fail(StageBuild, fmt.Errorf("amount %s overflows sun", p.Amount))
		}
		unsigned, err = c.client.CreateTransaction(ctx, signer.Address(), p.To, units.Int64())
	} else {
		unsigned, err = c.triggerTransfer(ctx, signer.Address(), p, units)
	}
	if err != nil {
		return fail(StageBuild, err)
	}

	txID := gjson.GetBytes(unsigned, "txID").String()
	sig, err := signer.SignTxID(txID)
	if err != nil {
		return fail(StageSign, err)
	}
	signed, err := attachSignature(unsigned, sig)
	if err != nil {
		return fail(StageSign, err)
	}

	res, err := c.client.BroadcastTransaction(ctx, signed)
	if err != nil {
		return fail(StageBroadcast, err)
	}
	if !res.Result {
		return fail(StageBroadcast, fmt.Errorf("node rejected transaction: %s %s", res.Code, res.Message))
	}
	if res.TxID != "" {
		txID = res.TxID
	}
	return txID, nil
}

func (c *TronCreator) triggerTransfer(ctx context.Context, owner string, p Payment, units *big.Int) (json.RawMessage, error) {
	token, ok := c.network.Token(p.Asset)
	if !ok {
		return nil, fmt.Errorf("token %s is not listed on %s", p.Asset, c.network.Symbol)
	}
	toHex, err := tron.Base58ToHex(p.To)
	if err != nil {
		return nil, err
	}
	// The ABI word is the 20-byte account hash without the 41 prefix.
	packed, err := evm.ERC20.Pack("transfer", common.HexToAddress(toHex[2:]), units)
	if err != nil {
		return nil, fmt.Errorf("encode transfer: %w", err)
	}
	feeLimit := c.network.Fee.FeeLimit
	if feeLimit <= 0 {
		feeLimit = defaultTronFeeLimit
	}
	return c.client.TriggerSmartContract(ctx, tronrpc.TriggerRequest{
		Owner:            owner,
		Contract:         token.Contract,
		FunctionSelector: trc20TransferSelector,
		Parameter:        hex.EncodeToString(packed[4:]),
		FeeLimit:         feeLimit,
	})
}

func attachSignature(unsigned json.RawMessage, sig string) (json.RawMessage, error) {
	var tx map[string]json.RawMessage
	if err := json.Unmarshal(unsigned, &tx); err != nil {
		return nil, fmt.Errorf("decode unsigned transaction: %w", err)
	}
	if len(tx) == 0 {
		return nil, errors.New("empty unsigned transaction")
	}
	sigs, err := json.Marshal([]string{sig})
	if err != nil {
		return nil, err
	}
	tx["signature"] = sigs
	return json.Marshal(tx)
}
