package withdraw

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/emperorhan/custody-settlement/internal/amount"
	"github.com/emperorhan/custody-settlement/internal/chain/evm"
	evmrpc "github.com/emperorhan/custody-settlement/internal/chain/evm/rpc"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

const (
	nativeTransferGas    = 21_000
	defaultTokenGasLimit = 100_000
)

// EVMClient is the subset of JSON-RPC withdrawals need.
type EVMClient interface {
	GetBalance(ctx context.Context, address string) (*big.Int, error)
	GetPendingNonce(ctx context.Context, address string) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	SendRawTransaction(ctx context.Context, rawHex string) (string, error)
}

var _ EVMClient = (*evmrpc.Client)(nil)

type EVMCreator struct {
	network model.Network
	client  EVMClient
}

func NewEVMCreator(network model.Network, client EVMClient) *EVMCreator {
	return &EVMCreator{network: network, client: client}
}

func (c *EVMCreator) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	wei, err := c.client.GetBalance(ctx, address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w", address, err)
	}
	return amount.NewNormalizer(c.network.NativeDecimals).ToDecimal(wei), nil
}

// Send builds a legacy transaction at the pending nonce and current gas
// price, signs it for the network's chain id and broadcasts it.
func (c *EVMCreator) Send(ctx context.Context, from wallet.Wallet, p Payment) (string, error) {
	fail := func(stage Stage, err error) (string, error) {
		return "", creationError(p.TransferID, c.network.Symbol, stage, err)
	}

	signer, ok := from.(*wallet.EVMWallet)
	if !ok {
		return fail(StageBuild, fmt.Errorf("%w: wallet %T cannot sign evm transactions", wallet.ErrUnsupportedNetwork, from))
	}
	if !common.IsHexAddress(p.To) {
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

	to := common.HexToAddress(p.To)
	legacy := &types.LegacyTx{To: &to, Value: units, Gas: nativeTransferGas}
	if !c.network.IsNative(p.Asset) {
		token, ok := c.network.Token(p.Asset)
		if !ok {
			return fail(StageBuild, fmt.Errorf("token %s is not listed on %s", p.Asset, c.network.Symbol))
		}
		data, err := evm.ERC20.Pack("transfer", to, units)
		if err != nil {
			return fail(StageBuild, fmt.Errorf("encode transfer: %w", err))
		}
		contract := common.HexToAddress(token.Contract)
		legacy.To = &contract
		legacy.Value = new(big.Int)
		legacy.Data = data
		legacy.Gas = c.network.Fee.TokenGasLimit
		if legacy.Gas == 0 {
			legacy.Gas = defaultTokenGasLimit
		}
	}

	if legacy.Nonce, err = c.client.GetPendingNonce(ctx, signer.Address()); err != nil {
		return fail(StageBuild, fmt.Errorf("pending nonce: %w", err))
	}
	if legacy.GasPrice, err = c.client.GasPrice(ctx); err != nil {
		return fail(StageBuild, fmt.Errorf("gas price: %w", err))
	}

	signed, err := signer.SignTx(types.NewTx(legacy))
	if err != nil {
		return fail(StageSign, err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return fail(StageSign, fmt.Errorf("encode signed tx: %w", err))
	}

	hash, err := c.client.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		return fail(StageBroadcast, err)
	}
	if hash == "" {
		hash = signed.Hash().Hex()
	}
	return strings.ToLower(hash), nil
}
