package evm

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/emperorhan/custody-settlement/internal/amount"
	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/chain/evm/rpc"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/ethereum/go-ethereum/common"
)

// Decoded addresses are EIP-55 checksummed so they compare equal to the
// checksummed deposit addresses in the registry.

// NativeHandler decodes plain value transfers: empty call data and a
// recipient.
type NativeHandler struct {
	asset      string
	normalizer amount.Normalizer
}

var _ chain.CoinHandler = (*NativeHandler)(nil)

func NewNativeHandler(asset string, decimals int32) *NativeHandler {
	return &NativeHandler{asset: asset, normalizer: amount.NewNormalizer(decimals)}
}

func (h *NativeHandler) IsValid(raw chain.RawTransaction) bool {
	tx, ok := raw.Payload.(*rpc.Transaction)
	if !ok || tx == nil {
		return false
	}
	return (tx.Input == "0x" || tx.Input == "") && tx.To != ""
}

func (h *NativeHandler) Decode(raw chain.RawTransaction) (*chain.Transaction, error) {
	tx := raw.Payload.(*rpc.Transaction)
	if !common.IsHexAddress(tx.To) || !common.IsHexAddress(tx.From) {
		return nil, chain.Malformed("bad address in %s", tx.Hash)
	}
	value, err := amount.ParseHexInt(tx.Value)
	if err != nil {
		return nil, chain.Malformed("value %q: %v", tx.Value, err)
	}
	if value.Sign() <= 0 {
		return nil, chain.Malformed("zero value")
	}
	return &chain.Transaction{
		ID:     tx.Hash,
		From:   common.HexToAddress(tx.From).Hex(),
		To:     common.HexToAddress(tx.To).Hex(),
		Amount: h.normalizer.ToDecimal(value),
		Asset:  h.asset,
	}, nil
}

// TokenHandler decodes ERC20 transfer and transferFrom calls made directly to
// a listed token contract.
type TokenHandler struct {
	tokens map[string]model.Token
	listed model.AssetSet
}

var _ chain.CoinHandler = (*TokenHandler)(nil)

func NewTokenHandler(tokens []model.Token, listed model.AssetSet) *TokenHandler {
	byContract := make(map[string]model.Token, len(tokens))
	for _, t := range tokens {
		byContract[strings.ToLower(t.Contract)] = t
	}
	return &TokenHandler{tokens: byContract, listed: listed}
}

func (h *TokenHandler) IsValid(raw chain.RawTransaction) bool {
	tx, ok := raw.Payload.(*rpc.Transaction)
	if !ok || tx == nil {
		return false
	}
	token, ok := h.tokens[strings.ToLower(tx.To)]
	if !ok || !h.listed.Contains(token.Symbol) {
		return false
	}
	selector := selectorOf(tx.Input)
	return selector == SelectorTransfer || selector == SelectorTransferFrom
}

func (h *TokenHandler) Decode(raw chain.RawTransaction) (*chain.Transaction, error) {
	tx := raw.Payload.(*rpc.Transaction)
	token := h.tokens[strings.ToLower(tx.To)]

	data, err := hex.DecodeString(strings.TrimPrefix(tx.Input, "0x"))
	if err != nil {
		return nil, chain.Malformed("call data: %v", err)
	}
	if len(data) < 4 {
		return nil, chain.Malformed("call data too short")
	}
	method, err := ERC20.MethodById(data[:4])
	if err != nil {
		return nil, chain.Malformed("selector: %v", err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, chain.Malformed("%s arguments: %v", method.Name, err)
	}

	var (
		from  common.Address
		to    common.Address
		value *big.Int
		ok    bool
	)
	switch method.Name {
	case "transfer":
		if !common.IsHexAddress(tx.From) {
			return nil, chain.Malformed("bad sender %q", tx.From)
		}
		from = common.HexToAddress(tx.From)
		to, ok = args[0].(common.Address)
		if ok {
			value, ok = args[1].(*big.Int)
		}
	case "transferFrom":
		from, ok = args[0].(common.Address)
		if ok {
			to, ok = args[1].(common.Address)
		}
		if ok {
			value, ok = args[2].(*big.Int)
		}
	default:
		return nil, chain.Malformed("unsupported method %s", method.Name)
	}
	if !ok {
		return nil, chain.Malformed("%s argument types", method.Name)
	}
	if value.Sign() <= 0 {
		return nil, chain.Malformed("zero value")
	}

	return &chain.Transaction{
		ID:     tx.Hash,
		From:   from.Hex(),
		To:     to.Hex(),
		Amount: amount.NewNormalizer(token.Decimals).ToDecimal(value),
		Asset:  token.Symbol,
	}, nil
}

func selectorOf(input string) string {
	input = strings.TrimPrefix(input, "0x")
	if len(input) < 8 {
		return ""
	}
	return strings.ToLower(input[:8])
}
