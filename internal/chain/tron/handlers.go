package tron

import (
	"math/big"

	"github.com/emperorhan/custody-settlement/internal/amount"
	"github.com/emperorhan/custody-settlement/internal/chain"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/tidwall/gjson"
)

const (
	contractTransfer        = "TransferContract"
	contractTriggerContract = "TriggerSmartContract"
)

func payload(raw chain.RawTransaction) (gjson.Result, bool) {
	tx, ok := raw.Payload.(gjson.Result)
	return tx, ok && tx.Exists()
}

func contractOf(tx gjson.Result) (string, gjson.Result) {
	c := tx.Get("raw_data.contract.0")
	return c.Get("type").String(), c.Get("parameter.value")
}

// TRXHandler decodes native TransferContract transactions.
type TRXHandler struct {
	asset      string
	normalizer amount.Normalizer
}

var _ chain.CoinHandler = (*TRXHandler)(nil)

func NewTRXHandler(asset string, decimals int32) *TRXHandler {
	return &TRXHandler{asset: asset, normalizer: amount.NewNormalizer(decimals)}
}

func (h *TRXHandler) IsValid(raw chain.RawTransaction) bool {
	tx, ok := payload(raw)
	if !ok {
		return false
	}
	kind, _ := contractOf(tx)
	return kind == contractTransfer && contractRet(tx) == "SUCCESS"
}

func (h *TRXHandler) Decode(raw chain.RawTransaction) (*chain.Transaction, error) {
	tx, _ := payload(raw)
	_, value := contractOf(tx)

	from, err := normalizeAddress(value.Get("owner_address").String())
	if err != nil {
		return nil, chain.Malformed("owner: %v", err)
	}
	to, err := normalizeAddress(value.Get("to_address").String())
	if err != nil {
		return nil, chain.Malformed("recipient: %v", err)
	}
	sun := value.Get("amount").Int()
	if sun <= 0 {
		return nil, chain.Malformed("amount %d", sun)
	}
	return &chain.Transaction{
		ID:     raw.ID,
		From:   from,
		To:     to,
		Amount: h.normalizer.ToDecimal(big.NewInt(sun)),
		Asset:  h.asset,
	}, nil
}

// TRC20Handler decodes transfer and transferFrom calls to listed TRC20
// contracts.
type TRC20Handler struct {
	tokens map[string]model.Token
	listed model.AssetSet
}

var _ chain.CoinHandler = (*TRC20Handler)(nil)

// NewTRC20Handler indexes tokens by contract address. Contracts may be
// configured in either address encoding; unparseable ones are ignored.
func NewTRC20Handler(tokens []model.Token, listed model.AssetSet) *TRC20Handler {
	byContract := make(map[string]model.Token, len(tokens))
	for _, t := range tokens {
		addr, err := normalizeAddress(t.Contract)
		if err != nil {
			continue
		}
		byContract[addr] = t
	}
	return &TRC20Handler{tokens: byContract, listed: listed}
}

func (h *TRC20Handler) token(value gjson.Result) (model.Token, bool) {
	addr, err := normalizeAddress(value.Get("contract_address").String())
	if err != nil {
		return model.Token{}, false
	}
	t, ok := h.tokens[addr]
	return t, ok
}

func (h *TRC20Handler) IsValid(raw chain.RawTransaction) bool {
	tx, ok := payload(raw)
	if !ok {
		return false
	}
	kind, value := contractOf(tx)
	if kind != contractTriggerContract || contractRet(tx) != "SUCCESS" {
		return false
	}
	token, ok := h.token(value)
	if !ok || !h.listed.Contains(token.Symbol) {
		return false
	}
	sel := callSelector(value.Get("data").String())
	return sel == selectorTransfer || sel == selectorTransferFrom
}

func (h *TRC20Handler) Decode(raw chain.RawTransaction) (*chain.Transaction, error) {
	tx, _ := payload(raw)
	_, value := contractOf(tx)
	token, _ := h.token(value)

	call, err := decodeTokenCall(value.Get("data").String())
	if err != nil {
		return nil, chain.Malformed("%v", err)
	}
	if call.Value.Sign() <= 0 {
		return nil, chain.Malformed("zero value")
	}

	fromHex := call.From
	if fromHex == "" {
		fromHex = value.Get("owner_address").String()
	}
	from, err := normalizeAddress(fromHex)
	if err != nil {
		return nil, chain.Malformed("sender: %v", err)
	}
	to, err := HexToBase58(call.To)
	if err != nil {
		return nil, chain.Malformed("recipient: %v", err)
	}

	return &chain.Transaction{
		ID:     raw.ID,
		From:   from,
		To:     to,
		Amount: amount.NewNormalizer(token.Decimals).ToDecimal(call.Value),
		Asset:  token.Symbol,
	}, nil
}
