package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultForwardThreshold is the head gap above which the history builder
// walks forward instead of backward.
const DefaultForwardThreshold = 1000

// Network is one blockchain the exchange settles on, keyed by Symbol
// (e.g. "TRX", "BSC", "ETH").
type Network struct {
	Symbol           string
	Chain            Chain
	NativeAsset      string
	NativeDecimals   int32
	MinConfirm       int64
	ForwardThreshold int64
	ChainID          int64
	Tokens           []Token
	Fee              FeePolicy
}

func (n Network) String() string {
	return n.Symbol
}

// Token returns the listed token with the given symbol.
func (n Network) Token(symbol string) (Token, bool) {
	for _, t := range n.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

// Decimals returns the precision of asset on this network. ok is false for
// assets the network does not carry.
func (n Network) Decimals(asset string) (int32, bool) {
	if strings.EqualFold(asset, n.NativeAsset) {
		return n.NativeDecimals, true
	}
	if t, ok := n.Token(asset); ok {
		return t.Decimals, true
	}
	return 0, false
}

// ForwardGap is the effective forward threshold.
func (n Network) ForwardGap() int64 {
	if n.ForwardThreshold > 0 {
		return n.ForwardThreshold
	}
	return DefaultForwardThreshold
}

// CheckDepth rejects a forward threshold at or below the confirmation
// depth. Forward fulfill stops min_confirm blocks short of the head, so a
// smaller threshold would never hand over to the backward walk.
func (n Network) CheckDepth() error {
	if gap := n.ForwardGap(); gap <= n.MinConfirm {
		return fmt.Errorf("forward_threshold %d must exceed min_confirm %d", gap, n.MinConfirm)
	}
	return nil
}

// IsNative reports whether asset is the network's own coin.
func (n Network) IsNative(asset string) bool {
	return strings.EqualFold(asset, n.NativeAsset)
}

// Token is a contract-issued asset listed on a network.
type Token struct {
	Symbol   string
	Contract string
	Decimals int32
}

// FeePolicy describes how much native coin the hot wallet must hold before
// a payout is attempted, and how it gets topped up.
type FeePolicy struct {
	// Reserve is the minimum native balance kept for network fees.
	Reserve decimal.Decimal
	// TopUp is the amount sent from the fee wallet when the reserve is short.
	TopUp decimal.Decimal
	// FeeLimit caps energy spend for TRON contract calls, in sun.
	FeeLimit int64
	// TokenGasLimit is the gas limit for EVM token transfers.
	TokenGasLimit uint64
}
