// Package amount converts between a chain's integer base units and the
// decimal amounts stored on transfers.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNegative        = errors.New("amount is negative")
	ErrExcessPrecision = errors.New("amount has more decimals than the asset supports")
)

// Normalizer converts amounts for one asset precision.
type Normalizer struct {
	decimals int32
}

func NewNormalizer(decimals int32) Normalizer {
	return Normalizer{decimals: decimals}
}

func (n Normalizer) Decimals() int32 {
	return n.decimals
}

// ToDecimal turns base units (wei, sun) into a decimal amount.
func (n Normalizer) ToDecimal(units *big.Int) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -n.decimals)
}

// FromDecimal turns a decimal amount into base units.
func (n Normalizer) FromDecimal(d decimal.Decimal) (*big.Int, error) {
	if d.IsNegative() {
		return nil, ErrNegative
	}
	shifted := d.Shift(n.decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%s with %d decimals: %w", d.String(), n.decimals, ErrExcessPrecision)
	}
	return shifted.BigInt(), nil
}

// ParseHex parses a 0x-prefixed or bare hex quantity into base units and
// returns it as a decimal amount.
func (n Normalizer) ParseHex(s string) (decimal.Decimal, error) {
	units, err := ParseHexInt(s)
	if err != nil {
		return decimal.Zero, err
	}
	return n.ToDecimal(units), nil
}

// ParseHexInt parses a hex quantity. An empty payload ("0x" or "") is zero.
func ParseHexInt(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return v, nil
}
