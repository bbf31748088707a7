package tron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdtBase58 = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	usdtHex    = "41a614f803b6fd780986a42c78ec9c7f77e6ded13c"
)

func TestAddressConversion(t *testing.T) {
	t.Parallel()

	b58, err := HexToBase58(usdtHex)
	require.NoError(t, err)
	assert.Equal(t, usdtBase58, b58)

	upper, err := HexToBase58("0x41A614F803B6FD780986A42C78EC9C7F77E6DED13C")
	require.NoError(t, err)
	assert.Equal(t, usdtBase58, upper)

	h, err := Base58ToHex(usdtBase58)
	require.NoError(t, err)
	assert.Equal(t, usdtHex, h)
}

func TestAddressConversion_Rejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		"zz",
		"a614f803b6fd780986a42c78ec9c7f77e6ded13c",   // missing prefix
		"42a614f803b6fd780986a42c78ec9c7f77e6ded13c", // wrong prefix
		"41a614f803b6fd780986a42c78ec9c7f77e6ded1",   // short
	} {
		_, err := HexToBase58(in)
		assert.Error(t, err, in)
	}

	for _, in := range []string{
		"",
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u", // checksum
		"0xa614f803b6fd780986a42c78ec9c7f77e6ded13c",
		"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", // bitcoin
	} {
		assert.False(t, ValidAddress(in), in)
	}
	assert.True(t, ValidAddress(usdtBase58))
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	a, err := normalizeAddress(usdtHex)
	require.NoError(t, err)
	b, err := normalizeAddress(usdtBase58)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
