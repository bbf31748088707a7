package tron

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// AddressPrefix is the version byte of mainnet addresses.
const AddressPrefix byte = 0x41

// EncodeAddress renders a 20-byte account hash as a base58check address.
func EncodeAddress(hash20 []byte) string {
	return base58.CheckEncode(hash20, AddressPrefix)
}

// HexToBase58 converts a node-format address ("41" + 40 hex) to base58check.
func HexToBase58(h string) (string, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(h), "0x"))
	if err != nil {
		return "", fmt.Errorf("address %q: %w", h, err)
	}
	if len(b) != 21 || b[0] != AddressPrefix {
		return "", fmt.Errorf("address %q: want 21 bytes with prefix 41", h)
	}
	return EncodeAddress(b[1:]), nil
}

// Base58ToHex converts a base58check address to node format.
func Base58ToHex(addr string) (string, error) {
	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return "", fmt.Errorf("address %q: %w", addr, err)
	}
	if version != AddressPrefix || len(payload) != 20 {
		return "", fmt.Errorf("address %q: not a tron address", addr)
	}
	return "41" + hex.EncodeToString(payload), nil
}

// ValidAddress reports whether addr is a well-formed base58check address.
func ValidAddress(addr string) bool {
	_, err := Base58ToHex(addr)
	return err == nil
}

// normalizeAddress accepts either encoding and returns base58check.
func normalizeAddress(addr string) (string, error) {
	if ValidAddress(addr) {
		return addr, nil
	}
	return HexToBase58(addr)
}
