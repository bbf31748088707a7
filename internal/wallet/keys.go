package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/tyler-smith/go-bip39"
)

// KeySource names a key either as raw hex or as a BIP-39 mnemonic plus a
// BIP-32 derivation path. PrivateKey wins when both are set.
type KeySource struct {
	PrivateKey string
	Mnemonic   string
	Path       string
}

var ErrNoKey = errors.New("no key configured")

func LoadKey(src KeySource) (*ecdsa.PrivateKey, error) {
	if src.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(src.PrivateKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return key, nil
	}
	if src.Mnemonic == "" {
		return nil, ErrNoKey
	}

	mnemonic := strings.Join(strings.Fields(src.Mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	hd, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("open mnemonic: %w", err)
	}
	path, err := hdwallet.ParseDerivationPath(src.Path)
	if err != nil {
		return nil, fmt.Errorf("derivation path %q: %w", src.Path, err)
	}
	account, err := hd.Derive(path, false)
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", src.Path, err)
	}
	key, err := hd.PrivateKey(account)
	if err != nil {
		return nil, fmt.Errorf("private key for %s: %w", src.Path, err)
	}
	return key, nil
}
