// Package wallet holds the exchange's signing keys. A Wallet is chosen once
// from the network's chain family and never changes variant afterwards.
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/emperorhan/custody-settlement/internal/chain/tron"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrUnsupportedNetwork = errors.New("unsupported network")

// Wallet is implemented by *TronWallet and *EVMWallet.
type Wallet interface {
	Network() string
	Address() string
	Kind() model.ChainKind
}

// New binds key to network, picking the variant from the chain family.
func New(network model.Network, key *ecdsa.PrivateKey) (Wallet, error) {
	if key == nil {
		return nil, errors.New("nil private key")
	}
	switch network.Chain.Kind() {
	case model.ChainKindAccount:
		return &TronWallet{
			network: network.Symbol,
			key:     key,
			address: tron.EncodeAddress(crypto.PubkeyToAddress(key.PublicKey).Bytes()),
		}, nil
	case model.ChainKindEVM:
		if network.ChainID <= 0 {
			return nil, fmt.Errorf("network %s: missing chain id", network.Symbol)
		}
		return &EVMWallet{
			network: network.Symbol,
			chainID: big.NewInt(network.ChainID),
			key:     key,
			address: crypto.PubkeyToAddress(key.PublicKey),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s (chain %q)", ErrUnsupportedNetwork, network.Symbol, network.Chain)
	}
}

// TronWallet signs account-model transactions by their txID.
type TronWallet struct {
	network string
	key     *ecdsa.PrivateKey
	address string
}

func (w *TronWallet) Network() string       { return w.network }
func (w *TronWallet) Address() string       { return w.address }
func (w *TronWallet) Kind() model.ChainKind { return model.ChainKindAccount }

// SignTxID returns the hex [R||S||V] signature over the transaction id, which
// is already the sha256 of the raw data.
func (w *TronWallet) SignTxID(txID string) (string, error) {
	digest, err := hex.DecodeString(strings.TrimPrefix(txID, "0x"))
	if err != nil {
		return "", fmt.Errorf("decode txID: %w", err)
	}
	if len(digest) != 32 {
		return "", fmt.Errorf("txID must be 32 bytes, got %d", len(digest))
	}
	sig, err := crypto.Sign(digest, w.key)
	if err != nil {
		return "", fmt.Errorf("sign txID: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// EVMWallet signs EIP-155 transactions for one chain id.
type EVMWallet struct {
	network string
	chainID *big.Int
	key     *ecdsa.PrivateKey
	address common.Address
}

func (w *EVMWallet) Network() string       { return w.network }
func (w *EVMWallet) Address() string       { return w.address.Hex() }
func (w *EVMWallet) Kind() model.ChainKind { return model.ChainKindEVM }
func (w *EVMWallet) ChainID() *big.Int     { return new(big.Int).Set(w.chainID) }

func (w *EVMWallet) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.NewEIP155Signer(w.chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return signed, nil
}
