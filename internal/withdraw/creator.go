package withdraw

import (
	"context"
	"fmt"

	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/emperorhan/custody-settlement/internal/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is one outgoing transfer.
type Payment struct {
	TransferID uuid.UUID
	To         string
	Asset      string
	Amount     decimal.Decimal
}

// TransactionCreator builds, signs and broadcasts payments for one network.
// Failures are returned as *TransactionCreationError.
type TransactionCreator interface {
	Send(ctx context.Context, from wallet.Wallet, p Payment) (txHash string, err error)
	// NativeBalance returns the native coin balance of address.
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// NewCreator picks the creator variant for the network. client must be the
// chain's RPC client: a TronClient or an EVMClient.
func NewCreator(network model.Network, client any) (TransactionCreator, error) {
	switch network.Chain.Kind() {
	case model.ChainKindAccount:
		c, ok := client.(TronClient)
		if !ok {
			return nil, fmt.Errorf("network %s: client %T is not a tron client", network.Symbol, client)
		}
		return NewTronCreator(network, c), nil
	case model.ChainKindEVM:
		c, ok := client.(EVMClient)
		if !ok {
			return nil, fmt.Errorf("network %s: client %T is not an evm client", network.Symbol, client)
		}
		return NewEVMCreator(network, c), nil
	default:
		return nil, fmt.Errorf("%w: %s", wallet.ErrUnsupportedNetwork, network.Symbol)
	}
}

func decimalsFor(network model.Network, asset string) (int32, error) {
	d, ok := network.Decimals(asset)
	if !ok {
		return 0, fmt.Errorf("asset %s is not carried by %s", asset, network.Symbol)
	}
	return d, nil
}
