package model

// Chain identifies a blockchain family. Several networks may share one.
type Chain string

const (
	ChainTron     Chain = "tron"
	ChainEthereum Chain = "ethereum"
	ChainBSC      Chain = "bsc"
	ChainPolygon  Chain = "polygon"
	ChainArbitrum Chain = "arbitrum"
)

func (c Chain) String() string {
	return string(c)
}

// ChainKind separates the account-model chain from the EVM family. Adapter
// and wallet variants are chosen from it.
type ChainKind string

const (
	ChainKindAccount ChainKind = "account"
	ChainKindEVM     ChainKind = "evm"
)

func (c Chain) Kind() ChainKind {
	switch c {
	case ChainTron:
		return ChainKindAccount
	case ChainEthereum, ChainBSC, ChainPolygon, ChainArbitrum:
		return ChainKindEVM
	default:
		return ""
	}
}

// Valid reports whether c names a supported chain.
func (c Chain) Valid() bool {
	return c.Kind() != ""
}
