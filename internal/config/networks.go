package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/emperorhan/custody-settlement/internal/chain/rpcpool"
	"github.com/emperorhan/custody-settlement/internal/domain/model"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const defaultMaxBroadcastAttempts = 3

type networksFile struct {
	Networks []NetworkConfig `yaml:"networks"`
}

// NetworkConfig is one entry of the networks file.
type NetworkConfig struct {
	Symbol           string           `yaml:"symbol"`
	Chain            model.Chain      `yaml:"chain"`
	Enabled          *bool            `yaml:"enabled"`
	NativeAsset      string           `yaml:"native_asset"`
	NativeDecimals   int32            `yaml:"native_decimals"`
	MinConfirm       int64            `yaml:"min_confirm"`
	ForwardThreshold int64            `yaml:"forward_threshold"`
	ChainID          int64            `yaml:"chain_id"`
	ListedAssets     []string         `yaml:"listed_assets"`
	Endpoints        []EndpointConfig `yaml:"endpoints"`
	CallTimeout      time.Duration    `yaml:"call_timeout"`
	Breaker          BreakerConfig    `yaml:"breaker"`
	Tokens           []TokenConfig    `yaml:"tokens"`
	Fee              FeeConfig        `yaml:"fee"`
	Wallets          WalletsConfig    `yaml:"wallets"`
	// OnlyHead records just the chain head on every run instead of walking
	// the gap. It is meant for bringing a network online.
	OnlyHead bool `yaml:"only_head"`
	// MaxBroadcastAttempts bounds retries of one withdrawal before it needs
	// an operator.
	MaxBroadcastAttempts int `yaml:"max_broadcast_attempts"`
}

type EndpointConfig struct {
	URL    string  `yaml:"url"`
	APIKey string  `yaml:"api_key"`
	RPS    float64 `yaml:"rps"`
	Burst  int     `yaml:"burst"`
}

type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

type TokenConfig struct {
	Symbol   string `yaml:"symbol"`
	Contract string `yaml:"contract"`
	Decimals int32  `yaml:"decimals"`
}

// FeeConfig amounts are decimal strings in the native asset.
type FeeConfig struct {
	Reserve       string `yaml:"reserve"`
	TopUp         string `yaml:"top_up"`
	FeeLimit      int64  `yaml:"fee_limit"`
	TokenGasLimit uint64 `yaml:"token_gas_limit"`
}

type WalletsConfig struct {
	Hot KeyConfig `yaml:"hot"`
	Fee KeyConfig `yaml:"fee"`
}

// KeyConfig references a signing key: either a raw hex private key or a
// BIP-39 mnemonic with a derivation path.
type KeyConfig struct {
	PrivateKey string `yaml:"private_key"`
	Mnemonic   string `yaml:"mnemonic"`
	Path       string `yaml:"path"`
}

func (k KeyConfig) Empty() bool {
	return k.PrivateKey == "" && k.Mnemonic == ""
}

func (n NetworkConfig) IsEnabled() bool {
	return n.Enabled == nil || *n.Enabled
}

func (n NetworkConfig) BroadcastAttempts() int {
	if n.MaxBroadcastAttempts <= 0 {
		return defaultMaxBroadcastAttempts
	}
	return n.MaxBroadcastAttempts
}

// Listed returns the listed assets, or nil (everything) when unset.
func (n NetworkConfig) Listed() model.AssetSet {
	if len(n.ListedAssets) == 0 {
		return nil
	}
	return model.NewAssetSet(n.ListedAssets...)
}

// Model converts the entry to the domain network.
func (n NetworkConfig) Model() (model.Network, error) {
	net := model.Network{
		Symbol:           strings.ToUpper(n.Symbol),
		Chain:            n.Chain,
		NativeAsset:      strings.ToUpper(n.NativeAsset),
		NativeDecimals:   n.NativeDecimals,
		MinConfirm:       n.MinConfirm,
		ForwardThreshold: n.ForwardThreshold,
		ChainID:          n.ChainID,
		Fee: model.FeePolicy{
			FeeLimit:      n.Fee.FeeLimit,
			TokenGasLimit: n.Fee.TokenGasLimit,
		},
	}
	for _, t := range n.Tokens {
		net.Tokens = append(net.Tokens, model.Token{
			Symbol:   strings.ToUpper(t.Symbol),
			Contract: t.Contract,
			Decimals: t.Decimals,
		})
	}
	var err error
	if net.Fee.Reserve, err = parseAmount(n.Fee.Reserve); err != nil {
		return model.Network{}, fmt.Errorf("network %s: fee.reserve: %w", n.Symbol, err)
	}
	if net.Fee.TopUp, err = parseAmount(n.Fee.TopUp); err != nil {
		return model.Network{}, fmt.Errorf("network %s: fee.top_up: %w", n.Symbol, err)
	}
	return net, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", s)
	}
	return d, nil
}

// PoolConfig builds the RPC pool settings for this network.
func (n NetworkConfig) PoolConfig() rpcpool.Config {
	cfg := rpcpool.Config{
		Network:     strings.ToUpper(n.Symbol),
		CallTimeout: n.CallTimeout,
		Breaker: rpcpool.BreakerConfig{
			FailureThreshold: n.Breaker.FailureThreshold,
			SuccessThreshold: n.Breaker.SuccessThreshold,
			OpenTimeout:      n.Breaker.OpenTimeout,
		},
	}
	for _, ep := range n.Endpoints {
		cfg.Endpoints = append(cfg.Endpoints, rpcpool.Endpoint{
			URL:    ep.URL,
			APIKey: ep.APIKey,
			RPS:    ep.RPS,
			Burst:  ep.Burst,
		})
	}
	return cfg
}

// LoadNetworks reads and validates the networks file, expanding ${VAR}
// references from the environment.
func LoadNetworks(path string) ([]NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read networks file: %w", err)
	}
	return ParseNetworks(data, os.LookupEnv)
}

// ParseNetworks decodes a networks document. Unset variables expand to the
// empty string and are caught by validation where a value is required.
func ParseNetworks(data []byte, lookup func(string) (string, bool)) ([]NetworkConfig, error) {
	expanded := os.Expand(string(data), func(name string) string {
		v, _ := lookup(name)
		return v
	})

	var doc networksFile
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode networks file: %w", err)
	}

	seen := make(map[string]bool)
	var errs []error
	for i := range doc.Networks {
		n := &doc.Networks[i]
		n.Symbol = strings.ToUpper(strings.TrimSpace(n.Symbol))
		if seen[n.Symbol] {
			errs = append(errs, fmt.Errorf("network %s: duplicate symbol", n.Symbol))
			continue
		}
		seen[n.Symbol] = true
		if err := n.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return doc.Networks, nil
}

func (n NetworkConfig) validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("network %s: "+format, append([]any{n.Symbol}, args...)...))
	}
	if n.Symbol == "" {
		errs = append(errs, errors.New("network entry without symbol"))
		return errors.Join(errs...)
	}
	if !n.Chain.Valid() {
		fail("unsupported chain %q", n.Chain)
	}
	if n.NativeAsset == "" {
		fail("native_asset is required")
	}
	if n.NativeDecimals <= 0 {
		fail("native_decimals must be positive")
	}
	if n.MinConfirm < 0 {
		fail("min_confirm must not be negative")
	}
	if n.ForwardThreshold < 0 {
		fail("forward_threshold must not be negative")
	}
	if n.MinConfirm > 0 && n.ForwardThreshold >= 0 {
		if err := (model.Network{MinConfirm: n.MinConfirm, ForwardThreshold: n.ForwardThreshold}).CheckDepth(); err != nil {
			fail("%v", err)
		}
	}
	if !n.IsEnabled() {
		return errors.Join(errs...)
	}
	if len(n.Endpoints) == 0 {
		fail("at least one endpoint is required")
	}
	for i, ep := range n.Endpoints {
		if ep.URL == "" {
			fail("endpoints[%d].url is empty", i)
		}
	}
	if n.Chain.Kind() == model.ChainKindEVM && n.ChainID <= 0 {
		fail("chain_id is required for evm chains")
	}
	for i, t := range n.Tokens {
		if t.Symbol == "" || t.Contract == "" {
			fail("tokens[%d] needs symbol and contract", i)
		}
		if t.Decimals < 0 {
			fail("tokens[%d].decimals must not be negative", i)
		}
	}
	if _, err := n.Model(); err != nil {
		errs = append(errs, err)
	}
	if n.Wallets.Hot.Mnemonic != "" && n.Wallets.Hot.Path == "" {
		fail("wallets.hot.path is required with a mnemonic")
	}
	if n.Wallets.Fee.Mnemonic != "" && n.Wallets.Fee.Path == "" {
		fail("wallets.fee.path is required with a mnemonic")
	}
	return errors.Join(errs...)
}
