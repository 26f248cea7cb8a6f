package config

import (
	"fmt"
	"time"
)

// NetworkType selects the chain backend for a network.
type NetworkType string

const (
	// NetworkTypeHTTP talks JSON-RPC to a node.
	NetworkTypeHTTP NetworkType = "http"
	// NetworkTypeSimulated runs an in-process chain for the duration of the command.
	NetworkTypeSimulated NetworkType = "simulated"
)

const (
	// SepoliaChainID is the chain id of the public test network.
	SepoliaChainID uint64 = 11155111
	// SimulatedChainID matches go-ethereum's dev chain config used by the simulated backend.
	SimulatedChainID uint64 = 1337

	// DevPrivateKey is development account #0 shared by local dev nodes (hardhat, anvil).
	// Never fund it on a public network.
	DevPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	// DefaultBlockTime is used by simulated networks that do not set blockTime.
	DefaultBlockTime = 200 * time.Millisecond

	defaultSepoliaRPCURL = "https://ethereum-sepolia-rpc.publicnode.com"
	defaultLocalhostURL  = "http://127.0.0.1:8545"
)

// NetworkConfig describes one selectable network.
type NetworkConfig struct {
	// Type is http or simulated.
	Type NetworkType `yaml:"type"`
	// URL is the JSON-RPC endpoint fallback.
	URL string `yaml:"url,omitempty"`
	// URLEnv overrides URL when set and non-empty.
	URLEnv string `yaml:"urlEnv,omitempty"`
	// ChainID is the expected chain id. Zero means "whatever the node reports".
	ChainID uint64 `yaml:"chainId,omitempty"`
	// PrivateKey is the literal fallback signing key (hex).
	PrivateKey string `yaml:"privateKey,omitempty"`
	// PrivateKeyEnv overrides PrivateKey when set and non-empty.
	PrivateKeyEnv string `yaml:"privateKeyEnv,omitempty"`
	// DevAccounts signs with DevPrivateKey when no key is configured.
	DevAccounts bool `yaml:"devAccounts,omitempty"`
	// BlockTime is the block production interval of simulated networks.
	// Zero means DefaultBlockTime.
	BlockTime time.Duration `yaml:"blockTime,omitempty"`
}

// Validate validates the network configuration.
func (n *NetworkConfig) Validate() error {
	switch n.Type {
	case NetworkTypeHTTP:
		if n.URL == "" && n.URLEnv == "" {
			return fmt.Errorf("url or urlEnv is required for http networks")
		}
	case NetworkTypeSimulated:
		if n.BlockTime < 0 {
			return fmt.Errorf("blockTime must not be negative")
		}
	default:
		return fmt.Errorf("unknown network type %q", n.Type)
	}

	return nil
}

// mergeOver returns base with every field set in n applied on top.
// DevAccounts can only be switched on by an override.
func (n *NetworkConfig) mergeOver(base *NetworkConfig) *NetworkConfig {
	merged := *base

	if n.Type != "" {
		merged.Type = n.Type
	}

	if n.URL != "" {
		merged.URL = n.URL
	}

	if n.URLEnv != "" {
		merged.URLEnv = n.URLEnv
	}

	if n.ChainID != 0 {
		merged.ChainID = n.ChainID
	}

	if n.PrivateKey != "" {
		merged.PrivateKey = n.PrivateKey
	}

	if n.PrivateKeyEnv != "" {
		merged.PrivateKeyEnv = n.PrivateKeyEnv
	}

	if n.DevAccounts {
		merged.DevAccounts = true
	}

	if n.BlockTime != 0 {
		merged.BlockTime = n.BlockTime
	}

	return &merged
}

// DefaultNetworks mirrors the networks the contract project ships with.
func DefaultNetworks() map[string]*NetworkConfig {
	return map[string]*NetworkConfig{
		"hardhat": {
			Type:        NetworkTypeSimulated,
			ChainID:     SimulatedChainID,
			DevAccounts: true,
			BlockTime:   DefaultBlockTime,
		},
		"localhost": {
			Type:        NetworkTypeHTTP,
			URL:         defaultLocalhostURL,
			DevAccounts: true,
		},
		"sepolia": {
			Type:          NetworkTypeHTTP,
			URL:           defaultSepoliaRPCURL,
			URLEnv:        "SEPOLIA_RPC_URL",
			ChainID:       SepoliaChainID,
			PrivateKeyEnv: "SEPOLIA_PRIVATE_KEY",
		},
	}
}
