package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownNetwork is returned when the selected network is not configured.
var ErrUnknownNetwork = errors.New("unknown network")

// Resolved is the configuration of a single run against one network.
// Values are taken as found: an invalid URL or key is reported by whichever
// component first tries to use it.
type Resolved struct {
	NetworkName     string
	Type            NetworkType
	RPCURL          string
	ChainID         uint64
	PrivateKey      string
	AssetAddress    string
	EtherscanAPIKey string
	BlockTime       time.Duration
}

// Resolve selects a network by name and fills in every value from env,
// falling back to the configured literals. An empty name selects
// DefaultNetwork.
func (c *Config) Resolve(env Env, name string) (*Resolved, error) {
	if name == "" {
		name = c.DefaultNetwork
	}

	network, ok := c.Networks[name]
	if !ok || network == nil {
		return nil, fmt.Errorf("%w: %q (configured: %s)", ErrUnknownNetwork, name, strings.Join(c.NetworkNames(), ", "))
	}

	key := env.or(network.PrivateKeyEnv, network.PrivateKey)
	if key == "" && network.DevAccounts {
		key = DevPrivateKey
	}

	resolved := &Resolved{
		NetworkName:     name,
		Type:            network.Type,
		RPCURL:          env.or(network.URLEnv, network.URL),
		ChainID:         network.ChainID,
		PrivateKey:      key,
		AssetAddress:    env.or(c.Deployment.AssetAddressEnv, c.Deployment.AssetAddress),
		EtherscanAPIKey: env.or(c.Etherscan.APIKeyEnv, c.Etherscan.APIKey),
		BlockTime:       network.BlockTime,
	}

	return resolved, nil
}

// HasSigner reports whether a signing credential is present.
func (r *Resolved) HasSigner() bool {
	return r.PrivateKey != ""
}

// VerificationEnabled reports whether source verification should run for this
// network under the given verification network name.
func (r *Resolved) VerificationEnabled(verifyNetwork string) bool {
	return r.NetworkName == verifyNetwork && r.EtherscanAPIKey != ""
}
