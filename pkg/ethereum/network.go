package ethereum

import (
	"fmt"
)

type Network struct {
	ID   uint64
	Name string
}

var networkMap = map[uint64]Network{
	1:        {ID: 1, Name: "mainnet"},
	1337:     {ID: 1337, Name: "dev"},
	17000:    {ID: 17000, Name: "holesky"},
	31337:    {ID: 31337, Name: "hardhat"},
	560048:   {ID: 560048, Name: "hoodi"},
	11155111: {ID: 11155111, Name: "sepolia"},
}

// GetNetworkByChainID returns the network information for the given chain ID
func GetNetworkByChainID(chainID uint64) (*Network, error) {
	network, exists := networkMap[chainID]
	if !exists {
		return nil, fmt.Errorf("unsupported chain ID: %d", chainID)
	}

	return &network, nil
}

// NetworkName returns the well-known name of a chain ID, or "unknown".
func NetworkName(chainID uint64) string {
	if network, err := GetNetworkByChainID(chainID); err == nil {
		return network.Name
	}

	return "unknown"
}
