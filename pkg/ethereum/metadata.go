package ethereum

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ClientKind is the execution client family parsed from web3_clientVersion.
type ClientKind string

const (
	ClientUnknown    ClientKind = "unknown"
	ClientGeth       ClientKind = "geth"
	ClientNethermind ClientKind = "nethermind"
	ClientBesu       ClientKind = "besu"
	ClientErigon     ClientKind = "erigon"
	ClientReth       ClientKind = "reth"
	ClientHardhat    ClientKind = "hardhat"
	ClientAnvil      ClientKind = "anvil"
)

var clientPrefixes = []ClientKind{
	ClientGeth,
	ClientNethermind,
	ClientBesu,
	ClientErigon,
	ClientReth,
	ClientHardhat,
	ClientAnvil,
}

// ClientFromString maps a client version string (e.g. "Geth/v1.14.0-stable/linux-amd64/go1.22")
// to its family.
func ClientFromString(version string) ClientKind {
	lower := strings.ToLower(version)

	for _, kind := range clientPrefixes {
		if strings.HasPrefix(lower, string(kind)) {
			return kind
		}
	}

	return ClientUnknown
}

// NodeInfo is what a node reports about itself.
type NodeInfo struct {
	ChainID       uint64
	ClientVersion string
	Client        ClientKind
}

// FetchNodeInfo queries eth_chainId and web3_clientVersion. The client
// version is optional: nodes that reject the call still yield a chain ID.
func FetchNodeInfo(ctx context.Context, rpcClient *rpc.Client) (*NodeInfo, error) {
	var rawChainID string

	if err := rpcClient.CallContext(ctx, &rawChainID, "eth_chainId"); err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	chainID, err := hexutil.DecodeUint64(rawChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chain ID %s: %w", rawChainID, err)
	}

	info := &NodeInfo{
		ChainID: chainID,
		Client:  ClientUnknown,
	}

	var version string

	if err := rpcClient.CallContext(ctx, &version, "web3_clientVersion"); err == nil {
		info.ClientVersion = version
		info.Client = ClientFromString(version)
	}

	return info, nil
}

// ProbeEndpoint dials url, fetches NodeInfo and disconnects.
func ProbeEndpoint(ctx context.Context, url string) (*NodeInfo, error) {
	rpcClient, err := DialRPC(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rpcClient.Close()

	return FetchNodeInfo(ctx, rpcClient)
}
