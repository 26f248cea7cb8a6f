package ethereum

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/aidroute/deployer/pkg/config"
)

// Open builds a Client for a resolved network: a JSON-RPC connection for http
// networks, a fresh in-process chain funded for the deployer for simulated ones.
func Open(ctx context.Context, log logrus.FieldLogger, resolved *config.Resolved, opts ClientOptions) (*Client, error) {
	opts.ExpectedChainID = resolved.ChainID

	switch resolved.Type {
	case config.NetworkTypeHTTP:
		rpcClient, err := DialRPC(ctx, resolved.RPCURL)
		if err != nil {
			return nil, err
		}

		client, err := NewClient(ctx, log, resolved.NetworkName, ethclient.NewClient(rpcClient), resolved.PrivateKey, opts)
		if err != nil {
			rpcClient.Close()

			return nil, err
		}

		client.onClose(func() error {
			rpcClient.Close()

			return nil
		})

		return client, nil
	case config.NetworkTypeSimulated:
		key, err := ParsePrivateKey(resolved.PrivateKey)
		if err != nil {
			return nil, err
		}

		sim, err := NewSimulatedBackend(log, types.GenesisAlloc{
			crypto.PubkeyToAddress(key.PublicKey): {Balance: SimulatedPrefund},
		}, resolved.BlockTime)
		if err != nil {
			return nil, err
		}

		client, err := NewClient(ctx, log, resolved.NetworkName, sim, resolved.PrivateKey, opts)
		if err != nil {
			_ = sim.Close()

			return nil, err
		}

		client.onClose(sim.Close)

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNetworkType, resolved.Type)
	}
}

// DialRPC connects to a JSON-RPC endpoint. Request lifetimes are governed by
// the caller's context rather than a client-wide timeout.
func DialRPC(ctx context.Context, url string) (*rpc.Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	rpcClient, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client for %s: %w", url, err)
	}

	return rpcClient, nil
}
