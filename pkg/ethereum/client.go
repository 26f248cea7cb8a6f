package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// Backend is the part of the go-ethereum client API the deployer uses.
// *ethclient.Client and the simulated backend's client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Contract is a handle to a deployed (or deploying) contract.
type Contract struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
	// DeployTx is the creation transaction; nil for handles to existing contracts.
	DeployTx *types.Transaction
}

// Receipt is the outcome of waiting for a transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	// ConfirmedAt is the chain head at which the requested depth was observed.
	ConfirmedAt uint64
	GasUsed     uint64
	Status      uint64
}

// ClientOptions tunes a Client.
type ClientOptions struct {
	// Namespace prefixes the metric names.
	Namespace string
	// PollInterval is how often receipts and the chain head are polled.
	PollInterval time.Duration
	// ExpectedChainID fails construction if the backend reports another chain. Zero disables the check.
	ExpectedChainID uint64
}

// Client signs and submits transactions with a single key against one backend.
type Client struct {
	log          logrus.FieldLogger
	backend      Backend
	network      string
	chainID      *big.Int
	key          *ecdsa.PrivateKey
	address      common.Address
	pollInterval time.Duration
	metrics      *Metrics

	closers []func() error
}

// NewClient binds a signing key to a backend. It asks the backend for its
// chain ID once, to build the EIP-155 signer.
func NewClient(ctx context.Context, log logrus.FieldLogger, network string, backend Backend, privateKey string, opts ClientOptions) (*Client, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	if opts.Namespace == "" {
		opts.Namespace = "aidroute_deployer"
	}

	c := &Client{
		log:          log.WithFields(logrus.Fields{"component": "ethereum/client", "network": network}),
		backend:      backend,
		network:      network,
		key:          key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		pollInterval: opts.PollInterval,
		metrics:      GetMetricsInstance(opts.Namespace),
	}

	start := time.Now()

	chainID, err := backend.ChainID(ctx)

	c.metrics.ObserveRPCCall(network, "eth_chainId", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	if opts.ExpectedChainID != 0 && chainID.Uint64() != opts.ExpectedChainID {
		return nil, fmt.Errorf("%w: node reports %d, configured %d", ErrChainIDMismatch, chainID.Uint64(), opts.ExpectedChainID)
	}

	c.chainID = chainID

	c.log.WithFields(logrus.Fields{
		"chain_id": chainID.String(),
		"address":  c.address.Hex(),
	}).Debug("Chain client ready")

	return c, nil
}

// ParsePrivateKey parses a hex private key with or without 0x prefix.
func ParsePrivateKey(v string) (*ecdsa.PrivateKey, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	if v == "" {
		return nil, ErrNoSigner
	}

	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return key, nil
}

// Address returns the deployer address.
func (c *Client) Address() common.Address {
	return c.address
}

// ChainID returns the chain ID reported by the backend.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Network returns the configured network name.
func (c *Client) Network() string {
	return c.network
}

// Close releases the backend.
func (c *Client) Close() error {
	var firstErr error

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.closers = nil

	return firstErr
}

func (c *Client) onClose(fn func() error) {
	c.closers = append(c.closers, fn)
}

// BalanceAt returns the latest native balance of account.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	start := time.Now()

	balance, err := c.backend.BalanceAt(ctx, account, nil)

	c.metrics.ObserveRPCCall(c.network, "eth_getBalance", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", account.Hex(), err)
	}

	return balance, nil
}

// DeployContract signs and submits a contract creation transaction. The
// returned handle is bound to the address the contract will occupy; the
// transaction is not yet mined.
func (c *Client) DeployContract(ctx context.Context, artifact *Artifact, args ...any) (*Contract, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	opts.Context = ctx

	start := time.Now()

	address, tx, _, err := bind.DeployContract(opts, artifact.ABI, artifact.Bytecode, c.backend, args...)

	c.metrics.ObserveRPCCall(c.network, "eth_sendRawTransaction", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", artifact.ContractName, err)
	}

	c.log.WithFields(logrus.Fields{
		"contract": artifact.ContractName,
		"address":  address.Hex(),
		"tx_hash":  tx.Hash().Hex(),
		"nonce":    tx.Nonce(),
	}).Debug("Submitted contract creation")

	return &Contract{
		Name:     artifact.ContractName,
		Address:  address,
		ABI:      artifact.ABI,
		DeployTx: tx,
	}, nil
}

// Read performs a read-only call against the latest state.
func (c *Client) Read(ctx context.Context, contract *Contract, method string, args ...any) ([]any, error) {
	bound := bind.NewBoundContract(contract.Address, contract.ABI, c.backend, c.backend, c.backend)

	var out []any

	start := time.Now()

	err := bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)

	c.metrics.ObserveRPCCall(c.network, "eth_call", start, err)

	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", contract.Name, method, err)
	}

	return out, nil
}
