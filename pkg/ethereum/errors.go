package ethereum

import "errors"

// Sentinel errors for chain client operations.
var (
	// ErrNoSigner indicates no private key was configured for the network.
	ErrNoSigner = errors.New("no signing key configured")

	// ErrChainIDMismatch indicates the node reports a different chain than configured.
	ErrChainIDMismatch = errors.New("chain ID mismatch")

	// ErrTransactionReverted indicates the transaction was mined with a failed status.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrEmptyBytecode indicates the artifact has no creation bytecode (interface or abstract contract).
	ErrEmptyBytecode = errors.New("artifact has no bytecode")

	// ErrUnsupportedNetworkType indicates the network type has no backend.
	ErrUnsupportedNetworkType = errors.New("unsupported network type")
)
