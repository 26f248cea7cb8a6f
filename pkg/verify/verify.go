// Package verify submits deployed contracts to a block explorer for source
// verification.
package verify

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrAlreadyVerified is returned when the explorer already holds source for the address.
	ErrAlreadyVerified = errors.New("contract source code already verified")

	// ErrVerificationFailed is returned when the explorer rejects the submission.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrBuildInfoNotFound is returned when no build-info file contains the contract.
	ErrBuildInfoNotFound = errors.New("build info not found")
)

// Request identifies a deployed contract and how it was constructed.
type Request struct {
	Address         common.Address
	SourceName      string
	ContractName    string
	ConstructorArgs []byte
}

// FullyQualifiedName returns "<sourceName>:<contractName>".
func (r Request) FullyQualifiedName() string {
	return r.SourceName + ":" + r.ContractName
}

// Verifier submits a contract for verification and waits for the outcome.
type Verifier interface {
	Verify(ctx context.Context, req Request) error
}

// IsAlreadyVerified reports whether err means the contract was verified
// before this attempt. Explorer messages are matched as well as the sentinel.
func IsAlreadyVerified(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrAlreadyVerified) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "already verified")
}
