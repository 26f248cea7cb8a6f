package deployer

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoBalance is the precondition failure for an unfunded deployer.
var ErrNoBalance = errors.New("deployer account has no ETH for gas fees")

// ErrNoDeploymentTx is returned when the chain client returns a contract
// handle without its creation transaction.
var ErrNoDeploymentTx = errors.New("deployment transaction missing")

// Kind classifies a failed run.
type Kind string

const (
	// KindPrecondition failures happen before any on-chain action.
	KindPrecondition Kind = "PRECONDITION"
	// KindFatal covers submission, confirmation, revert and cancellation failures.
	KindFatal Kind = "FATAL"
	// KindTimeout is a confirmation wait that ran past its deadline.
	KindTimeout Kind = "TIMEOUT"
)

// Error is returned by Run when a required step fails.
type Error struct {
	Kind Kind
	// State is the last state reached before the failure.
	State State
	Step  string
	// ContractAddress is set once the creation transaction was submitted.
	ContractAddress *common.Address
	Err             error
}

func (e *Error) Error() string {
	if e.ContractAddress != nil {
		return fmt.Sprintf("%s failure in %s (state %s, contract %s): %v", e.Kind, e.Step, e.State, e.ContractAddress.Hex(), e.Err)
	}

	return fmt.Sprintf("%s failure in %s (state %s): %v", e.Kind, e.Step, e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a Run error, or "" if err did not come from Run.
func KindOf(err error) Kind {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}

	return ""
}
