// Package deployer runs the AidRouteMissions deployment as an explicit state
// machine: balance check, creation, confirmation, stats read-back and
// optional source verification.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	pcommon "github.com/aidroute/deployer/pkg/common"
	"github.com/aidroute/deployer/pkg/ethereum"
	"github.com/aidroute/deployer/pkg/verify"
)

// DefaultConfirmations is the confirmation depth a deployment waits for.
const DefaultConfirmations = 3

// ChainClient is the chain access the orchestrator needs.
type ChainClient interface {
	Address() common.Address
	ChainID() *big.Int
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	DeployContract(ctx context.Context, artifact *ethereum.Artifact, args ...any) (*ethereum.Contract, error)
	WaitForReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*ethereum.Receipt, error)
	Read(ctx context.Context, contract *ethereum.Contract, method string, args ...any) ([]any, error)
}

// Options configures a Deployer.
type Options struct {
	Network      string
	Artifact     *ethereum.Artifact
	AssetAddress common.Address
	// Confirmations defaults to DefaultConfirmations.
	Confirmations uint64
	// ConfirmationTimeout bounds the confirmation wait. Zero means no bound.
	ConfirmationTimeout time.Duration
	// Verifier enables the verification step. Nil skips it.
	Verifier verify.Verifier
	// VerifyCommand builds the manual verification command line logged
	// before verification is attempted.
	VerifyCommand func(contract common.Address) string
	// Summary receives the final summary table. Nil discards it.
	Summary io.Writer
}

// Deployer runs one deployment.
type Deployer struct {
	log    logrus.FieldLogger
	client ChainClient
	opts   Options
	steps  []step

	mu    sync.RWMutex
	state State
}

// run is the mutable state of one Run.
type run struct {
	ctx      context.Context
	record   *Record
	contract *ethereum.Contract
}

// New creates a Deployer.
func New(log logrus.FieldLogger, client ChainClient, opts Options) (*Deployer, error) {
	if opts.Artifact == nil {
		return nil, errors.New("contract artifact is required")
	}

	if opts.Confirmations == 0 {
		opts.Confirmations = DefaultConfirmations
	}

	if opts.Summary == nil {
		opts.Summary = io.Discard
	}

	d := &Deployer{
		log:    log.WithFields(logrus.Fields{"component": "deployer", "network": opts.Network}),
		client: client,
		opts:   opts,
		state:  StateInit,
	}

	d.steps = []step{
		{name: "check_balance", to: StateBalanceChecked, policy: PolicyRequired, run: d.checkBalance},
		{name: "deploy", to: StateDeployed, policy: PolicyRequired, run: d.deploy},
		{name: "confirm", to: StateConfirmed, policy: PolicyRequired, run: d.confirm},
		{
			name:    "read_stats",
			to:      StateStatsRead,
			policy:  PolicyBestEffort,
			warning: "Couldn't fetch stats yet, contract may not be fully ready",
			run:     d.readStats,
		},
		{
			name:    "verify",
			to:      StateVerified,
			policy:  PolicyBestEffort,
			warning: "Verification failed",
			enabled: func(*run) bool { return d.opts.Verifier != nil },
			run:     d.verify,
		},
	}

	return d, nil
}

// Run executes the state machine. The returned record is never nil; on
// failure it holds whatever was learned and State is StateFailed, and the
// error is an *Error.
func (d *Deployer) Run(ctx context.Context) (*Record, error) {
	r := &run{
		ctx: ctx,
		record: &Record{
			Network:      d.opts.Network,
			ChainID:      d.client.ChainID().Uint64(),
			Deployer:     d.client.Address(),
			AssetAddress: d.opts.AssetAddress,
			ContractName: d.opts.Artifact.ContractName,
			Verification: VerificationSkipped,
			State:        StateInit,
		},
	}

	d.mu.Lock()
	d.state = StateInit
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{
		"contract":      d.opts.Artifact.ContractName,
		"asset_address": d.opts.AssetAddress.Hex(),
		"deployer":      r.record.Deployer.Hex(),
		"chain_id":      r.record.ChainID,
	}).Info("Starting deployment")

	for _, s := range d.steps {
		if s.enabled != nil && !s.enabled(r) {
			d.recordStep(r, s, StepSkipped, 0, nil)

			continue
		}

		start := time.Now()
		err := s.run(r)
		duration := time.Since(start)

		pcommon.StepDuration.WithLabelValues(d.opts.Network, s.name).Observe(duration.Seconds())

		if err == nil {
			d.recordStep(r, s, StepSucceeded, duration, nil)
			d.transition(r, s.to)

			continue
		}

		if s.policy == PolicyBestEffort {
			d.recordStep(r, s, StepAbsorbed, duration, err)
			d.log.WithError(err).WithField("step", s.name).Warn(s.warning)
			d.transition(r, s.to)

			continue
		}

		d.recordStep(r, s, StepFailed, duration, err)

		return r.record, d.fail(r, s, err)
	}

	d.transition(r, StateDone)

	pcommon.DeploymentsTotal.WithLabelValues(d.opts.Network, "success").Inc()

	r.record.WriteSummary(d.opts.Summary)

	d.log.WithField("contract_address", r.record.ContractAddress.Hex()).Info("Deployment complete")

	return r.record, nil
}

// State returns the current state. It is safe to call while Run is in progress.
func (d *Deployer) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.state
}

func (d *Deployer) transition(r *run, to State) {
	d.mu.Lock()
	d.state = to
	d.mu.Unlock()

	r.record.State = to

	d.log.WithField("state", to).Debug("State transition")
}

func (d *Deployer) recordStep(r *run, s step, outcome StepOutcome, duration time.Duration, err error) {
	r.record.Steps = append(r.record.Steps, StepResult{
		Step:     s.name,
		Policy:   s.policy,
		Outcome:  outcome,
		Duration: duration,
		Err:      err,
	})

	pcommon.StepsTotal.WithLabelValues(d.opts.Network, s.name, string(outcome)).Inc()
}

func (d *Deployer) fail(r *run, s step, err error) error {
	failure := &Error{
		Kind:  KindFatal,
		State: r.record.State,
		Step:  s.name,
		Err:   err,
	}

	switch {
	case errors.Is(err, ErrNoBalance):
		failure.Kind = KindPrecondition
	case errors.Is(err, context.DeadlineExceeded) && r.ctx.Err() == nil:
		failure.Kind = KindTimeout
	}

	if r.contract != nil {
		address := r.contract.Address
		failure.ContractAddress = &address
	}

	d.transition(r, StateFailed)

	pcommon.DeploymentsTotal.WithLabelValues(d.opts.Network, "failed").Inc()

	log := d.log.WithError(err).WithFields(logrus.Fields{
		"step": s.name,
		"kind": failure.Kind,
	})

	if failure.ContractAddress != nil {
		log = log.WithField("contract_address", failure.ContractAddress.Hex())
	}

	log.Error("Deployment failed")

	return failure
}

func (d *Deployer) checkBalance(r *run) error {
	balance, err := d.client.BalanceAt(r.ctx, r.record.Deployer)
	if err != nil {
		return err
	}

	r.record.Balance = balance

	pcommon.DeployerBalance.WithLabelValues(d.opts.Network).Set(decimal.NewFromBigInt(balance, -18).InexactFloat64())

	d.log.WithFields(logrus.Fields{
		"deployer": r.record.Deployer.Hex(),
		"balance":  FormatEther(balance) + " ETH",
	}).Info("Deployer balance")

	if balance.Sign() == 0 {
		return ErrNoBalance
	}

	return nil
}

func (d *Deployer) deploy(r *run) error {
	d.log.WithField("contract", d.opts.Artifact.ContractName).Info("Deploying contract")

	contract, err := d.client.DeployContract(r.ctx, d.opts.Artifact, d.opts.AssetAddress)
	if err != nil {
		return err
	}

	r.contract = contract
	r.record.ContractAddress = contract.Address

	if contract.DeployTx == nil {
		return ErrNoDeploymentTx
	}

	r.record.TxHash = contract.DeployTx.Hash()

	d.log.WithFields(logrus.Fields{
		"contract_address": contract.Address.Hex(),
		"tx_hash":          r.record.TxHash.Hex(),
	}).Info("Deployment transaction submitted")

	return nil
}

func (d *Deployer) confirm(r *run) error {
	ctx := r.ctx

	if d.opts.ConfirmationTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, d.opts.ConfirmationTimeout)
		defer cancel()
	}

	d.log.WithFields(logrus.Fields{
		"tx_hash":       r.record.TxHash.Hex(),
		"confirmations": d.opts.Confirmations,
	}).Info("Waiting for block confirmations")

	receipt, err := d.client.WaitForReceipt(ctx, r.record.TxHash, d.opts.Confirmations)
	if err != nil {
		return fmt.Errorf("waiting for %d confirmations: %w", d.opts.Confirmations, err)
	}

	r.record.BlockNumber = receipt.BlockNumber
	r.record.ConfirmedAt = max(receipt.ConfirmedAt, receipt.BlockNumber)
	r.record.GasUsed = receipt.GasUsed

	if receipt.TxHash != (common.Hash{}) {
		r.record.TxHash = receipt.TxHash
	}

	pcommon.DeploymentGasUsed.WithLabelValues(d.opts.Network).Set(float64(receipt.GasUsed))
	pcommon.DeploymentBlock.WithLabelValues(d.opts.Network, "mined").Set(float64(r.record.BlockNumber))
	pcommon.DeploymentBlock.WithLabelValues(d.opts.Network, "confirmed").Set(float64(r.record.ConfirmedAt))

	d.log.WithFields(logrus.Fields{
		"contract_address": r.record.ContractAddress.Hex(),
		"tx_hash":          r.record.TxHash.Hex(),
		"block_number":     r.record.BlockNumber,
		"confirmed_at":     r.record.ConfirmedAt,
		"gas_used":         r.record.GasUsed,
	}).Info("Transaction confirmed")

	return nil
}

func (d *Deployer) readStats(r *run) error {
	out, err := d.client.Read(r.ctx, r.contract, "getStats")
	if err != nil {
		return err
	}

	if len(out) != 5 {
		return fmt.Errorf("getStats returned %d values, want 5", len(out))
	}

	values := make([]*big.Int, len(out))

	for i, v := range out {
		n, ok := v.(*big.Int)
		if !ok {
			return fmt.Errorf("getStats value %d is %T, want *big.Int", i, v)
		}

		values[i] = n
	}

	owner, err := d.client.Read(r.ctx, r.contract, "owner")
	if err != nil {
		return err
	}

	if len(owner) != 1 {
		return fmt.Errorf("owner returned %d values, want 1", len(owner))
	}

	ownerAddress, ok := owner[0].(common.Address)
	if !ok {
		return fmt.Errorf("owner value is %T, want address", owner[0])
	}

	r.record.Stats = &ContractStats{
		TotalMissions:   values[0],
		TotalDonations:  values[1],
		TotalDeployed:   values[2],
		GeneralFund:     values[3],
		ContractBalance: values[4],
		Owner:           ownerAddress,
	}

	d.log.WithFields(logrus.Fields{
		"total_missions":   values[0].String(),
		"total_donations":  values[1].String(),
		"total_deployed":   values[2].String(),
		"general_fund":     values[3].String(),
		"contract_balance": values[4].String(),
		"owner":            ownerAddress.Hex(),
	}).Info("Initial contract state")

	return nil
}

func (d *Deployer) verify(r *run) error {
	log := d.log

	if d.opts.VerifyCommand != nil {
		log = log.WithField("command", d.opts.VerifyCommand(r.record.ContractAddress))
	}

	log.Info("Verifying contract on Etherscan")

	args, err := d.opts.Artifact.PackConstructor(d.opts.AssetAddress)
	if err != nil {
		r.record.Verification = VerificationFailed
		pcommon.VerificationsTotal.WithLabelValues(d.opts.Network, string(VerificationFailed)).Inc()

		return fmt.Errorf("failed to encode constructor arguments: %w", err)
	}

	err = d.opts.Verifier.Verify(r.ctx, verify.Request{
		Address:         r.record.ContractAddress,
		SourceName:      d.opts.Artifact.SourceName,
		ContractName:    d.opts.Artifact.ContractName,
		ConstructorArgs: args,
	})

	switch {
	case err == nil:
		r.record.Verification = VerificationVerified

		d.log.Info("Contract verified on Etherscan")
	case verify.IsAlreadyVerified(err):
		r.record.Verification = VerificationAlreadyVerified

		d.log.Info("Contract already verified on Etherscan")
	default:
		r.record.Verification = VerificationFailed
	}

	pcommon.VerificationsTotal.WithLabelValues(d.opts.Network, string(r.record.Verification)).Inc()

	if r.record.Verification == VerificationFailed {
		return err
	}

	return nil
}
