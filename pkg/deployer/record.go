package deployer

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// VerificationOutcome is the result of the verification step.
type VerificationOutcome string

const (
	VerificationSkipped         VerificationOutcome = "skipped"
	VerificationVerified        VerificationOutcome = "verified"
	VerificationAlreadyVerified VerificationOutcome = "already_verified"
	VerificationFailed          VerificationOutcome = "failed"
)

// ContractStats is the state read back from a freshly deployed contract.
type ContractStats struct {
	TotalMissions   *big.Int
	TotalDonations  *big.Int
	TotalDeployed   *big.Int
	GeneralFund     *big.Int
	ContractBalance *big.Int
	Owner           common.Address
}

// StepResult records one executed or skipped step.
type StepResult struct {
	Step     string
	Policy   Policy
	Outcome  StepOutcome
	Duration time.Duration
	Err      error
}

// Record is everything a run learned. It only describes a successful
// deployment once State is StateDone.
type Record struct {
	Network         string
	ChainID         uint64
	Deployer        common.Address
	Balance         *big.Int
	AssetAddress    common.Address
	ContractName    string
	ContractAddress common.Address
	TxHash          common.Hash
	// BlockNumber is the block containing the creation transaction.
	BlockNumber uint64
	// ConfirmedAt is the chain head at which the confirmation depth was observed.
	ConfirmedAt  uint64
	GasUsed      uint64
	Stats        *ContractStats
	Verification VerificationOutcome
	State        State
	Steps        []StepResult
}

// FormatEther renders a wei amount in ETH with four decimals.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0000"
	}

	return decimal.NewFromBigInt(wei, -18).StringFixed(4)
}

// WriteSummary renders the record as a two column table.
func (r *Record) WriteSummary(w io.Writer) {
	rows := [][]string{
		{"Network", r.Network},
		{"Chain ID", strconv.FormatUint(r.ChainID, 10)},
		{"Deployer", r.Deployer.Hex()},
		{"Deployer Balance", FormatEther(r.Balance) + " ETH"},
		{"Asset Address", r.AssetAddress.Hex()},
		{"Contract Address", r.ContractAddress.Hex()},
		{"Transaction Hash", r.TxHash.Hex()},
		{"Block Number", strconv.FormatUint(r.BlockNumber, 10)},
		{"Confirmed At", strconv.FormatUint(r.ConfirmedAt, 10)},
		{"Gas Used", strconv.FormatUint(r.GasUsed, 10)},
	}

	if r.Stats != nil {
		rows = append(rows,
			[]string{"Total Missions", r.Stats.TotalMissions.String()},
			[]string{"Total Donations", r.Stats.TotalDonations.String()},
			[]string{"Total Deployed", r.Stats.TotalDeployed.String()},
			[]string{"General Fund", r.Stats.GeneralFund.String()},
			[]string{"Contract Balance", r.Stats.ContractBalance.String()},
			[]string{"Owner", r.Stats.Owner.Hex()},
		)
	}

	rows = append(rows, []string{"Verification", string(r.Verification)})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Deployment", fmt.Sprintf("%s (%s)", r.ContractName, r.State)})
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{
		Left:   false,
		Right:  false,
		Top:    true,
		Bottom: true,
	})
	table.AppendBulk(rows)
	table.Render()
}
