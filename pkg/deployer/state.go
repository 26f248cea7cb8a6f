package deployer

// State is a position in the deployment state machine.
type State string

const (
	StateInit           State = "INIT"
	StateBalanceChecked State = "BALANCE_CHECKED"
	StateDeployed       State = "DEPLOYED"
	StateConfirmed      State = "CONFIRMED"
	StateStatsRead      State = "STATS_READ"
	StateVerified       State = "VERIFIED"
	StateDone           State = "DONE"
	// StateFailed is terminal and reachable from every other state.
	StateFailed State = "FAILED"
)

// Policy decides what a step's failure does to the run.
type Policy int

const (
	// PolicyRequired steps fail the run.
	PolicyRequired Policy = iota
	// PolicyBestEffort steps log a warning and the run carries on.
	PolicyBestEffort
)

func (p Policy) String() string {
	switch p {
	case PolicyRequired:
		return "required"
	case PolicyBestEffort:
		return "best-effort"
	default:
		return "unknown"
	}
}

// StepOutcome is how a single step ended.
type StepOutcome string

const (
	StepSucceeded StepOutcome = "succeeded"
	StepSkipped   StepOutcome = "skipped"
	// StepAbsorbed is a best-effort step that failed without failing the run.
	StepAbsorbed StepOutcome = "absorbed"
	StepFailed   StepOutcome = "failed"
)

type stepFunc func(r *run) error

// step is one transition of the state machine. The body only reports an
// error; whether that error ends the run is decided by policy.
type step struct {
	name   string
	to     State
	policy Policy
	// warning is logged when a best-effort step fails.
	warning string
	// enabled gates the step; nil means always.
	enabled func(r *run) bool
	run     stepFunc
}
