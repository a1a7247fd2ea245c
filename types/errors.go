package types

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Everything the run surface reports wraps one of these,
// arbitrary payloads from the network are normalized at the relay-client
// boundary.
var (
	ErrNoSigner            = errors.New("no signer available")
	ErrUnitBuild           = errors.New("unit build failed")
	ErrSigningRejected     = errors.New("signing rejected")
	ErrRelayRejected       = errors.New("relay rejected bundle")
	ErrOnChainFailure      = errors.New("bundle landed with on-chain failure")
	ErrConfirmationTimeout = errors.New("no terminal bundle state within budget")
	ErrBundleTooLarge      = errors.New("bundle exceeds relay transaction limit")
	ErrTipTooLow           = errors.New("tip amount below relay floor")
)

// StepError identifies which builder step failed during BuildingUnits.
type StepError struct {
	Step StepKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// NewStepError wraps a builder failure under ErrUnitBuild.
func NewStepError(step StepKind, err error) error {
	return &StepError{Step: step, Err: fmt.Errorf("%w: %w", ErrUnitBuild, err)}
}

// FailureKind maps a run error onto its taxonomy class for reporting.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrNoSigner):
		return "ConnectionMissing"
	case errors.Is(err, ErrUnitBuild):
		return "UnitBuildFailure"
	case errors.Is(err, ErrSigningRejected):
		return "SigningRejected"
	case errors.Is(err, ErrRelayRejected):
		return "RelayRejected"
	case errors.Is(err, ErrOnChainFailure):
		return "OnChainFailure"
	case errors.Is(err, ErrConfirmationTimeout):
		return "ConfirmationTimeout"
	case errors.Is(err, ErrBundleTooLarge):
		return "BundleTooLarge"
	default:
		return "Unknown"
	}
}
