// Package bundle sequences unit building, tip injection, batch signing,
// atomic submission and confirmation into one run with a single terminal
// result.
package bundle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"bundler/config"
	"bundler/logger"
	"bundler/types"
)

// Phase is the orchestrator's state. Steps are strictly sequential, each
// phase depends on the previous one's output.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseBuilding   Phase = "building_units"
	PhaseSigning    Phase = "signing"
	PhaseSubmitting Phase = "submitting"
	PhaseConfirming Phase = "confirming"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// StepBuilder turns one bundle step into one unsigned transaction.
// Satisfied by steps.Registry.
type StepBuilder interface {
	Build(ctx context.Context, step types.BundleStep, payer solana.PublicKey) (*solana.Transaction, *float64, error)
}

// BatchSigner signs the whole ordered batch or fails it whole.
type BatchSigner interface {
	SignAll(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error)
	PublicKey() solana.PublicKey
}

// TipBuilder produces the relay-incentive transaction.
type TipBuilder interface {
	Build(ctx context.Context, payer solana.PublicKey, lamports uint64) (*solana.Transaction, string, error)
}

// Relay accepts the signed bundle.
type Relay interface {
	Region() string
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
}

// Confirmer polls a submitted bundle to a terminal outcome.
type Confirmer interface {
	Wait(ctx context.Context, bundleID string, timeout time.Duration) *types.Outcome
}

// HistoryStore records submissions and their outcomes. Optional; recording
// failures never fail a run.
type HistoryStore interface {
	InsertSubmission(row *types.SubmittedBundle) error
	UpdateOutcome(bundleID string, outcome *types.Outcome) error
}

const progressBuffer = 32

// Orchestrator owns one bundle's lifecycle end to end. Every Execute call
// owns its own transaction lists and polling loop; nothing is shared
// between runs.
type Orchestrator struct {
	builders  StepBuilder
	signer    BatchSigner
	tip       TipBuilder
	relay     Relay
	confirmer Confirmer
	store     HistoryStore

	mu        sync.Mutex
	phase     Phase
	progressC chan types.ProgressEvent
}

func NewOrchestrator(builders StepBuilder, signer BatchSigner, tip TipBuilder, relay Relay, confirmer Confirmer) *Orchestrator {
	return &Orchestrator{
		builders:  builders,
		signer:    signer,
		tip:       tip,
		relay:     relay,
		confirmer: confirmer,
		phase:     PhaseIdle,
		progressC: make(chan types.ProgressEvent, progressBuffer),
	}
}

// WithHistory attaches a best-effort submission history store.
func (o *Orchestrator) WithHistory(store HistoryStore) *Orchestrator {
	o.store = store
	return o
}

// Progress returns the event stream for the caller's UI. Events are
// dropped, not blocked on, when nobody drains the channel.
func (o *Orchestrator) Progress() <-chan types.ProgressEvent {
	return o.progressC
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Reset returns the orchestrator to idle and discards in-flight local
// state. It does not and cannot cancel a bundle already handed to the
// relay; once submitted, outcomes can only be observed.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.phase = PhaseIdle
	o.mu.Unlock()

	for {
		select {
		case <-o.progressC:
		default:
			return
		}
	}
}

// Execute runs the full sequence for cfg. A non-nil error means the run
// failed before the relay accepted anything; once submission succeeds the
// relay-observed result comes back as the outcome, including on-chain
// failures and timeouts, with a nil error.
func (o *Orchestrator) Execute(ctx context.Context, cfg types.RunConfig) (*types.Outcome, error) {
	o.mu.Lock()
	if o.phase != PhaseIdle {
		phase := o.phase
		o.mu.Unlock()
		return nil, fmt.Errorf("orchestrator not idle (phase %s), call Reset first", phase)
	}
	o.phase = PhaseBuilding
	o.mu.Unlock()

	if o.signer == nil {
		return nil, o.fail(types.ErrNoSigner)
	}
	if len(cfg.Steps) == 0 {
		return nil, o.fail(fmt.Errorf("%w: no steps configured", types.ErrUnitBuild))
	}
	// The tip occupies one of the relay's bundle slots, so the step count
	// is bounded one below the wire limit. Checked before any signing.
	if len(cfg.Steps)+1 > config.MaxBundleTxs {
		return nil, o.fail(fmt.Errorf("%w: %d steps plus tip, limit %d", types.ErrBundleTooLarge, len(cfg.Steps), config.MaxBundleTxs))
	}

	overall := cfg.OverallTimeout
	if overall <= 0 {
		overall = config.DefaultOverallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	payer := o.signer.PublicKey()

	// BuildingUnits: fold over the steps in caller order. Any builder
	// failure aborts the run before the relay sees anything.
	unsigned := make([]*solana.Transaction, 0, len(cfg.Steps)+1)
	for _, step := range cfg.Steps {
		o.emit(string(step.Kind()), step.Describe(), nil)
		tx, note, err := o.builders.Build(ctx, step, payer)
		if err != nil {
			return nil, o.fail(types.NewStepError(step.Kind(), err))
		}
		if note != nil {
			o.emit(string(step.Kind()), fmt.Sprintf("%s built, expected output %f", step.Kind(), *note), note)
		}
		unsigned = append(unsigned, tx)
	}

	tipLamports := cfg.TipLamports
	if tipLamports == 0 {
		tipLamports = config.DefaultTipLamports
	}
	o.emit(string(types.StepTip), fmt.Sprintf("appending %d lamport tip", tipLamports), nil)
	tipTx, tipAccount, err := o.tip.Build(ctx, payer, tipLamports)
	if err != nil {
		return nil, o.fail(types.NewStepError(types.StepTip, err))
	}
	unsigned = append(unsigned, tipTx)

	// Signing: all or nothing, order preserved.
	o.setPhase(PhaseSigning)
	o.emit("signing", fmt.Sprintf("signing batch of %d transactions", len(unsigned)), nil)
	signed, err := o.signer.SignAll(ctx, unsigned)
	if err != nil {
		return nil, o.fail(err)
	}
	if len(signed) != len(unsigned) {
		return nil, o.fail(fmt.Errorf("%w: signer returned %d of %d transactions", types.ErrSigningRejected, len(signed), len(unsigned)))
	}

	o.setPhase(PhaseSubmitting)
	o.emit("submitting", fmt.Sprintf("submitting %d transaction bundle to %s", len(signed), o.relay.Region()), nil)
	bundleID, err := o.relay.SendBundle(ctx, signed)
	if err != nil {
		return nil, o.fail(err)
	}

	o.recordSubmission(bundleID, signed, tipAccount, tipLamports)

	o.setPhase(PhaseConfirming)
	o.emit("confirming", fmt.Sprintf("bundle %s accepted, awaiting landing", bundleID), nil)
	outcome := o.confirmer.Wait(ctx, bundleID, cfg.ConfirmTimeout)
	o.recordOutcome(bundleID, outcome)

	switch outcome.Kind {
	case types.OutcomeLanded:
		o.setPhase(PhaseSucceeded)
		o.emit("confirming", fmt.Sprintf("bundle %s landed in slot %d", bundleID, outcome.Slot), nil)
	case types.OutcomeFailed:
		o.setPhase(PhaseFailed)
		o.emit("confirming", fmt.Sprintf("bundle %s failed: %v", bundleID, outcome.Err), nil)
	case types.OutcomeTimedOut:
		// Unknown, not "did not happen": the bundle may still land after
		// the budget. Surfaced as a failure distinct from rejection.
		o.setPhase(PhaseFailed)
		o.emit("confirming", fmt.Sprintf("bundle %s not confirmed within budget, state unknown", bundleID), nil)
	}

	return outcome, nil
}

func (o *Orchestrator) setPhase(phase Phase) {
	o.mu.Lock()
	o.phase = phase
	o.mu.Unlock()
}

func (o *Orchestrator) fail(err error) error {
	o.setPhase(PhaseFailed)
	o.emit("failed", err.Error(), nil)
	logger.BundleLogger.Error("Run failed", "kind", types.FailureKind(err), "err", err)
	return err
}

func (o *Orchestrator) emit(step, message string, amount *float64) {
	event := types.ProgressEvent{Step: step, Message: message, Amount: amount}
	select {
	case o.progressC <- event:
	default:
		// Nobody draining; drop rather than stall the run.
	}
}

func (o *Orchestrator) recordSubmission(bundleID string, signed []*solana.Transaction, tipAccount string, tipLamports uint64) {
	if o.store == nil {
		return
	}
	signatures := make([]string, 0, len(signed))
	for _, tx := range signed {
		if len(tx.Signatures) > 0 {
			signatures = append(signatures, tx.Signatures[0].String())
		}
	}
	row := &types.SubmittedBundle{
		BundleID:    bundleID,
		Region:      o.relay.Region(),
		Timestamp:   time.Now().UTC(),
		TxCount:     uint64(len(signed)),
		Signatures:  signatures,
		TipAccount:  tipAccount,
		TipLamports: tipLamports,
		Outcome:     "submitted",
	}
	if err := o.store.InsertSubmission(row); err != nil {
		logger.BundleLogger.Warn("Failed to record submission", "bundle_id", bundleID, "err", err)
	}
}

func (o *Orchestrator) recordOutcome(bundleID string, outcome *types.Outcome) {
	if o.store == nil {
		return
	}
	if err := o.store.UpdateOutcome(bundleID, outcome); err != nil {
		logger.BundleLogger.Warn("Failed to record outcome", "bundle_id", bundleID, "err", err)
	}
}
