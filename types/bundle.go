package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Confirmation levels reported by getBundleStatuses, ordered by depth.
const (
	ConfirmationProcessed = "processed"
	ConfirmationConfirmed = "confirmed"
	ConfirmationFinalized = "finalized"
)

// Inflight states reported by getInflightBundleStatuses.
const (
	InflightInvalid = "Invalid"
	InflightPending = "Pending"
	InflightLanded  = "Landed"
	InflightFailed  = "Failed"
)

// BundleStatus is one entry of a getBundleStatuses result. The relay only
// knows a bundle after it has landed; a nil entry in the response array is
// normal during the propagation window.
type BundleStatus struct {
	BundleID           string          `json:"bundle_id"`
	Transactions       []string        `json:"transactions"`
	Slot               uint64          `json:"slot"`
	ConfirmationStatus string          `json:"confirmation_status"`
	Err                json.RawMessage `json:"err"`
}

// Landed reports whether the bundle reached at least confirmed depth.
func (s *BundleStatus) Landed() bool {
	return s.ConfirmationStatus == ConfirmationConfirmed || s.ConfirmationStatus == ConfirmationFinalized
}

// The err field carries the relay's Rust-style result: {"Ok":null} on
// success, an arbitrary error object on failure.
var okPayloads = [][]byte{
	nil,
	[]byte("null"),
	[]byte("{}"),
	[]byte(`{"Ok":null}`),
}

// OnChainErr returns the raw on-chain error payload, or nil if the status
// does not report one.
func (s *BundleStatus) OnChainErr() json.RawMessage {
	trimmed := bytes.ReplaceAll(s.Err, []byte(" "), nil)
	for _, ok := range okPayloads {
		if bytes.Equal(trimmed, ok) {
			return nil
		}
	}
	return s.Err
}

// InflightStatus is one entry of a getInflightBundleStatuses result, the
// relay's pre-landing view of a submitted bundle.
type InflightStatus struct {
	BundleID   string `json:"bundle_id"`
	Status     string `json:"status"`
	LandedSlot uint64 `json:"landed_slot"`
}

// OutcomeKind is the terminal result class of one bundle run.
type OutcomeKind string

const (
	OutcomeLanded   OutcomeKind = "landed"
	OutcomeFailed   OutcomeKind = "failed"
	OutcomeTimedOut OutcomeKind = "timed_out"
)

// Outcome is the terminal result of confirming one submitted bundle.
// A timed-out outcome means "unknown", the bundle may still land later.
type Outcome struct {
	Kind     OutcomeKind
	BundleID string
	Slot     uint64
	Err      error
	Elapsed  time.Duration
}

// ProgressEvent is a transient notification emitted while a run advances.
// Amount carries step-specific side data, e.g. the quoted swap output.
type ProgressEvent struct {
	Step    string
	Message string
	Amount  *float64
}

// SubmittedBundle is one history row for a bundle handed to the relay.
type SubmittedBundle struct {
	BundleID    string    `json:"bundleId" ch:"bundleId"`
	Region      string    `json:"region" ch:"region"`
	Timestamp   time.Time `json:"timestamp" ch:"timestamp"`
	TxCount     uint64    `json:"txCount" ch:"txCount"`
	Signatures  []string  `json:"signatures" ch:"signatures"`
	TipAccount  string    `json:"tipAccount" ch:"tipAccount"`
	TipLamports uint64    `json:"tipLamports" ch:"tipLamports"`
	Outcome     string    `json:"outcome" ch:"outcome"`
	LandedSlot  uint64    `json:"landedSlot" ch:"landedSlot"`
}

type SubmittedBundles []*SubmittedBundle
