package types

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// StepKind tags the variants of a bundle step.
type StepKind string

const (
	StepSwap     StepKind = "swap"
	StepPosition StepKind = "position"
	StepTransfer StepKind = "transfer"
	StepTip      StepKind = "tip"
)

// BundleStep is one unit of intent in a run. The orchestrator folds over
// an ordered list of steps, each producing exactly one transaction; bundle
// order equals step order.
type BundleStep interface {
	Kind() StepKind
	Describe() string
}

// SwapStep exchanges Amount of the input mint for the output mint.
type SwapStep struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64 // smallest unit of the input mint
	SlippageBps uint64
}

func (s SwapStep) Kind() StepKind { return StepSwap }

func (s SwapStep) Describe() string {
	return fmt.Sprintf("swap %d of %s into %s", s.Amount, s.InputMint.Short(4), s.OutputMint.Short(4))
}

// PositionDirection is the side of a perp order.
type PositionDirection string

const (
	DirectionLong  PositionDirection = "long"
	DirectionShort PositionDirection = "short"
)

// PositionStep opens a perp position on the margin program. When
// DepositAmount is non-zero a collateral deposit instruction is placed
// ahead of the order instruction inside the same transaction.
type PositionStep struct {
	MarketIndex   uint16
	BaseAmount    uint64
	Direction     PositionDirection
	DepositAmount uint64 // 0 = no deposit
}

func (s PositionStep) Kind() StepKind { return StepPosition }

func (s PositionStep) Describe() string {
	return fmt.Sprintf("open %s %d on market %d", s.Direction, s.BaseAmount, s.MarketIndex)
}

// TransferStep sends Lamports to Recipient.
type TransferStep struct {
	Recipient solana.PublicKey
	Lamports  uint64
}

func (s TransferStep) Kind() StepKind { return StepTransfer }

func (s TransferStep) Describe() string {
	return fmt.Sprintf("transfer %d lamports to %s", s.Lamports, s.Recipient.Short(4))
}

// RunConfig describes one bundle run. Steps execute and land in the given
// order; the tip transaction is appended after them.
type RunConfig struct {
	Steps       []BundleStep
	TipLamports uint64
	Region      string

	// Zero values fall back to the config defaults.
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	OverallTimeout time.Duration
}
