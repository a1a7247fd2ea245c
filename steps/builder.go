// Package steps turns high-level bundle steps into unsigned transactions.
// Each builder owns exactly the transaction it produces and nothing else.
package steps

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"bundler/types"
)

// Chain is the slice of the Solana RPC client the builders need.
type Chain interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// Builder produces one unsigned transaction for one step kind. The
// optional note carries informational side data for progress reporting,
// e.g. the quoted swap output.
type Builder interface {
	Kind() types.StepKind
	Build(ctx context.Context, step types.BundleStep, payer solana.PublicKey) (tx *solana.Transaction, note *float64, err error)
}

// Registry dispatches steps to their builders.
type Registry struct {
	builders map[types.StepKind]Builder
}

func NewRegistry(builders ...Builder) *Registry {
	m := make(map[types.StepKind]Builder, len(builders))
	for _, b := range builders {
		m[b.Kind()] = b
	}
	return &Registry{builders: m}
}

func (r *Registry) Build(ctx context.Context, step types.BundleStep, payer solana.PublicKey) (*solana.Transaction, *float64, error) {
	b, ok := r.builders[step.Kind()]
	if !ok {
		return nil, nil, fmt.Errorf("no builder registered for step kind %s", step.Kind())
	}
	return b.Build(ctx, step, payer)
}

// DefaultRegistry wires the production builders against one RPC client.
func DefaultRegistry(chain Chain) *Registry {
	return NewRegistry(
		NewSwapBuilder(),
		NewPositionBuilder(chain),
		NewTransferBuilder(chain),
	)
}
