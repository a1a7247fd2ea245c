package steps

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"bundler/types"
)

// TransferBuilder produces a plain lamport transfer.
type TransferBuilder struct {
	chain Chain
}

func NewTransferBuilder(chain Chain) *TransferBuilder {
	return &TransferBuilder{chain: chain}
}

func (b *TransferBuilder) Kind() types.StepKind { return types.StepTransfer }

func (b *TransferBuilder) Build(ctx context.Context, step types.BundleStep, payer solana.PublicKey) (*solana.Transaction, *float64, error) {
	transfer, ok := step.(types.TransferStep)
	if !ok {
		return nil, nil, fmt.Errorf("transfer builder got step kind %s", step.Kind())
	}
	if transfer.Lamports == 0 {
		return nil, nil, fmt.Errorf("transfer amount must be positive")
	}
	if transfer.Recipient.IsZero() {
		return nil, nil, fmt.Errorf("transfer recipient is missing")
	}

	recent, err := b.chain.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch blockhash for transfer: %w", err)
	}

	ix := system.NewTransferInstruction(transfer.Lamports, payer, transfer.Recipient).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build transfer transaction: %w", err)
	}
	return tx, nil, nil
}
