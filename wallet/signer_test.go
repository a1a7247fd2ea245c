package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"bundler/types"
)

func unsignedTransfer(t *testing.T, payer solana.PublicKey, lamports uint64) *solana.Transaction {
	t.Helper()
	ix := system.NewTransferInstruction(lamports, payer, solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		t.Fatalf("failed to build transaction: %v", err)
	}
	return tx
}

func TestSignAllPreservesOrderAndLength(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	signer, err := NewKeypairSigner(key)
	if err != nil {
		t.Fatalf("NewKeypairSigner failed: %v", err)
	}

	unsigned := []*solana.Transaction{
		unsignedTransfer(t, key.PublicKey(), 1),
		unsignedTransfer(t, key.PublicKey(), 2),
		unsignedTransfer(t, key.PublicKey(), 3),
	}

	signed, err := signer.SignAll(context.Background(), unsigned)
	if err != nil {
		t.Fatalf("SignAll failed: %v", err)
	}
	if len(signed) != len(unsigned) {
		t.Fatalf("expected %d signed transactions, got %d", len(unsigned), len(signed))
	}
	for i, tx := range signed {
		if tx != unsigned[i] {
			t.Errorf("entry %d was reordered", i)
		}
		if len(tx.Signatures) == 0 || tx.Signatures[0].IsZero() {
			t.Errorf("entry %d is not signed", i)
		}
	}
}

func TestSignAllRejectsOversizedBatch(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	signer, _ := NewKeypairSigner(key)

	unsigned := make([]*solana.Transaction, 6)
	for i := range unsigned {
		unsigned[i] = unsignedTransfer(t, key.PublicKey(), uint64(i+1))
	}

	_, err := signer.SignAll(context.Background(), unsigned)
	if !errors.Is(err, types.ErrBundleTooLarge) {
		t.Fatalf("expected ErrBundleTooLarge before any signing, got %v", err)
	}
	for i, tx := range unsigned {
		if len(tx.Signatures) != 0 {
			t.Errorf("entry %d was signed despite batch rejection", i)
		}
	}
}

func TestSignAllFailsWholeBatchOnUnknownSigner(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	signer, _ := NewKeypairSigner(key)

	// Second transaction requires a key this signer does not hold; the
	// whole batch must fail, no partial result.
	unsigned := []*solana.Transaction{
		unsignedTransfer(t, key.PublicKey(), 1),
		unsignedTransfer(t, solana.NewWallet().PublicKey(), 2),
	}

	signed, err := signer.SignAll(context.Background(), unsigned)
	if !errors.Is(err, types.ErrSigningRejected) {
		t.Fatalf("expected ErrSigningRejected, got %v", err)
	}
	if signed != nil {
		t.Error("partial signing result must not be exposed")
	}
}

func TestNewKeypairSignerRequiresKey(t *testing.T) {
	if _, err := NewKeypairSigner(nil); !errors.Is(err, types.ErrNoSigner) {
		t.Fatalf("expected ErrNoSigner, got %v", err)
	}
}

func TestSignAllEmptyBatch(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	signer, _ := NewKeypairSigner(key)

	if _, err := signer.SignAll(context.Background(), nil); !errors.Is(err, types.ErrSigningRejected) {
		t.Fatalf("expected ErrSigningRejected for empty batch, got %v", err)
	}
}
