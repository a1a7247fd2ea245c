package jito

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"bundler/config"
	"bundler/types"
)

type fakeAccountSource struct {
	accounts []string
	calls    int
	err      error
}

func (f *fakeAccountSource) GetTipAccounts(ctx context.Context) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts, nil
}

type fakeChain struct {
	hash solana.Hash
	err  error
}

func (f *fakeChain) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: f.hash},
	}, nil
}

func testAccounts(n int) []string {
	accounts := make([]string, n)
	for i := range accounts {
		accounts[i] = solana.NewWallet().PublicKey().String()
	}
	return accounts
}

// transferLamports reads the lamport amount out of a system transfer
// instruction (4 byte instruction index, then u64 LE).
func transferLamports(t *testing.T, tx *solana.Transaction) uint64 {
	t.Helper()
	if len(tx.Message.Instructions) != 1 {
		t.Fatalf("expected exactly one instruction, got %d", len(tx.Message.Instructions))
	}
	data := tx.Message.Instructions[0].Data
	if len(data) != 12 {
		t.Fatalf("unexpected transfer data length: %d", len(data))
	}
	return binary.LittleEndian.Uint64(data[4:])
}

func TestTipBuilderBuild(t *testing.T) {
	accounts := &fakeAccountSource{accounts: testAccounts(3)}
	builder := NewTipBuilder(accounts, &fakeChain{})
	payer := solana.NewWallet().PublicKey()

	tx, account, err := builder.Build(context.Background(), payer, 50000)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if transferLamports(t, tx) != 50000 {
		t.Errorf("unexpected tip amount: %d", transferLamports(t, tx))
	}

	found := false
	for _, a := range accounts.accounts {
		if a == account {
			found = true
		}
	}
	if !found {
		t.Errorf("tip recipient %s not in published set", account)
	}
}

func TestTipBuilderClampsFloor(t *testing.T) {
	builder := NewTipBuilder(&fakeAccountSource{accounts: testAccounts(1)}, &fakeChain{})
	payer := solana.NewWallet().PublicKey()

	tx, _, err := builder.Build(context.Background(), payer, config.MinTipLamports-1)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := transferLamports(t, tx); got != config.MinTipLamports {
		t.Errorf("expected clamp to %d, got %d", config.MinTipLamports, got)
	}

	if _, _, err := builder.Build(context.Background(), payer, 0); !errors.Is(err, types.ErrTipTooLow) {
		t.Errorf("expected ErrTipTooLow for zero tip, got %v", err)
	}
}

func TestTipBuilderRandomPerCall(t *testing.T) {
	accounts := &fakeAccountSource{accounts: testAccounts(4)}
	builder := NewTipBuilder(accounts, &fakeChain{})

	// Deterministic walk over the set: selection happens on every call,
	// not once per builder.
	next := 0
	builder.pick = func(n int) int {
		pick := next % n
		next++
		return pick
	}

	payer := solana.NewWallet().PublicKey()
	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		_, account, err := builder.Build(context.Background(), payer, 50000)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		seen[account] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected selection to re-randomize per call, saw %d distinct accounts", len(seen))
	}
}

func TestTipBuilderCachesAccountSet(t *testing.T) {
	accounts := &fakeAccountSource{accounts: testAccounts(2)}
	builder := NewTipBuilder(accounts, &fakeChain{})
	payer := solana.NewWallet().PublicKey()

	for i := 0; i < 3; i++ {
		if _, _, err := builder.Build(context.Background(), payer, 50000); err != nil {
			t.Fatalf("Build failed: %v", err)
		}
	}
	if accounts.calls != 1 {
		t.Errorf("expected one account-set fetch within TTL, got %d", accounts.calls)
	}

	// Expire the cache and the next build re-fetches.
	builder.fetchedAt = time.Now().Add(-2 * builder.ttl)
	if _, _, err := builder.Build(context.Background(), payer, 50000); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if accounts.calls != 2 {
		t.Errorf("expected re-fetch after TTL, got %d calls", accounts.calls)
	}
}

func TestTipBuilderPropagatesFetchFailure(t *testing.T) {
	accounts := &fakeAccountSource{err: errors.New("relay unreachable")}
	builder := NewTipBuilder(accounts, &fakeChain{})

	_, _, err := builder.Build(context.Background(), solana.NewWallet().PublicKey(), 50000)
	if err == nil {
		t.Fatal("expected build failure when the account fetch fails")
	}
}
