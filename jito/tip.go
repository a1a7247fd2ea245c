package jito

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"bundler/config"
	"bundler/logger"
	"bundler/types"
)

// TipAccountSource provides the published tip recipient set.
type TipAccountSource interface {
	GetTipAccounts(ctx context.Context) ([]string, error)
}

// BlockhashSource provides a fresh transaction validity anchor.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// TipBuilder constructs the relay-incentive transaction that must
// accompany every bundle: a single lamport transfer to one of the relay's
// tip accounts.
type TipBuilder struct {
	accounts TipAccountSource
	chain    BlockhashSource

	mu        sync.Mutex
	cached    []string
	fetchedAt time.Time
	ttl       time.Duration

	now  func() time.Time
	pick func(n int) int
}

func NewTipBuilder(accounts TipAccountSource, chain BlockhashSource) *TipBuilder {
	return &TipBuilder{
		accounts: accounts,
		chain:    chain,
		ttl:      config.TipAccountsTTL,
		now:      time.Now,
		pick:     rand.Intn,
	}
}

// Build returns one unsigned transaction transferring lamports from payer
// to a tip account chosen uniformly at random on every call. Amounts below
// the relay floor are clamped up to it.
func (b *TipBuilder) Build(ctx context.Context, payer solana.PublicKey, lamports uint64) (*solana.Transaction, string, error) {
	if lamports == 0 {
		return nil, "", types.ErrTipTooLow
	}
	if lamports < config.MinTipLamports {
		logger.RelayLogger.Warn("Tip below relay floor, clamping", "requested", lamports, "floor", config.MinTipLamports)
		lamports = config.MinTipLamports
	}

	account, err := b.pickTipAccount(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to pick tip account: %w", err)
	}
	recipient, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return nil, "", fmt.Errorf("relay returned invalid tip account %q: %w", account, err)
	}

	recent, err := b.chain.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch blockhash for tip: %w", err)
	}

	ix := system.NewTransferInstruction(lamports, payer, recipient).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build tip transaction: %w", err)
	}

	return tx, account, nil
}

// pickTipAccount re-randomizes the recipient on every call to spread
// write contention across the published accounts. Only the set itself is
// cached, not the choice.
func (b *TipBuilder) pickTipAccount(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.cached) == 0 || b.now().Sub(b.fetchedAt) > b.ttl {
		accounts, err := b.accounts.GetTipAccounts(ctx)
		if err != nil {
			return "", err
		}
		b.cached = accounts
		b.fetchedAt = b.now()
	}

	return b.cached[b.pick(len(b.cached))], nil
}
