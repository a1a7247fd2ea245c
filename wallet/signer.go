package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"bundler/config"
	"bundler/types"
)

// BatchSigner signs an ordered list of unsigned transactions. The result
// must be the same transactions, same order, same length, each fully
// signed, or an error with nothing usable returned. A signer that can only
// sign part of the batch must fail the whole batch.
type BatchSigner interface {
	SignAll(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error)
	PublicKey() solana.PublicKey
}

// KeypairSigner signs with a local private key.
type KeypairSigner struct {
	key solana.PrivateKey
}

func NewKeypairSigner(key solana.PrivateKey) (*KeypairSigner, error) {
	if len(key) == 0 {
		return nil, types.ErrNoSigner
	}
	return &KeypairSigner{key: key}, nil
}

// LoadKeypairSigner reads a solana-keygen style JSON keypair file.
func LoadKeypairSigner(path string) (*KeypairSigner, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrNoSigner, err)
	}
	return &KeypairSigner{key: key}, nil
}

func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// SignAll signs the batch in place order-preservingly. Batches above the
// relay's per-bundle limit are rejected before any signature is produced.
func (s *KeypairSigner) SignAll(ctx context.Context, txs []*solana.Transaction) ([]*solana.Transaction, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", types.ErrSigningRejected)
	}
	if len(txs) > config.MaxBundleTxs {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit %d", types.ErrBundleTooLarge, len(txs), config.MaxBundleTxs)
	}

	signed := make([]*solana.Transaction, len(txs))
	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrSigningRejected, err)
		}
		if tx == nil {
			return nil, fmt.Errorf("%w: nil transaction at slot %d", types.ErrSigningRejected, i)
		}

		_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(s.key.PublicKey()) {
				return &s.key
			}
			return nil
		})
		if err != nil {
			// Treat any partial result as a total failure, nothing from
			// this batch may reach the relay.
			return nil, fmt.Errorf("%w: transaction %d: %w", types.ErrSigningRejected, i, err)
		}
		signed[i] = tx
	}

	return signed, nil
}
