package steps

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"

	"bundler/logger"
	"bundler/types"
)

var marginProgramID string

// MarginProgramID resolves the margin program address, preferring the
// configured override.
func MarginProgramID() string {
	if marginProgramID != "" {
		return marginProgramID
	}

	marginProgramID = viper.GetString("margin.program-id")
	if marginProgramID == "" {
		marginProgramID = "dRiftyHA39MWEi3m9aunc5MzRF1JYuBsbn6VPcn33UH"
		logger.BundleLogger.Warn("margin.program-id not set in config, using default", "program", marginProgramID)
	}

	return marginProgramID
}

// PositionBuilder opens a perp position on the margin program, optionally
// depositing collateral first. Deposit and order go into one transaction,
// deposit instruction strictly ahead of the order instruction.
type PositionBuilder struct {
	chain   Chain
	program solana.PublicKey
}

func NewPositionBuilder(chain Chain) *PositionBuilder {
	return &PositionBuilder{
		chain:   chain,
		program: solana.MustPublicKeyFromBase58(MarginProgramID()),
	}
}

func (b *PositionBuilder) Kind() types.StepKind { return types.StepPosition }

func (b *PositionBuilder) Build(ctx context.Context, step types.BundleStep, payer solana.PublicKey) (*solana.Transaction, *float64, error) {
	position, ok := step.(types.PositionStep)
	if !ok {
		return nil, nil, fmt.Errorf("position builder got step kind %s", step.Kind())
	}
	if position.BaseAmount == 0 {
		return nil, nil, fmt.Errorf("position base amount must be positive")
	}

	// The session holds the per-call account derivations. It is acquired
	// here and released before returning, never cached across builds.
	session, err := openMarginSession(b.program, payer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open margin session: %w", err)
	}
	defer session.close()

	instructions := make([]solana.Instruction, 0, 2)
	if position.DepositAmount > 0 {
		ix, err := session.depositInstruction(position.MarketIndex, position.DepositAmount)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build deposit instruction: %w", err)
		}
		instructions = append(instructions, ix)
	}
	orderIx, err := session.placeOrderInstruction(position)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build order instruction: %w", err)
	}
	instructions = append(instructions, orderIx)

	recent, err := b.chain.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch blockhash for position: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build position transaction: %w", err)
	}
	return tx, nil, nil
}

// marginSession is scoped to a single build call.
type marginSession struct {
	program   solana.PublicKey
	authority solana.PublicKey
	state     solana.PublicKey
	user      solana.PublicKey
	userStats solana.PublicKey
	open      bool
}

func openMarginSession(program, authority solana.PublicKey) (*marginSession, error) {
	state, _, err := solana.FindProgramAddress([][]byte{[]byte("drift_state")}, program)
	if err != nil {
		return nil, fmt.Errorf("state address derivation failed: %w", err)
	}

	subAccount := make([]byte, 2) // sub-account 0
	user, _, err := solana.FindProgramAddress([][]byte{[]byte("user"), authority.Bytes(), subAccount}, program)
	if err != nil {
		return nil, fmt.Errorf("user address derivation failed: %w", err)
	}

	userStats, _, err := solana.FindProgramAddress([][]byte{[]byte("user_stats"), authority.Bytes()}, program)
	if err != nil {
		return nil, fmt.Errorf("user stats address derivation failed: %w", err)
	}

	return &marginSession{
		program:   program,
		authority: authority,
		state:     state,
		user:      user,
		userStats: userStats,
		open:      true,
	}, nil
}

func (s *marginSession) close() {
	s.open = false
}

func (s *marginSession) accounts() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(s.state),
		solana.Meta(s.user).WRITE(),
		solana.Meta(s.userStats).WRITE(),
		solana.Meta(s.authority).SIGNER(),
	}
}

func (s *marginSession) depositInstruction(marketIndex uint16, amount uint64) (solana.Instruction, error) {
	if !s.open {
		return nil, fmt.Errorf("margin session already released")
	}

	buf := new(bytes.Buffer)
	buf.Write(anchorDiscriminator("deposit"))
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint16(marketIndex, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(amount, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(false); err != nil { // reduce_only
		return nil, err
	}

	return solana.NewInstruction(s.program, s.accounts(), buf.Bytes()), nil
}

func (s *marginSession) placeOrderInstruction(position types.PositionStep) (solana.Instruction, error) {
	if !s.open {
		return nil, fmt.Errorf("margin session already released")
	}

	direction := uint8(0) // long
	if position.Direction == types.DirectionShort {
		direction = 1
	}

	buf := new(bytes.Buffer)
	buf.Write(anchorDiscriminator("place_perp_order"))
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(0); err != nil { // order type: market
		return nil, err
	}
	if err := enc.WriteUint16(position.MarketIndex, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(direction); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(position.BaseAmount, binary.LittleEndian); err != nil {
		return nil, err
	}

	return solana.NewInstruction(s.program, s.accounts(), buf.Bytes()), nil
}

// anchorDiscriminator is the 8-byte anchor method selector.
func anchorDiscriminator(method string) []byte {
	sum := sha256.Sum256([]byte("global:" + method))
	return sum[:8]
}
