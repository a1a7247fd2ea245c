package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bundler/bundle"
	"bundler/config"
	"bundler/db"
	"bundler/jito"
	"bundler/logger"
	"bundler/steps"
	"bundler/types"
	"bundler/wallet"
)

var (
	runInputMint      string
	runOutputMint     string
	runSwapAmount     uint64
	runSlippageBps    uint64
	runPositionAmount uint64
	runMarketIndex    uint16
	runDirection      string
	runDepositAmount  uint64
	runTransferAmount uint64
	runRecipient      string
	runTipLamports    uint64
	runRegion         string
	runConfirmSecs    uint64
)

var runCmd = cobra.Command{
	Use:   "run",
	Short: "Build, sign, submit and confirm one atomic bundle",
	Run: func(cmd *cobra.Command, args []string) {
		logger.InitLogs("run")

		if err := runBundle(cmd.Context()); err != nil {
			logger.BundleLogger.Error("Run failed", "kind", types.FailureKind(err), "err", err)
			os.Exit(1)
		}
	},
}

func runBundle(ctx context.Context) error {
	cfg, err := buildRunConfig()
	if err != nil {
		return err
	}

	signer, err := wallet.LoadKeypairSigner(viper.GetString("wallet.keypair-path"))
	if err != nil {
		return err
	}

	rpcClient := rpc.New(viper.GetString("sol.rpc"))
	relay := jito.NewClient(cfg.Region)
	tip := jito.NewTipBuilder(relay, rpcClient)
	poller := jito.NewPoller(relay)

	orchestrator := bundle.NewOrchestrator(
		steps.DefaultRegistry(rpcClient),
		signer,
		tip,
		relay,
		poller,
	)

	store := db.NewClickhouse()
	defer store.Close()
	orchestrator.WithHistory(db.NewHistory(store))

	go func() {
		for event := range orchestrator.Progress() {
			if event.Amount != nil {
				logger.BundleLogger.Info("Progress", "step", event.Step, "message", event.Message, "amount", *event.Amount)
			} else {
				logger.BundleLogger.Info("Progress", "step", event.Step, "message", event.Message)
			}
		}
	}()

	outcome, err := orchestrator.Execute(ctx, cfg)
	if err != nil {
		return err
	}

	switch outcome.Kind {
	case types.OutcomeLanded:
		logger.BundleLogger.Info("Bundle landed", "bundle_id", outcome.BundleID, "slot", outcome.Slot, "elapsed", outcome.Elapsed)
		return nil
	case types.OutcomeTimedOut:
		return fmt.Errorf("bundle %s unconfirmed after %s, it may still land: %w", outcome.BundleID, outcome.Elapsed, outcome.Err)
	default:
		return fmt.Errorf("bundle %s failed: %w", outcome.BundleID, outcome.Err)
	}
}

func buildRunConfig() (types.RunConfig, error) {
	var cfg types.RunConfig

	if runSwapAmount == 0 {
		return cfg, fmt.Errorf("swap amount is required")
	}
	if runTransferAmount == 0 {
		return cfg, fmt.Errorf("transfer amount is required")
	}
	inputMint, err := solana.PublicKeyFromBase58(runInputMint)
	if err != nil {
		return cfg, fmt.Errorf("invalid input mint: %w", err)
	}
	outputMint, err := solana.PublicKeyFromBase58(runOutputMint)
	if err != nil {
		return cfg, fmt.Errorf("invalid output mint: %w", err)
	}
	recipient, err := solana.PublicKeyFromBase58(runRecipient)
	if err != nil {
		return cfg, fmt.Errorf("invalid transfer recipient: %w", err)
	}
	direction := types.PositionDirection(runDirection)
	if direction != types.DirectionLong && direction != types.DirectionShort {
		return cfg, fmt.Errorf("direction must be %q or %q", types.DirectionLong, types.DirectionShort)
	}

	// Fixed order: the position margin and the transfer both spend swap
	// output, the swap lands first.
	cfg.Steps = append(cfg.Steps, types.SwapStep{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      runSwapAmount,
		SlippageBps: runSlippageBps,
	})
	if runPositionAmount > 0 {
		cfg.Steps = append(cfg.Steps, types.PositionStep{
			MarketIndex:   runMarketIndex,
			BaseAmount:    runPositionAmount,
			Direction:     direction,
			DepositAmount: runDepositAmount,
		})
	}
	cfg.Steps = append(cfg.Steps, types.TransferStep{
		Recipient: recipient,
		Lamports:  runTransferAmount,
	})

	cfg.TipLamports = runTipLamports
	cfg.Region = runRegion
	if runConfirmSecs > 0 {
		cfg.ConfirmTimeout = time.Duration(runConfirmSecs) * time.Second
	}
	return cfg, nil
}

func init() {
	runCmd.Flags().StringVar(&runInputMint, "input-mint", "So11111111111111111111111111111111111111112", "mint swapped away")
	runCmd.Flags().StringVar(&runOutputMint, "output-mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "mint swapped into")
	runCmd.Flags().Uint64Var(&runSwapAmount, "swap-amount", 0, "swap input amount, smallest unit")
	runCmd.Flags().Uint64Var(&runSlippageBps, "slippage-bps", 50, "swap slippage tolerance in bps")
	runCmd.Flags().Uint64Var(&runPositionAmount, "position-amount", 0, "(optional) perp position base amount")
	runCmd.Flags().Uint16Var(&runMarketIndex, "market", 0, "perp market index")
	runCmd.Flags().StringVar(&runDirection, "direction", string(types.DirectionShort), "position direction (long|short)")
	runCmd.Flags().Uint64Var(&runDepositAmount, "deposit", 0, "(optional) collateral deposit ahead of the order")
	runCmd.Flags().Uint64Var(&runTransferAmount, "transfer-amount", 0, "lamports to transfer")
	runCmd.Flags().StringVar(&runRecipient, "recipient", "", "transfer recipient address")
	runCmd.Flags().Uint64Var(&runTipLamports, "tip", config.DefaultTipLamports, "tip in lamports")
	runCmd.Flags().StringVar(&runRegion, "region", config.DefaultRegion, "relay region")
	runCmd.Flags().Uint64Var(&runConfirmSecs, "timeout", 0, "confirmation budget in seconds")
	RootCmd.AddCommand(&runCmd)
}
