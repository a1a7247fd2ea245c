package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bundler/config"
	"bundler/jito"
	"bundler/logger"
)

var statusRegion string

var statusCmd = cobra.Command{
	Use:   "status <bundle-id>...",
	Short: "Query landed and inflight status for submitted bundles",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger.InitLogs("status")

		client := jito.NewClient(statusRegion)

		statuses, err := client.GetBundleStatuses(cmd.Context(), args)
		if err != nil {
			logger.RelayLogger.Error("Status query failed", "err", err)
			return
		}
		inflight, err := client.GetInflightBundleStatuses(cmd.Context(), args)
		if err != nil {
			logger.RelayLogger.Error("Inflight query failed", "err", err)
			return
		}

		for i, id := range args {
			line := fmt.Sprintf("bundle %s:", id)
			if i < len(statuses) && statuses[i] != nil {
				s := statuses[i]
				line += fmt.Sprintf(" %s in slot %d", s.ConfirmationStatus, s.Slot)
				if payload := s.OnChainErr(); payload != nil {
					line += fmt.Sprintf(", on-chain error %s", string(payload))
				}
			} else {
				line += " not landed"
			}
			if i < len(inflight) && inflight[i] != nil {
				line += fmt.Sprintf(" (inflight: %s)", inflight[i].Status)
			}
			fmt.Println(line)
		}
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusRegion, "region", config.DefaultRegion, "relay region")
	RootCmd.AddCommand(&statusCmd)
}
