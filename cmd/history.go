package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bundler/config"
	"bundler/db"
	"bundler/logger"
)

var historyLimit uint

var historyCmd = cobra.Command{
	Use:   "history",
	Short: "Show recent bundle submissions and their outcomes",
	Run: func(cmd *cobra.Command, args []string) {
		logger.InitLogs("history")

		store := db.NewClickhouse()
		defer store.Close()

		rows, err := store.QueryRecentSubmissions(historyLimit)
		if err != nil {
			logger.GlobalLogger.Error("Failed to query submissions", "err", err)
			return
		}
		for _, row := range rows {
			fmt.Printf("%s  %s  region=%s txs=%d tip=%d outcome=%s slot=%d\n",
				row.Timestamp.Format("2006-01-02 15:04:05"), row.BundleID,
				row.Region, row.TxCount, row.TipLamports, row.Outcome, row.LandedSlot)
		}
	},
}

func init() {
	historyCmd.Flags().UintVarP(&historyLimit, "limit", "n", config.HISTORY_RECENT_QUERY_LIMIT, "number of rows to show")
	RootCmd.AddCommand(&historyCmd)
}
