package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bundler/config"
	"bundler/jito"
	"bundler/logger"
)

var tipAccountsRegion string

var tipAccountsCmd = cobra.Command{
	Use:   "tip-accounts",
	Short: "Print the relay's current tip recipient set",
	Run: func(cmd *cobra.Command, args []string) {
		logger.InitLogs("tip-accounts")

		client := jito.NewClient(tipAccountsRegion)
		accounts, err := client.GetTipAccounts(cmd.Context())
		if err != nil {
			logger.RelayLogger.Error("Failed to fetch tip accounts", "err", err)
			return
		}
		for _, account := range accounts {
			fmt.Println(account)
		}
	},
}

func init() {
	tipAccountsCmd.Flags().StringVar(&tipAccountsRegion, "region", config.DefaultRegion, "relay region")
	RootCmd.AddCommand(&tipAccountsCmd)
}
