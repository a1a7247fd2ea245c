package cmd

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "solana-bundle-runner",
	Short: "A tool for building, signing and submitting atomic Jito bundles",
}
