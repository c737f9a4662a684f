package main

import (
	"os"

	"github.com/inscription-c/zins/inscription"
	"github.com/inscription-c/zins/inscription/server"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

var rootCmd = &cobra.Command{
	Use:   "zins",
	Short: "zins indexes proverb inscriptions and shielded memos on zcash.",
}

func init() {
	rootCmd.AddCommand(server.Cmd)
	rootCmd.AddCommand(server.IndexCmd)
	rootCmd.AddCommand(inscription.DecodeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
