// Package cmd wires the corekv CLI with cobra and viper.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

// RootCmd is the base command when corekv is invoked without any
// subcommand.
var RootCmd = &cobra.Command{
	Use:   "corekv",
	Short: "shard-per-core key/value store",
	Long: fmt.Sprintf(`corekv (v%s)

A shard-per-core key/value store that layers an in-memory LRU cache
over an append-only on-disk log, exposed over HTTP/JSON.`, Version),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of corekv",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("corekv v%s\n", Version)
	},
}

func init() {
	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
