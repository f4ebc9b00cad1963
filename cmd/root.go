// Package cmd wires the NukeKV command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Akshat-Diwedi/nuke-kv/cmd/serve"
)

const (
	Version = "2.5.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "nukekv",
		Short: "in-memory key-value database",
		Long: fmt.Sprintf(`NukeKV (v%s)

An in-memory key-value database with optional disk persistence, TTL expiry,
LRU-based memory capping and a framed TCP request/response protocol.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of NukeKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("NukeKV v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
