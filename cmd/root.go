// Package cmd implements the secscan command line interface: the API server
// and the client commands that drive it.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	verbose   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "secscan",
	Short: "Repository security scanning service and CLI",
	Long: `secscan analyzes repository checkouts for known-vulnerable dependencies,
dangerous code patterns, and supply-chain risk, and aggregates the
results into persisted security reports.

The serve command runs the API server; the remaining commands are
clients for it, except scan, which runs the analysis pipeline locally
without a server.`,
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "secscan API server URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
