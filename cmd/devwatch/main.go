// Devwatch watches the local network for advertised devices and prints them.
//
// It browses a DNS-SD service type through avahi-daemon on the system D-Bus
// (or directly over multicast DNS), resolves every announcement and prints
// the device described by its TXT records.
//
// Usage:
//
//	devwatch [command] [flags]
//
// Running without arguments listens with the default settings.
// See 'devwatch --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/devwatch/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "devwatch",
	Short: "Discover network devices via DNS-SD",
	Long: `Watch the local network for devices advertising a DNS-SD service.

Each announcement is resolved to its host, address and TXT records, and the
device described by the TXT records is printed. Removals are logged.

If no command is specified, devwatch listens until interrupted.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runListen,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("devwatch %s\n", version.Full())
	},
}
