// Wmbusdecode decodes wireless and wired M-Bus telegrams.
//
// It reads hex-encoded telegrams (one per line, as JSON decode requests or
// bare hex strings) and prints a single-line JSON response for each, mirrors
// frame sources over a WebSocket listener for long-running collection, scans
// the local network for other wmbusdecode instances, and can show a live
// terminal dashboard of the meters it has seen.
//
// Usage:
//
//	wmbusdecode decode [flags] [telegram-hex]
//	wmbusdecode serve [flags]
//	wmbusdecode discover [flags]
//	wmbusdecode tui
//
// See 'wmbusdecode --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/wmbusgo/wmbusdecode/internal/drivers"
	"github.com/wmbusgo/wmbusdecode/internal/meter"
	"github.com/wmbusgo/wmbusdecode/internal/version"
)

func main() {
	meter.Freeze()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wmbusdecode",
	Short: "Wireless and wired M-Bus telegram decoder",
	Long: `wmbusdecode turns raw wM-Bus/M-Bus telegrams into structured readings.

It can decode telegrams one at a time from the command line or stdin, accept
a stream of framed telegrams over a WebSocket listener, discover other
wmbusdecode instances on the local network, and show a live dashboard of the
meters a running session has seen.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}
