package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wmbusgo/wmbusdecode/internal/discovery"
)

var discoverTimeout int

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan for other wmbusdecode instances on the network",
	Long: `Scan for other wmbusdecode instances using mDNS/DNS-SD discovery.

This command listens for mDNS broadcasts from other wmbusdecode "serve"
listeners and displays each one's address, port, and the meter ids its TXT
record claims to be decoding.`,
	Example: `  # Scan for 10 seconds (default)
  wmbusdecode discover

  # Quick 3-second scan
  wmbusdecode discover --timeout 3`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for wmbusdecode peers (timeout: %ds)...\n\n", discoverTimeout)

	peers, err := discovery.ScanForPeers(time.Duration(discoverTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(peers) == 0 {
		fmt.Println("No peers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the peer is running 'wmbusdecode serve'")
		fmt.Println("  - Check that both machines are on the same network segment")
		fmt.Println("  - Try increasing --timeout for slower networks")
		return nil
	}

	fmt.Printf("Found %d peer(s):\n\n", len(peers))
	for i, p := range peers {
		fmt.Printf("%d. %s\n", i+1, p.String())
		if len(p.MetersAdvertised) > 0 {
			fmt.Printf("   Meters: %v\n", p.MetersAdvertised)
		}
		fmt.Printf("   URL:    %s\n", p.WebSocketURL())
		fmt.Println()
	}

	return nil
}
