package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wmbusgo/wmbusdecode/internal/discovery"
	"github.com/wmbusgo/wmbusdecode/internal/session"
	"github.com/wmbusgo/wmbusdecode/internal/transport"
	"github.com/wmbusgo/wmbusdecode/internal/tui"
)

var (
	tuiHost     string
	tuiPort     int
	tuiLogLevel string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Show a live dashboard of decoded meters",
	Long: `Launch a terminal dashboard listing every meter a decode session has
seen: id, driver, name, and time since last telegram.

This also starts a frame-source WebSocket listener (the same one 'serve'
starts) so the dashboard has telegrams to show; press q to quit.`,
	Example: `  # Show the dashboard, listening on the default port
  wmbusdecode tui

  # Listen on a custom port
  wmbusdecode tui --port 8443`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiHost, "host", "", "Listener hostname (empty = listen on all interfaces)")
	tuiCmd.Flags().IntVar(&tuiPort, "port", discovery.DefaultPort, "Listener port")
	tuiCmd.Flags().StringVar(&tuiLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	sess := session.New()

	config := &transport.Config{
		Host:         tuiHost,
		Port:         tuiPort,
		GenerateCert: true,
		LogLevel:     tuiLogLevel,
	}
	srv, err := transport.New(config, sess)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	p := tea.NewProgram(tui.NewDashboard(sess))
	_, runErr := p.Run()

	if shutErr := srv.Shutdown(context.Background()); shutErr != nil {
		fmt.Fprintf(os.Stderr, "warning: listener shutdown: %v\n", shutErr)
	}
	if runErr != nil {
		return fmt.Errorf("dashboard error: %w", runErr)
	}

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: listener: %v\n", err)
		}
	default:
	}
	return nil
}
