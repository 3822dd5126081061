package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wmbusgo/wmbusdecode/internal/discovery"
	"github.com/wmbusgo/wmbusdecode/internal/session"
	"github.com/wmbusgo/wmbusdecode/internal/transport"
)

var (
	serveCertPath    string
	serveKeyPath     string
	serveHost        string
	servePort        int
	serveLogLevel    string
	serveInstance    string
	serveNoAdvertise bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for frame sources over a WebSocket",
	Long: `Start a WebSocket listener that accepts frame-source connections and
decodes every telegram they deliver through a shared decode session.

The server auto-generates a self-signed TLS certificate if none is
provided. Use --cert/--key to supply your own.

By default the listener also announces itself over mDNS so 'wmbusdecode
discover' can find it; pass --no-advertise to run silently.`,
	Example: `  # Listen on the default port with an auto-generated certificate
  wmbusdecode serve

  # Listen on a custom port with debug logging
  wmbusdecode serve --port 8443 --log-level debug

  # Use a certificate issued by a real CA
  wmbusdecode serve --cert fullchain.pem --key privkey.pem`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveCertPath, "cert", "", "Path to TLS certificate file (auto-generates one if not provided)")
	serveCmd.Flags().StringVar(&serveKeyPath, "key", "", "Path to TLS private key file (auto-generates one if not provided)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listener hostname (empty = listen on all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", discovery.DefaultPort, "Listener port")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveInstance, "instance", "", "mDNS instance name (empty = OS hostname)")
	serveCmd.Flags().BoolVar(&serveNoAdvertise, "no-advertise", false, "Don't announce this listener over mDNS")
}

func runServe(cmd *cobra.Command, args []string) error {
	certProvided := serveCertPath != "" && serveKeyPath != ""
	if (serveCertPath != "") != (serveKeyPath != "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither (will auto-generate)")
	}
	if certProvided {
		if _, err := os.Stat(serveCertPath); os.IsNotExist(err) {
			return fmt.Errorf("certificate file not found: %s", serveCertPath)
		}
		if _, err := os.Stat(serveKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("private key file not found: %s", serveKeyPath)
		}
	}

	config := &transport.Config{
		Host:         serveHost,
		Port:         servePort,
		CertPath:     serveCertPath,
		KeyPath:      serveKeyPath,
		GenerateCert: !certProvided,
		LogLevel:     serveLogLevel,
	}

	sess := session.New()
	srv, err := transport.New(config, sess)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	if !serveNoAdvertise {
		stopAdvertising := advertiseAndRefresh(sess, serveInstance, servePort)
		defer stopAdvertising()
	}

	return srv.Start()
}

// advertiseAndRefresh registers an mDNS advertisement for this listener and
// periodically re-registers it so the TXT record's meter list stays current
// as the session decodes new meters. The returned func stops the refresh
// loop and withdraws the advertisement.
func advertiseAndRefresh(sess *session.DecoderSession, instance string, port int) func() {
	done := make(chan struct{})

	register := func() *discovery.Advertisement {
		meters := sess.Snapshot()
		ids := make([]string, len(meters))
		for i, m := range meters {
			ids[i] = m.ID
		}
		adv, err := discovery.Advertise(instance, port, ids)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: mDNS advertise failed: %v\n", err)
			return nil
		}
		return adv
	}

	adv := register()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if adv != nil {
					adv.Shutdown()
				}
				adv = register()
			case <-done:
				if adv != nil {
					adv.Shutdown()
				}
				return
			}
		}
	}()

	return func() { close(done) }
}
