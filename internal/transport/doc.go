// Package transport implements a WebSocket listener that accepts wM-Bus
// frame sources — rtl_wmbus dongles, other wmbusdecode instances relaying
// frames, test harnesses — as collaborators feeding a decode session.
//
// # Frame message format
//
// Each inbound WebSocket text or binary message is a single-line JSON
// object:
//
//	{"source":"rtlwmbus[0]","frame":"<hex telegram>","rssi":-62,"key":"<hex key>","driver":"auto"}
//
// Only "frame" is required; "source" and "rssi" are recorded for logging,
// "key" and "driver" are forwarded to the decode session unchanged. The
// listener replies on the same connection with the session's single-line
// JSON decode response.
//
// # TLS
//
// When Config.CertPath/KeyPath are set, the listener serves TLS 1.2+ with
// the Go standard library's default cipher suite selection. When
// Config.GenerateCert is set instead, a self-signed certificate is
// generated in memory (see selfsignedcert.go) so the listener can run
// without a provisioned certificate during development.
//
// # Usage
//
//	srv, err := transport.New(&transport.Config{
//	    Host: "", Port: 7653, GenerateCert: true, LogLevel: "info",
//	}, session.New())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful shutdown
//
// The listener handles SIGINT and SIGTERM: it stops accepting new
// connections, closes active WebSocket connections, and waits (up to a
// bounded timeout) for in-flight frame handling to finish.
//
// # Thread safety
//
// Safe for concurrent use; every connection is served from its own
// goroutine and frames are decoded through the session's own locking.
package transport
