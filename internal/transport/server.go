package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wmbusgo/wmbusdecode/internal/mlog"
	"github.com/wmbusgo/wmbusdecode/internal/session"
	"go.uber.org/zap"
)

// Config holds the frame-source listener configuration.
type Config struct {
	Host         string
	Port         int
	CertPath     string // certificate file path (ignored if GenerateCert is true)
	KeyPath      string // key file path (ignored if GenerateCert is true)
	GenerateCert bool   // generate a self-signed certificate in memory
	LogLevel     string
}

// Server accepts frame-source WebSocket connections and decodes the
// telegrams they carry through a shared DecoderSession.
type Server struct {
	config      *Config
	session     *session.DecoderSession
	httpServer  *http.Server
	tlsConfig   *tls.Config
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
}

// New creates a Server bound to the given decode session.
func New(config *Config, sess *session.DecoderSession) (*Server, error) {
	if err := mlog.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	var tlsConfig *tls.Config
	var err error

	if config.GenerateCert {
		mlog.Info("generating self-signed server certificate")
		tlsConfig, err = generateAndLoadCert()
		if err != nil {
			return nil, fmt.Errorf("failed to generate certificate: %w", err)
		}
	} else if config.CertPath != "" {
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:      config,
		session:     sess,
		tlsConfig:   tlsConfig,
		activeConns: make(map[string]net.Conn),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/frames", s.handleFrames)
	s.httpServer = &http.Server{
		Addr:      fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:   mux,
		TLSConfig: tlsConfig,
	}

	return s, nil
}

// Start starts the listener and blocks until a shutdown signal or a fatal
// accept error occurs.
func (s *Server) Start() error {
	addr := s.httpServer.Addr

	if s.tlsConfig != nil {
		mlog.Info("starting wmbusdecode frame listener (tls)",
			zap.String("addr", addr),
			zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
		)
	} else {
		mlog.Info("starting wmbusdecode frame listener", zap.String("addr", addr))
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind listener: %w", err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.httpServer.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		mlog.Info("shutdown signal received, stopping frame listener")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the listener: no new connections are accepted,
// active connections are closed, and in-flight frame handling gets a
// bounded window to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	mlog.Info("shutting down frame listener")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		mlog.Error("error during HTTP shutdown", zap.Error(err))
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		mlog.Info("closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		mlog.Info("all connections closed gracefully")
	case <-time.After(10 * time.Second):
		mlog.Warn("shutdown timeout after 10 seconds, forcing close")
	}

	mlog.Sync()
	return nil
}

// GetActiveConnections returns the number of currently open frame-source
// connections.
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
