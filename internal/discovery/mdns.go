package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type wmbusdecode peer listeners
	// advertise themselves under.
	ServiceType = "_wmbusdecode._tcp"

	// ServiceDomain is the mDNS domain (typically "local.").
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for peer discovery.
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the default transport listener port.
	DefaultPort = 7653
)

// peerPattern matches wmbusdecode peer hostnames, e.g. "wmbusdecode-kitchen.local".
var peerPattern = regexp.MustCompile(`^wmbusdecode-([a-zA-Z0-9_-]+)\.local\.?$`)

// Scanner handles mDNS peer discovery.
type Scanner struct {
	Timeout time.Duration
}

// NewScanner creates an mDNS scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// ScanForPeers discovers every wmbusdecode peer on the local network.
func (s *Scanner) ScanForPeers() ([]*Peer, error) {
	return s.ScanForPeersWithContext(context.Background())
}

// ScanForPeersWithContext discovers peers with a custom context.
func (s *Scanner) ScanForPeersWithContext(ctx context.Context) ([]*Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	peers := make([]*Peer, 0)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if p := s.parseServiceEntry(entry); p != nil {
				peers = append(peers, p)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	return peers, nil
}

// WaitForPeer waits for a peer advertising the given meter id.
func (s *Scanner) WaitForPeer(meterID string) (*Peer, error) {
	return s.WaitForPeerWithContext(context.Background(), meterID)
}

// WaitForPeerWithContext waits for a peer advertising meterID with a
// custom context.
func (s *Scanner) WaitForPeerWithContext(ctx context.Context, meterID string) (*Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	peerChan := make(chan *Peer, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			p := s.parseServiceEntry(entry)
			if p != nil && p.Advertises(meterID) {
				peerChan <- p
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case p := <-peerChan:
		return p, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no peer advertising meter %s found within timeout", meterID)
	}
}

// parseServiceEntry converts a zeroconf entry into a Peer, or nil if the
// entry doesn't match a wmbusdecode peer hostname.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Peer {
	hostname := entry.HostName
	if hostname == "" {
		return nil
	}

	matches := peerPattern.FindStringSubmatch(hostname)
	if len(matches) < 2 {
		return nil
	}
	instance := matches[1]

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	var meters []string
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		key := parts[0]
		value := ""
		if len(parts) == 2 {
			value = parts[1]
		}
		metadata[key] = value
		if key == "meters" && value != "" {
			meters = strings.Split(value, ",")
		}
	}

	return &Peer{
		Instance:         instance,
		Host:             hostname,
		IP:               ip,
		Port:             port,
		MetersAdvertised: meters,
		Metadata:         metadata,
		DiscoveredAt:     time.Now(),
	}
}

// ScanForPeers scans with a custom timeout.
func ScanForPeers(timeout time.Duration) ([]*Peer, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForPeers()
}

// QuickScan performs a fast scan with a 3-second timeout.
func QuickScan() ([]*Peer, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.ScanForPeers()
}

// FindPeerForMeter searches for a peer advertising meterID with the
// default timeout.
func FindPeerForMeter(meterID string) (*Peer, error) {
	scanner := NewScanner()
	return scanner.WaitForPeer(meterID)
}
