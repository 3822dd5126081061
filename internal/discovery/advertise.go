package discovery

import (
	"fmt"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"
)

// Advertisement is a running mDNS advertisement for one wmbusdecode
// listener; call Shutdown to stop announcing and withdraw the record.
type Advertisement struct {
	zc *zeroconf.Server
}

// Shutdown withdraws the advertisement from the network.
func (a *Advertisement) Shutdown() {
	a.zc.Shutdown()
}

// Advertise registers this process as a wmbusdecode peer on the local
// network under ServiceType, reachable at port, with meterIDs listed in
// the TXT record so ScanForPeers/WaitForPeer can match requests against
// it. instance names the peer (e.g. "kitchen"); if empty, the OS hostname
// is used.
func Advertise(instance string, port int, meterIDs []string) (*Advertisement, error) {
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		instance = hostname
	}
	instance = sanitizeInstance(instance)
	host := fmt.Sprintf("wmbusdecode-%s.local.", instance)

	text := []string{"meters=" + strings.Join(meterIDs, ",")}

	zc, err := zeroconf.RegisterProxy(instance, ServiceType, ServiceDomain, port, host, nil, text, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: failed to advertise: %w", err)
	}
	return &Advertisement{zc: zc}, nil
}

// sanitizeInstance keeps only the characters peerPattern accepts, so a
// hostname containing '.' (a FQDN) still produces a matchable instance.
func sanitizeInstance(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := b.String()
	if out == "" {
		return "unknown"
	}
	return out
}
