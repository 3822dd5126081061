package discovery

import (
	"fmt"
	"time"
)

// Peer represents another wmbusdecode instance discovered on the network,
// advertising a set of meter ids it is actively decoding.
type Peer struct {
	// Instance is the peer's advertised service instance name.
	Instance string

	// Host is the mDNS hostname (e.g. "wmbusdecode-kitchen.local").
	Host string

	// IP is the IPv4 (or IPv6) address.
	IP string

	// Port is the transport listener port (see internal/transport).
	Port int

	// MetersAdvertised lists the meter ids (8 BCD digits) this peer's TXT
	// record claims to be decoding, parsed from a "meters=id1,id2,..." entry.
	MetersAdvertised []string

	// Metadata holds any other mDNS TXT record fields.
	Metadata map[string]string

	// DiscoveredAt is when this peer was found.
	DiscoveredAt time.Time
}

// String returns a human-readable description of the peer.
func (p *Peer) String() string {
	return fmt.Sprintf("wmbusdecode peer %s (%s) at %s:%d", p.Instance, p.Host, p.IP, p.Port)
}

// WebSocketURL returns the wss:// URL for this peer's frame-source listener.
func (p *Peer) WebSocketURL() string {
	return fmt.Sprintf("wss://%s:%d/frames", p.IP, p.Port)
}

// GetMetadata retrieves a TXT record value by key, or "" if absent.
func (p *Peer) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}

// Advertises reports whether this peer's TXT record claims to decode the
// given meter id.
func (p *Peer) Advertises(meterID string) bool {
	for _, id := range p.MetersAdvertised {
		if id == meterID {
			return true
		}
	}
	return false
}
