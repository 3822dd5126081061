package discovery

import (
	"testing"
	"time"
)

func TestPeer_String(t *testing.T) {
	p := &Peer{
		Instance: "kitchen",
		Host:     "wmbusdecode-kitchen.local",
		IP:       "192.168.4.16",
		Port:     7653,
	}

	expected := "wmbusdecode peer kitchen (wmbusdecode-kitchen.local) at 192.168.4.16:7653"
	if p.String() != expected {
		t.Errorf("Peer.String() = %v, want %v", p.String(), expected)
	}
}

func TestPeer_WebSocketURL(t *testing.T) {
	tests := []struct {
		name     string
		peer     *Peer
		expected string
	}{
		{
			name:     "default port",
			peer:     &Peer{IP: "192.168.4.16", Port: 7653},
			expected: "wss://192.168.4.16:7653/frames",
		},
		{
			name:     "custom port",
			peer:     &Peer{IP: "10.0.0.5", Port: 8080},
			expected: "wss://10.0.0.5:8080/frames",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.peer.WebSocketURL(); got != tt.expected {
				t.Errorf("Peer.WebSocketURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPeer_GetMetadata(t *testing.T) {
	p := &Peer{
		Metadata: map[string]string{
			"meters":  "37373731,76348799",
			"version": "1.0",
		},
	}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"existing key", "meters", "37373731,76348799"},
		{"another existing key", "version", "1.0"},
		{"non-existent key", "missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.GetMetadata(tt.key); got != tt.expected {
				t.Errorf("Peer.GetMetadata(%v) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestPeer_GetMetadata_NilMap(t *testing.T) {
	p := &Peer{Metadata: nil}
	if got := p.GetMetadata("anything"); got != "" {
		t.Errorf("Peer.GetMetadata() with nil map = %v, want empty string", got)
	}
}

func TestPeer_Advertises(t *testing.T) {
	p := &Peer{MetersAdvertised: []string{"37373731", "76348799"}}

	if !p.Advertises("37373731") {
		t.Error("Advertises(37373731) = false, want true")
	}
	if p.Advertises("15503451") {
		t.Error("Advertises(15503451) = true, want false")
	}
}

func TestPeer_DiscoveredAt(t *testing.T) {
	now := time.Now()
	p := &Peer{Instance: "kitchen", DiscoveredAt: now}
	if p.DiscoveredAt != now {
		t.Errorf("Peer.DiscoveredAt = %v, want %v", p.DiscoveredAt, now)
	}
}
