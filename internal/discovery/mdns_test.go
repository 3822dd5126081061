package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name         string
		entry        *zeroconf.ServiceEntry
		wantNil      bool
		wantInstance string
		wantIP       string
		wantPort     int
	}{
		{
			name: "valid peer with IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "wmbusdecode-kitchen.local.",
				Port:     7653,
				AddrIPv4: []net.IP{net.ParseIP("192.168.4.16")},
				Text:     []string{"meters=37373731", "version=1.0"},
			},
			wantNil:      false,
			wantInstance: "kitchen",
			wantIP:       "192.168.4.16",
			wantPort:     7653,
		},
		{
			name: "valid peer without trailing dot",
			entry: &zeroconf.ServiceEntry{
				HostName: "wmbusdecode-basement.local",
				Port:     7653,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				Text:     []string{},
			},
			wantNil:      false,
			wantInstance: "basement",
			wantIP:       "10.0.0.5",
			wantPort:     7653,
		},
		{
			name: "valid peer with custom port",
			entry: &zeroconf.ServiceEntry{
				HostName: "wmbusdecode-garage.local",
				Port:     9999,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.100")},
			},
			wantNil:      false,
			wantInstance: "garage",
			wantIP:       "192.168.1.100",
			wantPort:     9999,
		},
		{
			name: "peer with no port specified (should default)",
			entry: &zeroconf.ServiceEntry{
				HostName: "wmbusdecode-attic.local",
				Port:     0,
				AddrIPv4: []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantNil:      false,
			wantInstance: "attic",
			wantIP:       "172.16.0.1",
			wantPort:     DefaultPort,
		},
		{
			name: "non-peer hostname",
			entry: &zeroconf.ServiceEntry{
				HostName: "someotherhost.local",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "empty hostname",
			entry: &zeroconf.ServiceEntry{
				HostName: "",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				HostName: "wmbusdecode-kitchen.local",
				Port:     80,
				AddrIPv4: []net.IP{},
				AddrIPv6: []net.IP{},
			},
			wantNil: true,
		},
		{
			name: "IPv6 only peer",
			entry: &zeroconf.ServiceEntry{
				HostName: "wmbusdecode-loft.local",
				Port:     80,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantNil:      false,
			wantInstance: "loft",
			wantIP:       "fe80::1",
			wantPort:     80,
		},
		{
			name: "peer with both IPv4 and IPv6 (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				HostName: "wmbusdecode-shed.local",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantNil:      false,
			wantInstance: "shed",
			wantIP:       "192.168.1.50",
			wantPort:     80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peer := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if peer != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", peer)
				}
				return
			}

			if peer == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil peer")
			}
			if peer.Instance != tt.wantInstance {
				t.Errorf("peer.Instance = %v, want %v", peer.Instance, tt.wantInstance)
			}
			if peer.IP != tt.wantIP {
				t.Errorf("peer.IP = %v, want %v", peer.IP, tt.wantIP)
			}
			if peer.Port != tt.wantPort {
				t.Errorf("peer.Port = %v, want %v", peer.Port, tt.wantPort)
			}
			if peer.Host != tt.entry.HostName {
				t.Errorf("peer.Host = %v, want %v", peer.Host, tt.entry.HostName)
			}
			if time.Since(peer.DiscoveredAt) > time.Second {
				t.Errorf("peer.DiscoveredAt is not recent: %v", peer.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	entry := &zeroconf.ServiceEntry{
		HostName: "wmbusdecode-kitchen.local",
		Port:     7653,
		AddrIPv4: []net.IP{net.ParseIP("192.168.4.16")},
		Text:     []string{"meters=37373731,76348799", "flag", "version=1.0"},
	}

	peer := scanner.parseServiceEntry(entry)
	if peer == nil {
		t.Fatal("parseServiceEntry() = nil, want peer")
	}

	if !peer.Advertises("37373731") || !peer.Advertises("76348799") {
		t.Errorf("peer.MetersAdvertised = %v, want both ids parsed", peer.MetersAdvertised)
	}

	expectedMetadata := map[string]string{
		"meters":  "37373731,76348799",
		"flag":    "",
		"version": "1.0",
	}
	if len(peer.Metadata) != len(expectedMetadata) {
		t.Errorf("peer.Metadata has %d entries, want %d", len(peer.Metadata), len(expectedMetadata))
	}
	for key, expectedValue := range expectedMetadata {
		if actualValue, ok := peer.Metadata[key]; !ok {
			t.Errorf("peer.Metadata missing key %q", key)
		} else if actualValue != expectedValue {
			t.Errorf("peer.Metadata[%q] = %q, want %q", key, actualValue, expectedValue)
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestPeerPattern(t *testing.T) {
	tests := []struct {
		hostname    string
		shouldMatch bool
		instance    string
	}{
		{"wmbusdecode-kitchen.local", true, "kitchen"},
		{"wmbusdecode-kitchen.local.", true, "kitchen"},
		{"wmbusdecode-basement-2.local", true, "basement-2"},
		{"wmbusdecode-a.local", true, "a"},
		{"WmbusDecode-kitchen.local", false, ""}, // wrong case
		{"wmbusdecode-.local", false, ""},        // no instance
		{"somedevice.local", false, ""},          // wrong prefix
		{"wmbusdecode-kitchen", false, ""},       // missing .local
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			matches := peerPattern.FindStringSubmatch(tt.hostname)

			if tt.shouldMatch {
				if matches == nil || len(matches) < 2 {
					t.Errorf("peerPattern did not match %q", tt.hostname)
				} else if matches[1] != tt.instance {
					t.Errorf("peerPattern matched %q with instance %q, want %q", tt.hostname, matches[1], tt.instance)
				}
			} else if matches != nil {
				t.Errorf("peerPattern matched %q, want no match", tt.hostname)
			}
		})
	}
}

// Note: Integration tests with live mDNS discovery require network access
// and should be run manually with a build tag, as in the upstream package
// this was adapted from.
