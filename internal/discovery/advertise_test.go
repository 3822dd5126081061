package discovery

import "testing"

func TestSanitizeInstance(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kitchen", "kitchen"},
		{"my.host.example.com", "my-host-example-com"},
		{"", "unknown"},
		{"Living Room", "Living-Room"},
	}

	for _, tt := range tests {
		if got := sanitizeInstance(tt.in); got != tt.want {
			t.Errorf("sanitizeInstance(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
