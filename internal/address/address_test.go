package address

import "testing"

func TestPackManufacturerRoundTrip(t *testing.T) {
	tests := []string{"KAM", "APA", "ELT", "ZRI", "AAA", "ZZZ"}
	for _, code := range tests {
		packed, err := PackManufacturer(code)
		if err != nil {
			t.Fatalf("PackManufacturer(%q): %v", code, err)
		}
		if got := ManufacturerCode(packed); got != code {
			t.Errorf("ManufacturerCode(PackManufacturer(%q)) = %q, want %q", code, got, code)
		}
	}
}

func TestPackManufacturerInvalid(t *testing.T) {
	tests := []string{"AB", "ABCD", "ab1", "12A"}
	for _, code := range tests {
		if _, err := PackManufacturer(code); err == nil {
			t.Errorf("PackManufacturer(%q): expected error, got nil", code)
		}
	}
}

func TestManufacturerName(t *testing.T) {
	packed, err := PackManufacturer("KAM")
	if err != nil {
		t.Fatalf("PackManufacturer: %v", err)
	}
	if got := ManufacturerName(packed); got != "Kamstrup" {
		t.Errorf("ManufacturerName(KAM) = %q, want %q", got, "Kamstrup")
	}

	unknown, err := PackManufacturer("ZZZ")
	if err != nil {
		t.Fatalf("PackManufacturer: %v", err)
	}
	if got := ManufacturerName(unknown); got != "ZZZ" {
		t.Errorf("ManufacturerName(ZZZ) = %q, want bare code %q", got, "ZZZ")
	}
}

func TestDecodeBCD(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{0x31, 0x37, 0x37, 0x37}, "37373731"},
		{[]byte{0x99, 0x87, 0x34, 0x76}, "76348799"},
		{[]byte{0x00}, "00"},
	}
	for _, tt := range tests {
		got, err := DecodeBCD(tt.in)
		if err != nil {
			t.Fatalf("DecodeBCD(% x): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("DecodeBCD(% x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeBCDInvalid(t *testing.T) {
	if _, err := DecodeBCD([]byte{0xfa}); err == nil {
		t.Error("DecodeBCD(0xfa): expected error for non-BCD nibble, got nil")
	}
}

func TestAddressString(t *testing.T) {
	packed, _ := PackManufacturer("KAM")
	a := Address{Manufacturer: packed, ID: "76348799", Version: 0x1b, Media: 0x16}
	want := "KAM(76348799) v1b media=16"
	if got := a.String(); got != want {
		t.Errorf("Address.String() = %q, want %q", got, want)
	}
}
