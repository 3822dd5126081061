package dvparser

import (
	"encoding/hex"
	"testing"
)

func TestWalkSimpleEntries(t *testing.T) {
	// DIF=0x04 (32-bit instantaneous), VIF=0x13 (volume, 1e-3 m3), value 0x00000059
	// DIF=0x01 (8-bit instantaneous), VIF=0x13, value 0x11: two plain entries.
	data, err := hex.DecodeString("041359000000011311")
	if err != nil {
		t.Fatalf("hex decode: %v", err)
	}
	res, err := Walk(data)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("Walk: got %d entries, want 2", len(res.Entries))
	}
	if res.UnderstoodByte != len(data) {
		t.Errorf("UnderstoodByte = %d, want %d (fully understood)", res.UnderstoodByte, len(data))
	}

	first := res.Entries[0]
	if first.DIF != 0x04 || first.VIF != 0x13 {
		t.Errorf("first entry DIF/VIF = %02x/%02x, want 04/13", first.DIF, first.VIF)
	}
	v, err := ExtractUint(first)
	if err != nil {
		t.Fatalf("ExtractUint: %v", err)
	}
	if v != 0x59 {
		t.Errorf("ExtractUint(first) = %d, want %d", v, 0x59)
	}

	second := res.Entries[1]
	if second.DIF != 0x01 || len(second.RawBytes) != 1 {
		t.Errorf("second entry DIF=%02x rawlen=%d, want DIF=01 len=1", second.DIF, len(second.RawBytes))
	}
}

func TestWalkTruncatedVIF(t *testing.T) {
	data, _ := hex.DecodeString("04")
	_, err := Walk(data)
	if err == nil {
		t.Fatal("Walk: expected error for truncated VIF, got nil")
	}
	if _, ok := err.(*ErrCorruptDIF); !ok {
		t.Errorf("Walk error type = %T, want *ErrCorruptDIF", err)
	}
}

func TestWalkSkipFiller(t *testing.T) {
	data, _ := hex.DecodeString("2F2F041359000000")
	res, err := Walk(data)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("Walk: got %d entries, want 1 (fillers skipped)", len(res.Entries))
	}
}

func TestFieldMatcherFindByVIFRange(t *testing.T) {
	data, _ := hex.DecodeString("041359000000011311")
	res, err := Walk(data)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	m := NewFieldMatcher().WithVIFRange(VIFRangeVolume)
	e, ok := m.Find(res)
	if !ok {
		t.Fatal("Find: expected a volume entry")
	}
	if e.VIF != 0x13 {
		t.Errorf("Find(volume) matched VIF %02x, want 13", e.VIF)
	}
}

func TestFieldMatcherFindByDifVifKey(t *testing.T) {
	data, _ := hex.DecodeString("041359000000011311")
	res, err := Walk(data)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	m := NewFieldMatcher().WithDifVifKey("0413")
	e, ok := m.Find(res)
	if !ok {
		t.Fatal("Find: expected an entry keyed 0413")
	}
	if e.DIF != 0x04 || e.VIF != 0x13 {
		t.Errorf("Find(key=0413) = %02x%02x, want 0413", e.DIF, e.VIF)
	}
}

func TestExtractInt(t *testing.T) {
	e := DVEntry{DIF: 0x01, RawBytes: []byte{0xFF}}
	v, err := ExtractInt(e)
	if err != nil {
		t.Fatalf("ExtractInt: %v", err)
	}
	if v != -1 {
		t.Errorf("ExtractInt(0xFF as int8) = %d, want -1", v)
	}
}

func TestExtractBCD(t *testing.T) {
	// little-endian BCD bytes 0x59 0x00 0x00 -> 000059 -> 59
	e := DVEntry{RawBytes: []byte{0x59, 0x00, 0x00}}
	v, err := ExtractBCD(e)
	if err != nil {
		t.Fatalf("ExtractBCD: %v", err)
	}
	if v != 59 {
		t.Errorf("ExtractBCD = %d, want 59", v)
	}
}

func TestExtractBCDNegative(t *testing.T) {
	e := DVEntry{RawBytes: []byte{0x12, 0xF0}}
	v, err := ExtractBCD(e)
	if err != nil {
		t.Fatalf("ExtractBCD: %v", err)
	}
	if v != -12 {
		t.Errorf("ExtractBCD(negative) = %d, want -12", v)
	}
}

func TestExtractDouble(t *testing.T) {
	// VIF 0x13 is in the volume range (0x10-0x17), defaultExponent -6, nibble 3 -> -3
	e := DVEntry{DIF: 0x04, VIF: 0x13, RawBytes: []byte{0x59, 0x00, 0x00, 0x00}}
	v, err := ExtractDouble(e, true, false)
	if err != nil {
		t.Fatalf("ExtractDouble: %v", err)
	}
	want := 0.089
	if v < want-1e-9 || v > want+1e-9 {
		t.Errorf("ExtractDouble = %v, want %v", v, want)
	}
}

func TestExtractDateTypeG(t *testing.T) {
	// Bytes taken from the S1 heat-cost-allocator test vector's current_date
	// field (0x32, 0x2D), which decodes to 2022-09-18.
	e := DVEntry{RawBytes: []byte{0x32, 0x2D}}
	got, err := ExtractDate(e)
	if err != nil {
		t.Fatalf("ExtractDate: %v", err)
	}
	want := "2022-09-18T02:00:00Z"
	if got.Format("2006-01-02T15:04:05Z") != want {
		t.Errorf("ExtractDate = %s, want %s", got.Format("2006-01-02T15:04:05Z"), want)
	}
}

func TestExtractDoubleEnergyWh(t *testing.T) {
	// DIF 0x8C,0x10 DIFE-extended tariff-1 energy, VIF 0x04 (from the
	// eltako_dsz15dm ground-truth vector): BCD 7599 at exponent -6+4=-2
	// must scale to 75.99 kWh, not 75990 (regression for the Wh->kWh
	// exponent bug).
	e := DVEntry{DIF: 0x0C, VIF: 0x04, RawBytes: []byte{0x99, 0x75, 0x00, 0x00}}
	v, err := ExtractDouble(e, true, false)
	if err != nil {
		t.Fatalf("ExtractDouble: %v", err)
	}
	want := 75.99
	if v < want-1e-9 || v > want+1e-9 {
		t.Errorf("ExtractDouble(energy Wh->kWh) = %v, want %v", v, want)
	}
}

func TestExtractDoubleFlowTemperature(t *testing.T) {
	// VIF 0x5A is in the flow-temperature range (0x58-0x5B), nibble 2,
	// exponent -3+2=-1: binary 206 (0x00CE) must scale to 20.6 degC, not 2.06
	// (regression for the reversed-nibble temperature exponent bug).
	e := DVEntry{DIF: 0x02, VIF: 0x5A, RawBytes: []byte{0xCE, 0x00}}
	v, err := ExtractDouble(e, true, false)
	if err != nil {
		t.Fatalf("ExtractDouble: %v", err)
	}
	want := 20.6
	if v < want-1e-9 || v > want+1e-9 {
		t.Errorf("ExtractDouble(flow temperature) = %v, want %v", v, want)
	}
}

func TestVIFExponentBoundaries(t *testing.T) {
	// Spec: 0x00-0x07 Energy Wh exponent -3..+4 natively, -6..+1 once
	// rendered in kWh; 0x58-0x5B Flow temperature exponent -3..0.
	if got := vifExponent(0x00); got != -6 {
		t.Errorf("vifExponent(0x00) = %d, want -6", got)
	}
	if got := vifExponent(0x07); got != 1 {
		t.Errorf("vifExponent(0x07) = %d, want 1", got)
	}
	if got := vifExponent(0x58); got != -3 {
		t.Errorf("vifExponent(0x58) = %d, want -3", got)
	}
	if got := vifExponent(0x5B); got != 0 {
		t.Errorf("vifExponent(0x5B) = %d, want 0", got)
	}
}

func TestToVIFRange(t *testing.T) {
	if ToVIFRange(0x13) != VIFRangeVolume {
		t.Errorf("ToVIFRange(0x13) = %v, want VIFRangeVolume", ToVIFRange(0x13))
	}
	if ToVIFRange(0xFF&0x7F) != VIFRangeNone {
		// 0x7F is outside every declared range
		t.Errorf("ToVIFRange(0x7F) = %v, want VIFRangeNone", ToVIFRange(0x7F))
	}
}
