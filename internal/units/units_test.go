package units

import "testing"

func TestConvertRoundTrip(t *testing.T) {
	pairs := []struct {
		a, b Unit
		v    float64
	}{
		{UnitC, UnitF, 21.703125},
		{UnitC, UnitK, 100},
		{UnitF, UnitK, -40},
		{UnitKWH, UnitMJ, 2651},
		{UnitM3H, UnitM3H, 6.408},
	}
	for _, p := range pairs {
		mid, err := Convert(p.v, p.a, p.b)
		if err != nil {
			t.Fatalf("Convert(%v, %v->%v): %v", p.v, p.a, p.b, err)
		}
		back, err := Convert(mid, p.b, p.a)
		if err != nil {
			t.Fatalf("Convert(%v, %v->%v): %v", mid, p.b, p.a, err)
		}
		if !RoughlyEqual(back, p.v) {
			t.Errorf("round trip %v->%v->%v: got %v, want %v", p.a, p.b, p.a, back, p.v)
		}
	}
}

func TestConvertKnownValues(t *testing.T) {
	got, err := Convert(0, UnitC, UnitF)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !RoughlyEqual(got, 32) {
		t.Errorf("0C in F = %v, want 32", got)
	}

	got, err = Convert(100, UnitC, UnitK)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !RoughlyEqual(got, 373.15) {
		t.Errorf("100C in K = %v, want 373.15", got)
	}

	got, err = Convert(1, UnitKWH, UnitMJ)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !RoughlyEqual(got, 3.6) {
		t.Errorf("1 kWh in MJ = %v, want 3.6", got)
	}
}

func TestConvertIncompatibleUnits(t *testing.T) {
	if _, err := Convert(1, UnitM3, UnitKWH); err == nil {
		t.Error("Convert(m3, kwh): expected incompatibility error, got nil")
	}
}

func TestConvertUnknownUnit(t *testing.T) {
	if _, err := Convert(1, Unit(9999), UnitM3); err == nil {
		t.Error("Convert with unknown unit: expected error, got nil")
	}
}

func TestDivide(t *testing.T) {
	flow, err := Divide(UnitM3, UnitSecond)
	if err != nil {
		t.Fatalf("Divide: %v", err)
	}
	m3h, err := dimensionOf(UnitM3H)
	if err != nil {
		t.Fatalf("dimensionOf: %v", err)
	}
	if flow.exp != m3h.exp {
		t.Errorf("m3/s exponent vector = %v, want %v (same as m3h)", flow.exp, m3h.exp)
	}
}

func TestSqrtFractionalExponent(t *testing.T) {
	vol, err := dimensionOf(UnitM3)
	if err != nil {
		t.Fatalf("dimensionOf: %v", err)
	}
	if _, err := Sqrt(vol); err == nil {
		t.Error("Sqrt(m3): expected fractional-exponent error, got nil")
	}
}

func TestSqrtArea(t *testing.T) {
	area := Dimension{exp: expVector{0: 0, 1: 2}, scale: 4}
	root, err := Sqrt(area)
	if err != nil {
		t.Fatalf("Sqrt(area): %v", err)
	}
	if root.exp[1] != 1 {
		t.Errorf("Sqrt(area).exp[dimMeter] = %d, want 1", root.exp[1])
	}
	if !RoughlyEqual(root.scale, 2) {
		t.Errorf("Sqrt(area).scale = %v, want 2", root.scale)
	}
}

func TestDefaultUnit(t *testing.T) {
	tests := []struct {
		q    Quantity
		want Unit
	}{
		{QuantityVolume, UnitM3},
		{QuantityTemperature, UnitC},
		{QuantityEnergy, UnitKWH},
		{QuantityHCA, UnitHCA},
	}
	for _, tt := range tests {
		if got := DefaultUnit(tt.q); got != tt.want {
			t.Errorf("DefaultUnit(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
}
