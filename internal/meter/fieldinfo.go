package meter

import (
	"github.com/wmbusgo/wmbusdecode/internal/dvparser"
	"github.com/wmbusgo/wmbusdecode/internal/units"
)

// PrintProperty is a bitmask of rendering attributes; it never affects
// whether a field is extracted, only how (or whether) it is rendered.
type PrintProperty int

const (
	PrintField      PrintProperty = 1 << iota
	PrintJSON
	PrintStatus
	PrintImportant
	PrintDeprecated
	PrintOptional
	PrintHidden
)

// DefaultPrintProperties matches the source's DEFAULT_PRINT_PROPERTIES:
// visible in both the human-readable and JSON renderings.
const DefaultPrintProperties = PrintField | PrintJSON

// Has reports whether every bit in want is set in p.
func (p PrintProperty) Has(want PrintProperty) bool {
	return p&want == want
}

// VifScaling selects how a numeric field's raw value is scaled before unit
// conversion.
type VifScaling int

const (
	VifScalingAuto VifScaling = iota
	VifScalingAutoSigned
	VifScalingNone
)

// TranslateType selects how a string+lookup field turns its raw integer
// value into text.
type TranslateType int

const (
	TranslateBitToString TranslateType = iota
	TranslateIndexToString
)

// LookupTable translates a masked raw value into a token string, following
// one of the two strategies drivers use: index-to-string or bit-to-string.
type LookupTable struct {
	Name    string
	Type    TranslateType
	Mask    uint64
	Default string
	Entries map[uint64]string
}

// Translate renders raw (already extracted as an unsigned integer) through
// this lookup table.
func (lt LookupTable) Translate(raw uint64) string {
	masked := raw
	if lt.Mask != 0 {
		masked = raw & lt.Mask
	}
	switch lt.Type {
	case TranslateIndexToString:
		if s, ok := lt.Entries[masked]; ok {
			return s
		}
		return lt.Default
	case TranslateBitToString:
		if masked == 0 {
			return lt.Default
		}
		var tokens []string
		for bit := uint64(1); bit <= masked; bit <<= 1 {
			if masked&bit == 0 {
				continue
			}
			if s, ok := lt.Entries[bit]; ok {
				tokens = append(tokens, s)
			}
		}
		if len(tokens) == 0 {
			return lt.Default
		}
		out := tokens[0]
		for _, t := range tokens[1:] {
			out += " " + t
		}
		return out
	default:
		return lt.Default
	}
}

// Kind distinguishes a FieldInfo's extraction strategy.
type Kind int

const (
	KindNumeric Kind = iota
	KindStringLookup
	KindCalculator
)

// Calculator computes a derived numeric value from the meter's
// already-extracted numeric fields, supporting +,-,*,/ and sqrt. values is
// keyed by field name.
type Calculator func(values map[string]float64) (float64, error)

// FieldInfo is a static, per-driver record describing one output field:
// its name template, its quantity/unit/scaling policy, the matcher that
// selects its DVEntry, and (for string fields) a lookup table.
type FieldInfo struct {
	Name        string // may contain {storage_counter},{tariff_counter},{subunit_counter}
	Description string
	Print       PrintProperty
	Kind        Kind

	Quantity units.Quantity
	Unit     units.Unit // zero value means "use units.DefaultUnit(Quantity)"
	Scaling  VifScaling

	Matcher dvparser.FieldMatcher
	Lookup  []LookupTable

	Calculate     Calculator
	CalculateUnit units.Unit
}

// TargetUnit returns the unit this field renders in.
func (f FieldInfo) TargetUnit() units.Unit {
	if f.Unit != units.UnitUnknown {
		return f.Unit
	}
	return units.DefaultUnit(f.Quantity)
}
