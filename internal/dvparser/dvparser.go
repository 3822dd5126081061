// Package dvparser walks the DIF/VIF (Data Information Field / Value
// Information Field) variable-length record stream that makes up a
// decrypted M-Bus payload, producing a sequence of DVEntry records keyed by
// their canonical DIF/VIF hex string.
package dvparser

import (
	"encoding/hex"
	"fmt"

	"github.com/wmbusgo/wmbusdecode/internal/units"
)

// MeasurementType classifies how a value was sampled.
type MeasurementType int

const (
	MeasurementUnknown MeasurementType = iota
	MeasurementInstantaneous
	MeasurementMinimum
	MeasurementMaximum
	MeasurementAtError
)

// Any* sentinels mirror the source's -1-means-wildcard convention for
// storage/tariff/subunit/index matching.
const (
	AnyStorageNr = -1
	AnyTariffNr  = -1
	AnyIndexNr   = -1
)

// VIFRange names a semantic category of value information, each with a
// default quantity, default unit, and [from,to] VIF byte range.
type VIFRange int

const (
	VIFRangeNone VIFRange = iota
	VIFRangeAny
	VIFRangeVolume
	VIFRangeOperatingTime
	VIFRangeVolumeFlow
	VIFRangeFlowTemperature
	VIFRangeReturnTemperature
	VIFRangeTemperatureDifference
	VIFRangeExternalTemperature
	VIFRangeHeatCostAllocation
	VIFRangeDate
	VIFRangeDateTime
	VIFRangeEnergyMJ
	VIFRangeEnergyWh
	VIFRangePowerW
	VIFRangeActualityDuration
	VIFRangeFabricationNo
	VIFRangeEnhancedIdentification
	VIFRangeAnyVolumeVIF
	VIFRangeAnyEnergyVIF
	VIFRangeAnyPowerVIF
)

type vifRangeEntry struct {
	rng             VIFRange
	from, to        byte
	quantity        units.Quantity
	unit            units.Unit
	defaultExponent int // power-of-ten exponent implied when from==to and no per-nibble table applies
}

// vifRanges is the table of VIF ranges recognized by the DV walker, each
// with its quantity, default unit, and implied power-of-ten exponent.
var vifRanges = []vifRangeEntry{
	{VIFRangeEnergyWh, 0x00, 0x07, units.QuantityEnergy, units.UnitKWH, -6},
	{VIFRangeEnergyMJ, 0x0E, 0x0F, units.QuantityEnergy, units.UnitMJ, 0},
	{VIFRangeVolume, 0x10, 0x17, units.QuantityVolume, units.UnitM3, -6},
	{VIFRangeOperatingTime, 0x24, 0x27, units.QuantityTime, units.UnitSecond, 0},
	{VIFRangePowerW, 0x28, 0x2F, units.QuantityPower, units.UnitKW, -6},
	{VIFRangeVolumeFlow, 0x38, 0x3F, units.QuantityFlow, units.UnitM3H, -6},
	{VIFRangeFlowTemperature, 0x58, 0x5B, units.QuantityTemperature, units.UnitC, -3},
	{VIFRangeReturnTemperature, 0x5C, 0x5F, units.QuantityTemperature, units.UnitC, -3},
	{VIFRangeTemperatureDifference, 0x60, 0x63, units.QuantityTemperature, units.UnitC, -3},
	{VIFRangeExternalTemperature, 0x64, 0x67, units.QuantityTemperature, units.UnitC, -3},
	{VIFRangeActualityDuration, 0x74, 0x77, units.QuantityTime, units.UnitSecond, 0},
	{VIFRangeFabricationNo, 0x78, 0x78, units.QuantityText, units.UnitTXT, 0},
	{VIFRangeEnhancedIdentification, 0x79, 0x79, units.QuantityText, units.UnitTXT, 0},
	{VIFRangeDate, 0x6C, 0x6C, units.QuantityPointInTime, units.UnitDateTimeLT, 0},
	{VIFRangeDateTime, 0x6D, 0x6D, units.QuantityPointInTime, units.UnitDateTimeLT, 0},
	{VIFRangeHeatCostAllocation, 0x6E, 0x6E, units.QuantityHCA, units.UnitHCA, 0},
}

// ToVIFRange maps a raw VIF byte (primary table only, no FD/FB extension)
// to its VIFRange, or VIFRangeNone if it falls outside every table entry.
func ToVIFRange(vif byte) VIFRange {
	b := vif & 0x7F
	for _, e := range vifRanges {
		if b >= e.from && b <= e.to {
			return e.rng
		}
	}
	return VIFRangeNone
}

// DefaultUnit returns the unit a VIFRange renders in by default.
func DefaultUnit(r VIFRange) units.Unit {
	for _, e := range vifRanges {
		if e.rng == r {
			return e.unit
		}
	}
	return units.UnitNone
}

// DefaultQuantity returns the quantity a VIFRange belongs to.
func DefaultQuantity(r VIFRange) units.Quantity {
	for _, e := range vifRanges {
		if e.rng == r {
			return e.quantity
		}
	}
	return units.QuantityUnknown
}

// vifExponent returns the base-10 scale exponent for a raw VIF byte: the
// low bits of the byte select an offset from the range's defaultExponent
// for ranges that are themselves sub-tables (Energy, Volume, Power, Flow,
// Temperature all pack the exponent into the low nibble of the VIF).
func vifExponent(vif byte) int {
	b := vif & 0x7F
	for _, e := range vifRanges {
		if b < e.from || b > e.to {
			continue
		}
		width := e.to - e.from + 1
		if width <= 1 {
			return e.defaultExponent
		}
		nibble := int(b - e.from)
		switch e.rng {
		case VIFRangeOperatingTime, VIFRangeActualityDuration:
			return 0
		default:
			// Every other multi-entry range (Energy, Volume, Power, Flow,
			// the Temperature ranges) packs the exponent into the VIF's
			// low nibble as an offset from the range's low end.
			return e.defaultExponent + nibble
		}
	}
	return 0
}

// DVEntry is one decoded record from the payload: its classification, its
// raw DIF/VIF(E) bytes, the accumulated storage/tariff/subunit indices, and
// its raw value bytes plus the offset they started at (diagnostics only).
type DVEntry struct {
	Type      MeasurementType
	DIF       byte
	VIF       byte
	VIFEs     []byte
	StorageNr int
	TariffNr  int
	SubUnitNr int
	RawBytes  []byte
	Offset    int
}

// Key is the canonical hex string of the DIF and VIF(E) bytes only (not the
// value), used by FieldMatchers that match on an exact DIF/VIF key.
func (e DVEntry) Key() string {
	b := append([]byte{e.DIF, e.VIF}, e.VIFEs...)
	return hex.EncodeToString(b)
}

// VIFRange reports the semantic category of this entry's VIF byte.
func (e DVEntry) VIFRange() VIFRange {
	return ToVIFRange(e.VIF)
}

// WalkResult is the product of a successful or partial Walk: every decoded
// entry, indexed both in encounter order and by canonical key (duplicate
// keys keep every entry, in order, so FieldMatcher's index_nr can pick the
// Nth), plus how many bytes
// were understood before any error.
type WalkResult struct {
	Entries        []DVEntry
	ByKey          map[string][]DVEntry
	UnderstoodByte int // exclusive end offset of the last fully parsed entry
}

// ErrCorruptDIF is returned by Walk when a DIF byte encodes a reserved
// combination or its declared length overruns the buffer. Entries produced
// before the failing byte remain valid in the returned WalkResult.
type ErrCorruptDIF struct {
	Offset int
	Reason string
}

func (e *ErrCorruptDIF) Error() string {
	return fmt.Sprintf("dvparser: corrupt DIF at offset %d: %s", e.Offset, e.Reason)
}

// dataFieldLength maps the low nibble of a DIF byte to a fixed payload
// length in bytes, -1 when the length is variable and is read from the
// payload itself (0x0D), or -2 when the entry takes the rest of the
// telegram (0x0F = special function / manufacturer-specific). 0x0C is
// 8-digit BCD in 4 bytes.
var dataFieldLength = [16]int{
	0: 0, 1: 1, 2: 2, 3: 3, 4: 4,
	5: 4, // 32-bit real
	6: 6, 7: 8,
	8: 0, // selection for readout, no data
	9: 1, 0xA: 2, 0xB: 3, 0xC: 4,
	0xD: -1, // variable length, length byte follows
	0xE: 6,
	0xF: -2, // special function / manufacturer-specific, rest of telegram
}

// Walk decodes data starting at offset 0, returning every DVEntry it can
// produce. If a DIF is corrupt, Walk returns the entries decoded so far
// alongside an *ErrCorruptDIF describing where it stopped.
func Walk(data []byte) (*WalkResult, error) {
	res := &WalkResult{ByKey: map[string][]DVEntry{}}
	pos := 0

	for pos < len(data) {
		start := pos
		dif := data[pos]
		pos++

		if dif == 0x2F {
			// Skip/filler DIF, no VIF follows.
			res.UnderstoodByte = pos
			continue
		}

		measurementType := measurementTypeOf(dif)
		storageNr := int(dif>>6) & 0x1 // bit 6 is storage-nr bit 0
		extend := dif&0x80 != 0

		var tariffNr, subUnitNr int
		difeCount := 0
		for extend {
			if pos >= len(data) {
				return res, &ErrCorruptDIF{Offset: start, Reason: "truncated DIFE"}
			}
			if difeCount >= 10 {
				return res, &ErrCorruptDIF{Offset: start, Reason: "too many DIFE bytes"}
			}
			dife := data[pos]
			pos++
			difeCount++
			storageNr |= int(dife&0x0F) << (1 + 4*(difeCount-1))
			tariffNr |= int(dife>>4&0x3) << (2 * (difeCount - 1))
			subUnitNr |= int(dife>>6&0x1) << (difeCount - 1)
			extend = dife&0x80 != 0
		}

		length, ok := dataFieldLengthFor(dif)
		if !ok {
			return res, &ErrCorruptDIF{Offset: start, Reason: "reserved DIF data-field nibble"}
		}

		if pos >= len(data) {
			return res, &ErrCorruptDIF{Offset: start, Reason: "truncated VIF"}
		}
		vif := data[pos]
		pos++
		var vifes []byte
		extendVIF := vif&0x80 != 0
		vifeCount := 0
		for extendVIF {
			if pos >= len(data) {
				return res, &ErrCorruptDIF{Offset: start, Reason: "truncated VIFE"}
			}
			if vifeCount >= 11 {
				return res, &ErrCorruptDIF{Offset: start, Reason: "too many VIFE bytes"}
			}
			vife := data[pos]
			pos++
			vifeCount++
			vifes = append(vifes, vife)
			extendVIF = vife&0x80 != 0
		}

		if length == -1 {
			if pos >= len(data) {
				return res, &ErrCorruptDIF{Offset: start, Reason: "truncated variable-length byte"}
			}
			lvar := data[pos]
			pos++
			switch {
			case lvar <= 0xBF:
				length = int(lvar)
			default:
				return res, &ErrCorruptDIF{Offset: start, Reason: "unsupported LVAR encoding"}
			}
		} else if length == -2 {
			length = len(data) - pos
		}

		if pos+length > len(data) {
			return res, &ErrCorruptDIF{Offset: start, Reason: "value overruns buffer"}
		}

		entry := DVEntry{
			Type:      measurementType,
			DIF:       dif,
			VIF:       vif,
			VIFEs:     vifes,
			StorageNr: storageNr,
			TariffNr:  tariffNr,
			SubUnitNr: subUnitNr,
			RawBytes:  data[pos : pos+length],
			Offset:    start,
		}
		pos += length

		res.Entries = append(res.Entries, entry)
		res.ByKey[entry.Key()] = append(res.ByKey[entry.Key()], entry)
		res.UnderstoodByte = pos
	}

	return res, nil
}

func dataFieldLengthFor(dif byte) (int, bool) {
	n := dataFieldLength[dif&0x0F]
	if n == 0 && dif&0x0F != 0 && dif&0x0F != 8 {
		return 0, false
	}
	return n, true
}

func measurementTypeOf(dif byte) MeasurementType {
	switch (dif >> 4) & 0x3 {
	case 0:
		return MeasurementInstantaneous
	case 1:
		return MeasurementMaximum
	case 2:
		return MeasurementMinimum
	case 3:
		return MeasurementAtError
	}
	return MeasurementUnknown
}

// FieldMatcher is a declarative selector a driver uses to pick one DVEntry
// (or the Nth, for index_nr > 1) out of a WalkResult.
type FieldMatcher struct {
	matchDifVifKey bool
	difVifKey      string

	matchMeasurementType bool
	measurementType      MeasurementType

	matchVIFRange bool
	vifRange      VIFRange

	matchStorageNr bool
	storageNr      int

	matchTariffNr bool
	tariffNr      int

	matchSubUnitNr bool
	subUnitNr      int

	indexNr int // 1-based; defaults to 1
}

// NewFieldMatcher returns a zero matcher ready for fluent .With* calls.
func NewFieldMatcher() FieldMatcher {
	return FieldMatcher{indexNr: 1}
}

func (m FieldMatcher) WithDifVifKey(key string) FieldMatcher {
	m.matchDifVifKey = true
	m.difVifKey = key
	return m
}

func (m FieldMatcher) WithMeasurementType(t MeasurementType) FieldMatcher {
	m.matchMeasurementType = true
	m.measurementType = t
	return m
}

func (m FieldMatcher) WithVIFRange(r VIFRange) FieldMatcher {
	m.matchVIFRange = true
	m.vifRange = r
	return m
}

func (m FieldMatcher) WithStorageNr(n int) FieldMatcher {
	m.matchStorageNr = true
	m.storageNr = n
	return m
}

func (m FieldMatcher) WithTariffNr(n int) FieldMatcher {
	m.matchTariffNr = true
	m.tariffNr = n
	return m
}

func (m FieldMatcher) WithSubUnitNr(n int) FieldMatcher {
	m.matchSubUnitNr = true
	m.subUnitNr = n
	return m
}

func (m FieldMatcher) WithIndexNr(n int) FieldMatcher {
	m.indexNr = n
	return m
}

// Find returns the matcher's index_nr-th matching DVEntry in res, in
// walk-encounter order.
func (m FieldMatcher) Find(res *WalkResult) (DVEntry, bool) {
	if m.matchDifVifKey {
		entries := res.ByKey[m.difVifKey]
		idx := m.indexNr
		if idx < 1 {
			idx = 1
		}
		if idx > len(entries) {
			return DVEntry{}, false
		}
		return entries[idx-1], true
	}

	count := 0
	for _, e := range res.Entries {
		if !m.matches(e) {
			continue
		}
		count++
		if count == m.indexNr {
			return e, true
		}
	}
	return DVEntry{}, false
}

func (m FieldMatcher) matches(e DVEntry) bool {
	if m.matchMeasurementType && e.Type != m.measurementType {
		return false
	}
	if m.matchVIFRange && e.VIFRange() != m.vifRange {
		return false
	}
	if m.matchStorageNr && m.storageNr != AnyStorageNr && e.StorageNr != m.storageNr {
		return false
	}
	if m.matchTariffNr && m.tariffNr != AnyTariffNr && e.TariffNr != m.tariffNr {
		return false
	}
	if m.matchSubUnitNr && e.SubUnitNr != m.subUnitNr {
		return false
	}
	return true
}
