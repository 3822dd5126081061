package drivers

import (
	"github.com/wmbusgo/wmbusdecode/internal/dvparser"
	"github.com/wmbusgo/wmbusdecode/internal/meter"
	"github.com/wmbusgo/wmbusdecode/internal/telegram"
	"github.com/wmbusgo/wmbusdecode/internal/units"
)

// manufacturerKAM is Kamstrup's packed manufacturer code.
const manufacturerKAM = 0x2C2D

func init() {
	di := &meter.DriverInfo{
		Name:          "multical21",
		DefaultFields: []string{"name", "id", "total_m3", "target_m3", "max_flow_m3h", "flow_temperature_c", "external_temperature_c", "status", "timestamp"},
	}
	di.AddDetection(manufacturerKAM, 0x06, 0x1b)
	di.AddDetection(manufacturerKAM, 0x16, 0x1b)

	di.AddField(meter.FieldInfo{
		Name:  "status",
		Kind:  meter.KindStringLookup,
		Print: meter.PrintField | meter.PrintJSON | meter.PrintImportant | meter.PrintStatus,
		Matcher: dvparser.NewFieldMatcher().WithDifVifKey("02ff20"),
		Lookup: []meter.LookupTable{{
			Name:    "ERROR_FLAGS",
			Type:    meter.TranslateBitToString,
			Mask:    0x000f,
			Default: "OK",
			Entries: map[uint64]string{0x01: "DRY", 0x02: "REVERSE", 0x04: "LEAK", 0x08: "BURST"},
		}},
	})

	di.AddField(meter.FieldInfo{
		Name:     "total_m3",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintImportant,
		Quantity: units.QuantityVolume,
		Scaling:  meter.VifScalingAuto,
		Matcher:  dvparser.NewFieldMatcher().WithMeasurementType(dvparser.MeasurementInstantaneous).WithVIFRange(dvparser.VIFRangeVolume),
	})

	di.AddField(meter.FieldInfo{
		Name:     "target_m3",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintImportant,
		Quantity: units.QuantityVolume,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithMeasurementType(dvparser.MeasurementInstantaneous).
			WithVIFRange(dvparser.VIFRangeVolume).
			WithStorageNr(1),
	})

	di.AddField(meter.FieldInfo{
		Name:     "flow_temperature_c",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintOptional,
		Quantity: units.QuantityTemperature,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithMeasurementType(dvparser.MeasurementMinimum).
			WithVIFRange(dvparser.VIFRangeFlowTemperature).
			WithStorageNr(dvparser.AnyStorageNr),
	})

	di.AddField(meter.FieldInfo{
		Name:     "external_temperature_c",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintOptional,
		Quantity: units.QuantityTemperature,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithVIFRange(dvparser.VIFRangeExternalTemperature).
			WithStorageNr(dvparser.AnyStorageNr),
	})

	di.AddField(meter.FieldInfo{
		Name:     "max_flow_m3h",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintOptional,
		Quantity: units.QuantityFlow,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithMeasurementType(dvparser.MeasurementMaximum).
			WithVIFRange(dvparser.VIFRangeVolumeFlow).
			WithStorageNr(dvparser.AnyStorageNr),
	})

	di.Constructor = func(mi meter.MeterInfo, di *meter.DriverInfo) (meter.Driver, error) {
		return matcherDriver{di: di}, nil
	}
	meter.Register(di)
}

// matcherDriver is the declarative counterpart to apatoreitnDriver: it
// simply runs the shared extraction engine against its DriverInfo's
// FieldInfo set. Several drivers in this package (multical21, sharky,
// minomess, eltakodsz15dm) share this implementation since none of them
// need manufacturer-local offset parsing.
type matcherDriver struct {
	di *meter.DriverInfo
}

func (d matcherDriver) ProcessTelegram(m *meter.Meter, t *telegram.Telegram) error {
	return meter.ExtractFields(m, d.di, t)
}
