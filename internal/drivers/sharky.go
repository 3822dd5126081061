package drivers

import (
	"github.com/wmbusgo/wmbusdecode/internal/dvparser"
	"github.com/wmbusgo/wmbusdecode/internal/meter"
	"github.com/wmbusgo/wmbusdecode/internal/units"
)

// manufacturerHYD is Hydrometer/Diehl's packed manufacturer code.
const manufacturerHYD = 0x2324

func init() {
	di := &meter.DriverInfo{
		Name:          "sharky",
		DefaultFields: []string{"name", "id", "total_energy_consumption_kwh", "total_volume_m3", "flow_temperature_c", "return_temperature_c", "status", "timestamp"},
	}
	di.AddDetection(manufacturerHYD, 0x04, 0x0c) // heat meter, representative detection tuple
	di.AddDetection(manufacturerHYD, 0x04, 0x3c)

	di.AddField(meter.FieldInfo{
		Name:     "total_energy_consumption_kwh",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintImportant,
		Quantity: units.QuantityEnergy,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithMeasurementType(dvparser.MeasurementInstantaneous).
			WithVIFRange(dvparser.VIFRangeEnergyWh),
	})

	di.AddField(meter.FieldInfo{
		Name:     "total_volume_m3",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintOptional,
		Quantity: units.QuantityVolume,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithMeasurementType(dvparser.MeasurementInstantaneous).
			WithVIFRange(dvparser.VIFRangeVolume),
	})

	di.AddField(meter.FieldInfo{
		Name:     "flow_temperature_c",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintOptional,
		Quantity: units.QuantityTemperature,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithVIFRange(dvparser.VIFRangeFlowTemperature),
	})

	di.AddField(meter.FieldInfo{
		Name:     "return_temperature_c",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintOptional,
		Quantity: units.QuantityTemperature,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithVIFRange(dvparser.VIFRangeReturnTemperature),
	})

	di.Constructor = func(mi meter.MeterInfo, di *meter.DriverInfo) (meter.Driver, error) {
		return matcherDriver{di: di}, nil
	}
	meter.Register(di)
}
