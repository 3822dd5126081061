package drivers

import (
	"github.com/wmbusgo/wmbusdecode/internal/dvparser"
	"github.com/wmbusgo/wmbusdecode/internal/meter"
	"github.com/wmbusgo/wmbusdecode/internal/units"
)

// manufacturerELT is Elster/Honeywell's packed manufacturer code.
const manufacturerELT = 0x1594

func init() {
	di := &meter.DriverInfo{
		Name:          "eltako_dsz15dm",
		DefaultFields: []string{"name", "id", "total_energy_consumption_tariff_1_kwh", "total_energy_consumption_tariff_2_kwh", "status", "timestamp"},
	}
	di.AddDetection(manufacturerELT, 0x02, 0x20) // electricity meter, representative detection tuple

	di.AddField(meter.FieldInfo{
		Name:     "total_energy_consumption_tariff_1_kwh",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintImportant,
		Quantity: units.QuantityEnergy,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithMeasurementType(dvparser.MeasurementInstantaneous).
			WithVIFRange(dvparser.VIFRangeEnergyWh).
			WithTariffNr(1),
	})

	di.AddField(meter.FieldInfo{
		Name:     "total_energy_consumption_tariff_2_kwh",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintOptional,
		Quantity: units.QuantityEnergy,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithMeasurementType(dvparser.MeasurementInstantaneous).
			WithVIFRange(dvparser.VIFRangeEnergyWh).
			WithTariffNr(2),
	})

	di.Constructor = func(mi meter.MeterInfo, di *meter.DriverInfo) (meter.Driver, error) {
		return matcherDriver{di: di}, nil
	}
	meter.Register(di)
}
