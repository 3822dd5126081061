package drivers

import (
	"github.com/wmbusgo/wmbusdecode/internal/dvparser"
	"github.com/wmbusgo/wmbusdecode/internal/meter"
	"github.com/wmbusgo/wmbusdecode/internal/units"
)

// manufacturerTCH is Techem's packed manufacturer code.
const manufacturerTCH = 0x5068

func init() {
	di := &meter.DriverInfo{
		Name:          "minomess",
		DefaultFields: []string{"name", "id", "total_m3", "target_m3", "status", "timestamp"},
	}
	di.AddDetection(manufacturerTCH, 0x07, 0x68) // cold water, AES-CBC-IV telegram
	di.AddDetection(manufacturerTCH, 0x06, 0x68) // hot water

	di.AddField(meter.FieldInfo{
		Name:     "total_m3",
		Kind:     meter.KindNumeric,
		Print:    meter.PrintField | meter.PrintJSON | meter.PrintImportant,
		Quantity: units.QuantityVolume,
		Scaling:  meter.VifScalingAuto,
		Matcher: dvparser.NewFieldMatcher().
			WithMeasurementType(dvparser.MeasurementInstantaneous).
			WithVIFRange(dvparser.VIFRangeVolume),
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

	di.Constructor = func(mi meter.MeterInfo, di *meter.DriverInfo) (meter.Driver, error) {
		return matcherDriver{di: di}, nil
	}
	meter.Register(di)
}
