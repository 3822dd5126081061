// Package drivers registers the meter plug-ins shipped with this decoder:
// each file's init() registers one DriverInfo into internal/meter's
// process-wide registry.
package drivers

import (
	"fmt"

	"github.com/wmbusgo/wmbusdecode/internal/meter"
	"github.com/wmbusgo/wmbusdecode/internal/telegram"
	"github.com/wmbusgo/wmbusdecode/internal/units"
)

func init() {
	di := &meter.DriverInfo{
		Name:          "apatoreitn",
		DefaultFields: []string{"name", "id", "current_hca", "previous_hca", "current_date", "season_start_date", "esb_date", "temp_room_avg_c", "temp_room_prev_avg_c", "timestamp"},
	}
	di.AddDetection(0x8614, 0x08, 0x04) // APT
	di.AddDetection(0x8601, 0x08, 0x04) // APA
	di.Constructor = func(mi meter.MeterInfo, di *meter.DriverInfo) (meter.Driver, error) {
		return apatoreitnDriver{}, nil
	}
	meter.Register(di)
}

// apatoreitnDriver re-parses a fixed 16-byte payload by absolute offset
// instead of matching DVEntries generically: this manufacturer's heat-cost
// allocator payload is not itself DIF/VIF-tagged content, so the shared
// extraction engine has nothing to match against. Offset parsing like this
// is left driver-local rather than folded into the shared engine.
type apatoreitnDriver struct{}

func (apatoreitnDriver) ProcessTelegram(m *meter.Meter, t *telegram.Telegram) error {
	content := append([]byte{}, t.Header.Content...)

	switch t.Header.TPLCI {
	case 0xB6:
		// First content byte is the length of a header to skip.
		if len(content) == 0 {
			return fmt.Errorf("apatoreitn: empty content under CI 0xB6")
		}
		headerLen := int(content[0]) + 1
		if headerLen > len(content) {
			return fmt.Errorf("apatoreitn: header length %d exceeds content", headerLen)
		}
		content = content[headerLen:]

	case 0xA0:
		// The CI byte itself is logically part of the content for this
		// manufacturer; put it back.
		content = append([]byte{t.Header.TPLCI}, content...)
	}

	if len(content) != 16 {
		return fmt.Errorf("apatoreitn: content size %d, want 16", len(content))
	}

	seasonStart := dateToString(content[1], content[0])
	m.SetStringValue("season_start_date", seasonStart)

	previousHCA := 256.0*float64(content[5]) + float64(content[4])
	m.SetNumericValue("previous_hca", units.UnitHCA, previousHCA)

	esbDate := dateToString(content[6], content[7])
	m.SetStringValue("esb_date", esbDate)

	currentHCA := 256.0*float64(content[9]) + float64(content[8])
	m.SetNumericValue("current_hca", units.UnitHCA, currentHCA)

	currentDate := dateToString(content[10], content[11])
	m.SetStringValue("current_date", currentDate)

	prevAvg := float64(content[13]) + float64(content[12])/256.0
	m.SetNumericValue("temp_room_prev_avg_c", units.UnitC, prevAvg)

	avg := float64(content[15]) + float64(content[14])/256.0
	m.SetNumericValue("temp_room_avg_c", units.UnitC, avg)

	return nil
}

// dateToString packs a Type-G-like 2-byte Y/M/D into an RFC3339 string, the
// same bit layout and hour-offset quirk (02:00:00Z) the source uses.
func dateToString(lo, hi byte) string {
	packed := uint(hi)<<8 | uint(lo)
	if packed == 0 {
		return ""
	}
	day := packed & 0x1F
	month := (packed >> 5) & 0x0F
	year := ((packed >> 9) & 0x1F) + 2000
	return fmt.Sprintf("%d-%02d-%02dT02:00:00Z", year, month, day)
}
