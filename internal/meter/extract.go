package meter

import (
	"fmt"
	"strings"

	"github.com/wmbusgo/wmbusdecode/internal/dvparser"
	"github.com/wmbusgo/wmbusdecode/internal/telegram"
	"github.com/wmbusgo/wmbusdecode/internal/units"
)

// ExtractFields runs di's declarative FieldInfo set against t's DV entries
// and stores results into m. Declarative drivers (multical21-style) call it
// directly from ProcessTelegram, while manufacturer-local drivers
// (apatoreitn-style) bypass it and call m.Set*Value themselves.
func ExtractFields(m *Meter, di *DriverInfo, t *telegram.Telegram) error {
	if t.DV == nil {
		return fmt.Errorf("meter: telegram has no DV entries to extract from")
	}

	var statusTokens []string
	var calculators []FieldInfo

	for _, f := range di.Fields {
		if f.Kind == KindCalculator {
			calculators = append(calculators, f)
			continue
		}

		entry, ok := f.Matcher.Find(t.DV)
		if !ok {
			continue
		}
		name := expandName(f.Name, entry)

		switch f.Kind {
		case KindNumeric:
			raw, err := extractNumeric(f, entry)
			if err != nil {
				return fmt.Errorf("meter: field %s: %w", name, err)
			}
			target := f.TargetUnit()
			converted, err := units.Convert(raw, dvparser.DefaultUnit(entry.VIFRange()), target)
			if err != nil {
				// VIF range carries no default unit (e.g. an exact
				// DIF/VIF-key match); store the raw scaled value as-is.
				converted = raw
			}
			m.SetNumericValue(name, target, converted)

		case KindStringLookup:
			raw, err := dvparser.ExtractUint(entry)
			if err != nil {
				return fmt.Errorf("meter: field %s: %w", name, err)
			}
			var rendered []string
			for _, lt := range f.Lookup {
				rendered = append(rendered, lt.Translate(raw))
			}
			str := strings.Join(rendered, " ")
			m.SetStringValue(name, str)
			if f.Print.Has(PrintStatus) && str != "" {
				statusTokens = append(statusTokens, str)
			}
		}
	}

	for _, f := range calculators {
		if f.Calculate == nil {
			continue
		}
		// m.mu is already held by the HandleTelegram call that invoked this
		// extraction, so read m.values directly rather than through the
		// locking Values() method.
		inputs := map[string]float64{}
		for name, v := range m.values {
			if v.Kind == ValueNumeric {
				inputs[name] = v.Numeric
			}
		}
		v, err := f.Calculate(inputs)
		if err != nil {
			continue
		}
		m.SetNumericValue(f.Name, f.CalculateUnit, v)
	}

	if len(statusTokens) == 0 {
		m.SetStringValue("status", "OK")
	} else {
		m.SetStringValue("status", strings.Join(dedupe(statusTokens), " "))
	}

	return nil
}

// extractNumeric decodes entry per f's scaling policy.
func extractNumeric(f FieldInfo, entry dvparser.DVEntry) (float64, error) {
	switch f.Scaling {
	case VifScalingNone:
		return dvparser.ExtractDouble(entry, false, false)
	case VifScalingAutoSigned:
		return dvparser.ExtractDouble(entry, true, true)
	default:
		return dvparser.ExtractDouble(entry, true, false)
	}
}

// expandName substitutes {storage_counter}, {tariff_counter},
// {subunit_counter} in a field name template with entry's matched indices.
func expandName(template string, entry dvparser.DVEntry) string {
	r := strings.NewReplacer(
		"{storage_counter}", fmt.Sprintf("%d", entry.StorageNr),
		"{tariff_counter}", fmt.Sprintf("%d", entry.TariffNr),
		"{subunit_counter}", fmt.Sprintf("%d", entry.SubUnitNr),
	)
	return r.Replace(template)
}

// dedupe removes repeated tokens while preserving first-seen order, so a
// status string never repeats the same flag twice.
func dedupe(tokens []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
