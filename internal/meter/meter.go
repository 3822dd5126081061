package meter

import (
	"fmt"
	"sync"
	"time"

	"github.com/wmbusgo/wmbusdecode/internal/telegram"
	"github.com/wmbusgo/wmbusdecode/internal/units"
)

// MeterInfo identifies and configures one meter: the id expression used to
// match incoming telegrams, its decryption key, a display name, and an
// optional explicit driver name ("auto" lets PickDriver decide).
type MeterInfo struct {
	ID         string
	Key        string
	Name       string
	DriverName string
}

// ValueKind distinguishes what a Value holds.
type ValueKind int

const (
	ValueNumeric ValueKind = iota
	ValueString
)

// Value is one extracted field's current reading.
type Value struct {
	Kind    ValueKind
	Numeric float64
	Unit    units.Unit
	Str     string
}

// Meter is a live instance of a DriverInfo bound to a MeterInfo. It holds
// the latest decoded values keyed by field name; repeated telegrams for the
// same meter update this map in place, in the order the fields were
// extracted.
type Meter struct {
	Info   MeterInfo
	Driver *DriverInfo

	mu         sync.Mutex
	values     map[string]Value
	lastSeen   time.Time
	driverImpl Driver
}

// NewMeter builds a Meter bound to di, invoking di.Constructor to obtain
// the concrete Driver implementation.
func NewMeter(mi MeterInfo, di *DriverInfo) (*Meter, error) {
	if di.Constructor == nil {
		return nil, NewDecodeError(ErrKindMeterCreateFailed, fmt.Errorf("driver %q has no constructor", di.Name))
	}
	drv, err := di.Constructor(mi, di)
	if err != nil {
		return nil, NewDecodeError(ErrKindMeterCreateFailed, err)
	}
	m := &Meter{Info: mi, Driver: di, values: map[string]Value{}}
	m.driverImpl = drv
	return m, nil
}

// HandleTelegram extracts fields out of t, which telegram.Parse has
// already decrypted and walked, updating m's value map in place. A DV-walk
// error alone does not fail the call: the entries decoded before it stay
// usable and the caller reports the partial understanding. When the
// driver fails on a telegram whose walk also failed, the returned error
// carries the byte-accounting diagnostic.
func (m *Meter) HandleTelegram(t *telegram.Telegram) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSeen = time.Now()

	if t.DecryptionFailed {
		return NewDecodeError(ErrKindDecryptionFailed, nil)
	}

	if err := m.driverImpl.ProcessTelegram(m, t); err != nil {
		de := NewDecodeError(ErrKindDecodingFailed, err)
		if t.WalkErr != nil {
			de.ErrorAnalyze = errorAnalyze(t)
		}
		return de
	}

	return nil
}

// errorAnalyze renders a byte-accounting diagnostic for a partially
// understood telegram: how many content bytes were consumed versus
// available, so a caller can judge how much of a partial decode to trust.
func errorAnalyze(t *telegram.Telegram) string {
	content := t.ContentBytes()
	understood := t.UnderstoodBytes()
	return fmt.Sprintf("understood %d of %d content bytes", understood, content)
}

// SetNumericValue stores a numeric reading for name as given, tagged with
// unit; no unit conversion is applied. Drivers that
// process content directly (rather than through the generic extractor)
// call this to populate a value, mirroring the source's setNumericValue.
func (m *Meter) SetNumericValue(name string, unit units.Unit, v float64) {
	m.values[name] = Value{Kind: ValueNumeric, Numeric: v, Unit: unit}
}

// SetStringValue stores a string reading for name.
func (m *Meter) SetStringValue(name string, v string) {
	m.values[name] = Value{Kind: ValueString, Str: v}
}

// Value returns the current reading for name, if any.
func (m *Meter) Value(name string) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	return v, ok
}

// Values returns a snapshot copy of every currently extracted field.
func (m *Meter) Values() map[string]Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Value, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// LastSeen reports when HandleTelegram was last called on this meter.
func (m *Meter) LastSeen() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeen
}
