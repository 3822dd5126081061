package meter

import (
	"sync"

	"github.com/wmbusgo/wmbusdecode/internal/address"
	"github.com/wmbusgo/wmbusdecode/internal/telegram"
)

// Detection is one (manufacturer, media, version) tuple a driver matches
// against an incoming telegram's primary address.
type Detection struct {
	Manufacturer uint16
	Media        byte
	Version      byte
}

// Constructor builds a live Driver for a MeterInfo, once DriverInfo has
// been selected by PickDriver or an explicit override.
type Constructor func(mi MeterInfo, di *DriverInfo) (Driver, error)

// Driver is the behaviour a concrete meter plug-in supplies. A Meter owns a
// Driver value instead of embedding a common base, so new meter types
// compose in rather than inheriting from a shared parent.
type Driver interface {
	// ProcessTelegram extracts field values out of t into m. Drivers that
	// match via declarative FieldMatchers rely on the shared extraction
	// engine (extract.go) and only need to run it; drivers with
	// manufacturer-local fixed-offset payloads (apatoreitn) parse t's
	// content directly here instead.
	ProcessTelegram(m *Meter, t *telegram.Telegram) error
}

// DriverInfo is a registered meter plug-in: its detection tuples, its
// field set, and its constructor. Registered at start-up; read-only once
// the registry is frozen.
type DriverInfo struct {
	Name          string
	Detections    []Detection
	DefaultFields []string
	Fields        []FieldInfo
	Constructor   Constructor
}

// AddDetection appends one detection tuple and returns di for chaining.
func (di *DriverInfo) AddDetection(manufacturer uint16, media, version byte) *DriverInfo {
	di.Detections = append(di.Detections, Detection{Manufacturer: manufacturer, Media: media, Version: version})
	return di
}

// AddField appends one FieldInfo and returns di for chaining.
func (di *DriverInfo) AddField(f FieldInfo) *DriverInfo {
	di.Fields = append(di.Fields, f)
	return di
}

// Matches reports whether addr's (manufacturer, media, version) tuple is
// one of di's registered detections.
func (di *DriverInfo) Matches(addr address.Address) bool {
	for _, d := range di.Detections {
		if d.Manufacturer == addr.Manufacturer && d.Media == addr.Media && d.Version == addr.Version {
			return true
		}
	}
	return false
}

var (
	registryMu     sync.Mutex
	registryFrozen bool
	registry       []*DriverInfo
)

// Register adds di to the process-wide registry. It panics if called
// after Freeze, since the registry is append-only before start-up and
// read-only after: a driver registering late would make driver selection
// depend on import order at runtime.
func Register(di *DriverInfo) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if registryFrozen {
		panic("meter: cannot register driver " + di.Name + " after the registry has been frozen")
	}
	registry = append(registry, di)
}

// Freeze marks the registry read-only. Safe to call more than once; safe
// to call concurrently with PickDriver/All (which only read once frozen).
func Freeze() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registryFrozen = true
}

// All returns every registered DriverInfo in registration order.
func All() []*DriverInfo {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]*DriverInfo, len(registry))
	copy(out, registry)
	return out
}

// unknownDriver is returned by PickDriver when no detection tuple matches.
// It still lets a Meter render headers/status, but it has no fields.
var unknownDriver = &DriverInfo{
	Name: "unknown",
	Constructor: func(mi MeterInfo, di *DriverInfo) (Driver, error) {
		return unknownMeterDriver{}, nil
	},
}

type unknownMeterDriver struct{}

func (unknownMeterDriver) ProcessTelegram(m *Meter, t *telegram.Telegram) error { return nil }

// PickDriver returns the first registered DriverInfo whose detection
// tuples match addr, in registration order, or the built-in "unknown"
// driver if none match.
func PickDriver(addr address.Address) *DriverInfo {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, di := range registry {
		if di.Matches(addr) {
			return di
		}
	}
	return unknownDriver
}

// ByName returns the registered DriverInfo with the given name, or nil.
func ByName(name string) *DriverInfo {
	if name == "unknown" {
		return unknownDriver
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, di := range registry {
		if di.Name == name {
			return di
		}
	}
	return nil
}
