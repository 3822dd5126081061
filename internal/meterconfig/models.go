package meterconfig

import "time"

// Registry is the entire user configuration file: known meters plus
// application-wide preferences.
type Registry struct {
	Version     int                    `yaml:"version"`
	Meters      map[string]*MeterEntry `yaml:"meters,omitempty"` // keyed by meter id (8 BCD digits)
	Preferences *Preferences           `yaml:"preferences,omitempty"`
}

// MeterEntry is user-configured metadata for one meter id.
type MeterEntry struct {
	Nickname   string    `yaml:"nickname,omitempty"`    // user-friendly name
	KeyHex     string    `yaml:"key_hex,omitempty"`      // AES key, or empty for unencrypted
	DriverName string    `yaml:"driver,omitempty"`       // explicit driver override, or "auto"
	LastSeen   time.Time `yaml:"last_seen,omitempty"`
	LastSource string    `yaml:"last_source,omitempty"` // e.g. "rtlwmbus[0]"
}

// Preferences holds application-wide user preferences.
type Preferences struct {
	AutoDiscover    bool `yaml:"auto_discover"`
	DiscoverTimeout int  `yaml:"discover_timeout"` // mDNS discovery timeout, seconds
}

// NewRegistry returns a Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Meters:  make(map[string]*MeterEntry),
		Preferences: &Preferences{
			AutoDiscover:    true,
			DiscoverTimeout: 10,
		},
	}
}

// GetMeter retrieves a meter entry by id, or nil if unknown.
func (r *Registry) GetMeter(id string) *MeterEntry {
	return r.Meters[id]
}

// EnsureMeter returns the entry for id, creating a default one if absent.
func (r *Registry) EnsureMeter(id string) *MeterEntry {
	if r.Meters == nil {
		r.Meters = make(map[string]*MeterEntry)
	}
	if m, ok := r.Meters[id]; ok {
		return m
	}
	m := &MeterEntry{DriverName: "auto"}
	r.Meters[id] = m
	return m
}

// UpdateMeterLastSeen records the last time id was decoded and from
// which frame source.
func (r *Registry) UpdateMeterLastSeen(id, source string) {
	m := r.EnsureMeter(id)
	m.LastSeen = time.Now()
	m.LastSource = source
}

// SetMeterKey sets or clears id's decryption key.
func (r *Registry) SetMeterKey(id, keyHex string) {
	m := r.EnsureMeter(id)
	m.KeyHex = keyHex
}

// SetMeterNickname sets a user-friendly name for id.
func (r *Registry) SetMeterNickname(id, nickname string) {
	m := r.EnsureMeter(id)
	m.Nickname = nickname
}

// SetMeterDriver overrides id's driver selection; "auto" restores
// automatic detection.
func (r *Registry) SetMeterDriver(id, driverName string) {
	m := r.EnsureMeter(id)
	m.DriverName = driverName
}
