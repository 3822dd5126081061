package meterconfig

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}
	if !contains(configDir, "wmbusdecode") {
		t.Errorf("GetConfigDir() = %v, should contain 'wmbusdecode'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !contains(configDir, "AppData") && !contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Meters == nil {
		t.Error("NewRegistry().Meters should not be nil")
	}
	if reg.Preferences == nil {
		t.Error("NewRegistry().Preferences should not be nil")
	}
	if reg.Preferences.AutoDiscover != true {
		t.Error("NewRegistry().Preferences.AutoDiscover should be true by default")
	}
	if reg.Preferences.DiscoverTimeout != 10 {
		t.Errorf("NewRegistry().Preferences.DiscoverTimeout = %v, want 10", reg.Preferences.DiscoverTimeout)
	}
}

func TestRegistryEnsureMeter(t *testing.T) {
	reg := NewRegistry()

	m1 := reg.EnsureMeter("37373731")
	if m1 == nil {
		t.Fatal("EnsureMeter() returned nil")
	}
	m2 := reg.EnsureMeter("37373731")
	if m1 != m2 {
		t.Error("EnsureMeter() should return same instance for same id")
	}
	m3 := reg.EnsureMeter("76348799")
	if m1 == m3 {
		t.Error("EnsureMeter() should create new instance for different id")
	}
}

func TestRegistryUpdateMeterLastSeen(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.UpdateMeterLastSeen("37373731", "rtlwmbus[0]")
	after := time.Now()

	m := reg.GetMeter("37373731")
	if m == nil {
		t.Fatal("Meter should exist after UpdateMeterLastSeen()")
	}
	if m.LastSource != "rtlwmbus[0]" {
		t.Errorf("LastSource = %v, want rtlwmbus[0]", m.LastSource)
	}
	if m.LastSeen.Before(before) || m.LastSeen.After(after) {
		t.Errorf("LastSeen = %v, should be between %v and %v", m.LastSeen, before, after)
	}
}

func TestRegistrySetMeterKeyAndDriver(t *testing.T) {
	reg := NewRegistry()

	reg.SetMeterKey("15503451", "000102030405060708090A0B0C0D0E0F")
	reg.SetMeterDriver("15503451", "minomess")
	reg.SetMeterNickname("15503451", "Kitchen water")

	m := reg.GetMeter("15503451")
	if m == nil {
		t.Fatal("Meter should exist")
	}
	if m.KeyHex != "000102030405060708090A0B0C0D0E0F" {
		t.Errorf("KeyHex = %v, want the configured key", m.KeyHex)
	}
	if m.DriverName != "minomess" {
		t.Errorf("DriverName = %v, want minomess", m.DriverName)
	}
	if m.Nickname != "Kitchen water" {
		t.Errorf("Nickname = %v, want 'Kitchen water'", m.Nickname)
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "wmbusdecode-config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	reg := NewRegistry()
	reg.SetMeterNickname("37373731", "Hallway HCA")
	reg.SetMeterKey("15503451", "AABBCCDD00112233445566778899AABB")

	data, err := yamlMarshal(reg)
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	testConfigPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(testConfigPath, data, 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	loaded, err := loadRegistryFromFile(testConfigPath)
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}
	m := loaded.GetMeter("37373731")
	if m == nil || m.Nickname != "Hallway HCA" {
		t.Errorf("loaded nickname = %v, want 'Hallway HCA'", m)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > 0 && (s[:len(substr)] == substr || contains(s[1:], substr))))
}

func yamlMarshal(r *Registry) ([]byte, error) {
	return yaml.Marshal(r)
}

func loadRegistryFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	if reg.Meters == nil {
		reg.Meters = make(map[string]*MeterEntry)
	}
	return &reg, nil
}
