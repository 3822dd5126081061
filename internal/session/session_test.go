package session

import (
	"encoding/json"
	"testing"

	_ "github.com/wmbusgo/wmbusdecode/internal/drivers"
)

func decodeJSON(t *testing.T, s *DecoderSession, req Request) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(s.Decode(req)), &out); err != nil {
		t.Fatalf("Decode() produced invalid JSON: %v", err)
	}
	return out
}

func TestDecodeApatoreitn(t *testing.T) {
	s := New()
	out := decodeJSON(t, s, Request{TelegramHex: "19440186313737370408A0A1000059001C270100322DE413B415"})

	if out["id"] != "37373731" {
		t.Errorf("id = %v, want 37373731", out["id"])
	}
	if out["current_hca"] != 1.0 {
		t.Errorf("current_hca = %v, want 1", out["current_hca"])
	}
	if out["previous_hca"] != 89.0 {
		t.Errorf("previous_hca = %v, want 89", out["previous_hca"])
	}
	if out["current_date"] != "2022-09-18T02:00:00Z" {
		t.Errorf("current_date = %v, want 2022-09-18T02:00:00Z", out["current_date"])
	}
	if out["temp_room_avg_c"] != 21.703125 {
		t.Errorf("temp_room_avg_c = %v, want 21.703125", out["temp_room_avg_c"])
	}
}

func TestDecodeMultical21(t *testing.T) {
	s := New()
	hex := "2A442D2C998734761B168D2091D37CAC21576C78" +
		"02FF207100041308190000441308190000615B7F616713"

	out := decodeJSON(t, s, Request{TelegramHex: hex})
	if out["id"] != "76348799" {
		t.Errorf("id = %v, want 76348799", out["id"])
	}
	if out["total_m3"] != 6.408 {
		t.Errorf("total_m3 = %v, want 6.408", out["total_m3"])
	}
	if out["status"] != "DRY" {
		t.Errorf("status = %v, want DRY", out["status"])
	}
}

func TestDecodeCacheIdempotence(t *testing.T) {
	s := New()
	hex := "19440186313737370408A0A1000059001C270100322DE413B415"
	req := Request{TelegramHex: hex}

	first := decodeJSON(t, s, req)
	second := decodeJSON(t, s, req)

	delete(first, "timestamp")
	delete(second, "timestamp")

	fj, _ := json.Marshal(first)
	sj, _ := json.Marshal(second)
	if string(fj) != string(sj) {
		t.Errorf("repeated decode of identical request diverged:\n%s\nvs\n%s", fj, sj)
	}
}

func TestDecodeInvalidHex(t *testing.T) {
	s := New()
	out := decodeJSON(t, s, Request{TelegramHex: "not-hex-at-all"})
	if out["error"] != "invalid hex string" {
		t.Errorf("error = %v, want %q", out["error"], "invalid hex string")
	}
	if out["telegram"] == nil {
		t.Errorf("error response should echo the original telegram hex")
	}
}

func TestDecodeOddLengthHexIsInvalid(t *testing.T) {
	s := New()
	out := decodeJSON(t, s, Request{TelegramHex: "abc"})
	if out["error"] != "invalid hex string" {
		t.Errorf("error = %v, want %q", out["error"], "invalid hex string")
	}
}

func TestSnapshotReflectsCachedMeters(t *testing.T) {
	s := New()
	if snap := s.Snapshot(); len(snap) != 0 {
		t.Fatalf("Snapshot() on empty session = %v, want empty", snap)
	}

	decodeJSON(t, s, Request{TelegramHex: "19440186313737370408A0A1000059001C270100322DE413B415"})

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot() after one decode = %d entries, want 1", len(snap))
	}
	if snap[0].ID != "37373731" {
		t.Errorf("Snapshot()[0].ID = %v, want 37373731", snap[0].ID)
	}
	if snap[0].Driver != "apatoreitn" {
		t.Errorf("Snapshot()[0].Driver = %v, want apatoreitn", snap[0].Driver)
	}
	if snap[0].LastSeen.IsZero() {
		t.Errorf("Snapshot()[0].LastSeen should be set")
	}
}

func TestDecodeUnparsableHeader(t *testing.T) {
	s := New()
	out := decodeJSON(t, s, Request{TelegramHex: "00"})
	if out["error"] != "failed to parse telegram header" {
		t.Errorf("error = %v, want %q", out["error"], "failed to parse telegram header")
	}
}
