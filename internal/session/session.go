// Package session implements the small decode-request scheduler: parsing a
// hex telegram, dispatching it through the header/decrypt/DV-walk pipeline,
// caching the resulting Meter per meter id, and rendering a JSON response,
// one request per call.
package session

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wmbusgo/wmbusdecode/internal/meter"
	"github.com/wmbusgo/wmbusdecode/internal/mlog"
	"github.com/wmbusgo/wmbusdecode/internal/telegram"
)

// Request is one decode request, matching the wire shape of §6's
// {"_":"decode", ...} line object.
type Request struct {
	TelegramHex string
	KeyHex      string
	Driver      string // meter driver name, or "auto"/"" to detect
	Format      string // "wmbus", "mbus", or "" to auto-detect
}

// CachedMeter is one session's live meter plus the key it was built with,
// so a later request with a different key can be detected and evicted.
type CachedMeter struct {
	Meter    *meter.Meter
	LastKey  string
	LastSeen time.Time
}

// MeterSummary is a read-only snapshot of one cached meter, for display in
// the dashboard TUI or a status endpoint.
type MeterSummary struct {
	ID       string
	Driver   string
	Name     string
	LastSeen time.Time
}

// Snapshot returns a summary of every meter currently held in the session
// cache, ordered by meter id.
func (s *DecoderSession) Snapshot() []MeterSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]MeterSummary, 0, len(s.cache))
	for id, cm := range s.cache {
		out = append(out, MeterSummary{
			ID:       id,
			Driver:   cm.Meter.Info.DriverName,
			Name:     cm.Meter.Info.Name,
			LastSeen: cm.LastSeen,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DecoderSession owns the meter cache for one decode pipeline. The cache is
// exclusive to this session and must not be shared across goroutines
// without the session's own lock.
type DecoderSession struct {
	mu    sync.Mutex
	cache map[string]*CachedMeter
}

// New returns an empty DecoderSession.
func New() *DecoderSession {
	return &DecoderSession{cache: map[string]*CachedMeter{}}
}

var hexPattern = regexp.MustCompile(`^[0-9A-Fa-f]*$`)

// Decode runs req through the full pipeline and returns a single-line JSON
// response string, never an error: every failure mode is rendered into the
// response's "error" field per §7's taxonomy.
func (s *DecoderSession) Decode(req Request) string {
	resp, _ := s.decode(req)
	out, err := json.Marshal(resp)
	if err != nil {
		// json.Marshal over this response shape cannot fail; keep a
		// fallback so Decode still never panics.
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(out)
}

func (s *DecoderSession) decode(req Request) (map[string]any, *meter.DecodeError) {
	rawHex := strings.TrimSpace(req.TelegramHex)

	if len(rawHex)%2 != 0 || !hexPattern.MatchString(rawHex) {
		de := meter.NewDecodeError(meter.ErrKindInvalidHex, fmt.Errorf("telegram hex %q is not valid hex", rawHex))
		return errorResponse(de, rawHex), de
	}

	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		de := meter.NewDecodeError(meter.ErrKindHexDecodeFailed, err)
		return errorResponse(de, rawHex), de
	}

	key, de := decodeKey(req.KeyHex)
	if de != nil {
		return errorResponse(de, rawHex), de
	}

	format := parseFormat(req.Format)

	t, err := telegram.Parse(raw, format, key)
	if err != nil {
		de := meter.NewDecodeError(meter.ErrKindHeaderParseFailed, err)
		return errorResponse(de, rawHex), de
	}

	addrs := t.Addresses()
	if len(addrs) == 0 {
		de := meter.NewDecodeError(meter.ErrKindHeaderParseFailed, fmt.Errorf("telegram carries no address"))
		return errorResponse(de, rawHex), de
	}
	primary := addrs[0]
	id := primary.ID

	s.mu.Lock()
	cached, ok := s.cache[id]
	s.mu.Unlock()

	var m *meter.Meter
	if ok && cached.LastKey == req.KeyHex {
		m = cached.Meter
		s.mu.Lock()
		cached.LastSeen = time.Now()
		s.mu.Unlock()
	} else {
		var di *meter.DriverInfo
		driverName := req.Driver
		if driverName == "" || driverName == "auto" {
			di = meter.PickDriver(primary)
		} else {
			di = meter.ByName(driverName)
			if di == nil {
				de := meter.NewDecodeError(meter.ErrKindMeterCreateFailed, fmt.Errorf("unknown driver %q", driverName))
				return errorResponse(de, rawHex), de
			}
		}

		mlog.LogDriverMatch(id, di.Name)

		mi := meter.MeterInfo{ID: id, Key: req.KeyHex, DriverName: di.Name}
		var nmErr error
		m, nmErr = meter.NewMeter(mi, di)
		if nmErr != nil {
			de, ok := nmErr.(*meter.DecodeError)
			if !ok {
				de = meter.NewDecodeError(meter.ErrKindMeterCreateFailed, nmErr)
			}
			return errorResponse(de, rawHex), de
		}

		s.mu.Lock()
		s.cache[id] = &CachedMeter{Meter: m, LastKey: req.KeyHex, LastSeen: time.Now()}
		s.mu.Unlock()
	}

	if hErr := m.HandleTelegram(t); hErr != nil {
		de, ok := hErr.(*meter.DecodeError)
		if !ok {
			de = meter.NewDecodeError(meter.ErrKindDecodingFailed, hErr)
		}
		if de.Kind == meter.ErrKindDecryptionFailed {
			mlog.LogDecryptionFailure(id, int(t.Header.Security.Mode))
		}
		mlog.LogDecodeResult(id, de, "")
		resp := errorResponse(de, rawHex)
		if de.ErrorAnalyze != "" {
			resp["error_analyze"] = de.ErrorAnalyze
		}
		return resp, de
	}

	resp := map[string]any{
		"media":     fmt.Sprintf("%02x", primary.Media),
		"meter":     m.Info.DriverName,
		"name":      m.Info.Name,
		"id":        id,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for name, v := range m.Values() {
		switch v.Kind {
		case meter.ValueNumeric:
			resp[name] = v.Numeric
		case meter.ValueString:
			resp[name] = v.Str
		}
	}

	warning := ""
	if t.UnderstoodBytes() < t.ContentBytes() {
		warning = fmt.Sprintf("understood %d of %d content bytes", t.UnderstoodBytes(), t.ContentBytes())
		resp["warning"] = warning
		resp["telegram"] = strings.ToUpper(rawHex)
	}
	mlog.LogDecodeResult(id, nil, warning)

	return resp, nil
}

// decodeKey parses a request key, treating "" and the literal "NOKEY" (per
// §6) as no key at all.
func decodeKey(keyHex string) ([]byte, *meter.DecodeError) {
	if keyHex == "" || strings.EqualFold(keyHex, "NOKEY") {
		return nil, nil
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, meter.NewDecodeError(meter.ErrKindInvalidHex, fmt.Errorf("key hex %q is not valid hex", keyHex))
	}
	return key, nil
}

func parseFormat(f string) telegram.Format {
	switch strings.ToLower(f) {
	case "wmbus":
		return telegram.FormatWMBus
	case "mbus":
		return telegram.FormatMBus
	default:
		return telegram.FormatAuto
	}
}

// errorResponse builds the failure-case JSON object §6 and §7 describe:
// the classified error string plus the original hex echoed back.
func errorResponse(de *meter.DecodeError, rawHex string) map[string]any {
	return map[string]any{
		"error":    de.Kind.String(),
		"telegram": strings.ToUpper(rawHex),
	}
}
