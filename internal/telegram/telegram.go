// Package telegram assembles one inbound frame's full decode state: frame
// validation, header parsing, decryption, and the DIF/VIF walk. A Telegram
// is created per inbound frame and discarded after rendering.
package telegram

import (
	"fmt"

	"github.com/wmbusgo/wmbusdecode/internal/address"
	"github.com/wmbusgo/wmbusdecode/internal/dvparser"
	"github.com/wmbusgo/wmbusdecode/internal/frame"
	"github.com/wmbusgo/wmbusdecode/internal/header"
	"github.com/wmbusgo/wmbusdecode/internal/security"
)

// Format names the link-layer framing a telegram arrived in.
type Format int

const (
	FormatAuto Format = iota
	FormatWMBus
	FormatMBus
)

// Telegram owns the original bytes, the decrypted payload, the parsed
// addresses, the security context, and the DV entries walked out of the
// decrypted payload.
type Telegram struct {
	Raw       []byte
	Format    Format
	Header    *header.Parsed
	Plaintext []byte
	DV        *dvparser.WalkResult

	DecryptionFailed bool
	WalkErr          error // non-nil on a corrupt DIF; DV still holds entries decoded before the failure
}

// Addresses returns every address this telegram carries (data-link layer,
// plus a secondary TPL address when present).
func (t *Telegram) Addresses() []address.Address {
	if t.Header == nil {
		return nil
	}
	return t.Header.Addresses
}

// ContentBytes returns the number of plaintext bytes available for the DV
// walker to consume; UnderstoodBytes (from t.DV) is compared against it
// for the "partially understood" warning.
func (t *Telegram) ContentBytes() int {
	return len(t.Plaintext)
}

// UnderstoodBytes reports how many plaintext bytes the DV walker
// successfully consumed.
func (t *Telegram) UnderstoodBytes() int {
	if t.DV == nil {
		return 0
	}
	return t.DV.UnderstoodByte
}

// Parse runs a raw frame through frame validation, header parsing,
// decryption and the DV walk. format selects wM-Bus/M-Bus framing, or
// auto-detects (wM-Bus first, then M-Bus) when FormatAuto is given. key is
// the configured decryption key, or nil/empty for an unencrypted meter.
//
// Parse returns a non-nil *Telegram even on decryption or DV-walk failure
// so the caller can still render diagnostics (t.DecryptionFailed,
// t.WalkErr); it returns a nil Telegram only when the frame envelope or
// header itself could not be parsed at all.
func Parse(raw []byte, format Format, key []byte) (*Telegram, error) {
	fmtUsed, payload, err := checkFrame(raw, format)
	if err != nil {
		return nil, err
	}

	var hdr *header.Parsed
	if fmtUsed == FormatMBus {
		hdr, err = header.ParseMBusHeader(payload)
	} else {
		hdr, err = header.ParseWMBusHeader(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to parse telegram header: %w", err)
	}

	t := &Telegram{Raw: raw, Format: fmtUsed, Header: hdr}

	hdr.Security.Key = key
	plain, decErr := security.Decrypt(hdr.Security, hdr.Content)
	if decErr != nil {
		t.DecryptionFailed = true
		return t, nil
	}
	t.Plaintext = plain

	dv, walkErr := dvparser.Walk(plain)
	t.DV = dv
	if walkErr != nil {
		t.WalkErr = walkErr
	}
	return t, nil
}

func checkFrame(raw []byte, format Format) (Format, []byte, error) {
	switch format {
	case FormatWMBus:
		c := frame.CheckWMBusFrame(raw)
		if c.Status != frame.StatusFull {
			return FormatWMBus, nil, fmt.Errorf("telegram: invalid wM-Bus frame")
		}
		p, err := c.Payload(raw)
		return FormatWMBus, p, err

	case FormatMBus:
		c := frame.CheckMBusFrame(raw)
		if c.Status != frame.StatusFull {
			return FormatMBus, nil, fmt.Errorf("telegram: invalid M-Bus frame")
		}
		p, err := c.Payload(raw)
		return FormatMBus, p, err

	default:
		if c := frame.CheckWMBusFrame(raw); c.Status == frame.StatusFull {
			p, err := c.Payload(raw)
			return FormatWMBus, p, err
		}
		if c := frame.CheckMBusFrame(raw); c.Status == frame.StatusFull {
			p, err := c.Payload(raw)
			return FormatMBus, p, err
		}
		return FormatAuto, nil, fmt.Errorf("telegram: could not recognise frame as wM-Bus or M-Bus")
	}
}
