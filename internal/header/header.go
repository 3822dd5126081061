// Package header decodes the data-link-layer header, the optional
// Extended Link Layer (ELL), and the optional Transport Layer (TPL) header
// that precede a telegram's payload, producing the addresses and security
// configuration downstream decryption and field extraction need.
package header

import (
	"fmt"

	"github.com/wmbusgo/wmbusdecode/internal/address"
	"github.com/wmbusgo/wmbusdecode/internal/security"
)

// CI field values this parser recognises explicitly. Values outside this
// set but inside the EN13757 manufacturer-specific range (0xA0-0xB7) are
// accepted as opaque manufacturer frames: the header parser hands the
// driver the raw bytes following CI and lets it reinterpret them (see
// DESIGN.md's note on processContent-style drivers).
const (
	ciNoTPL    = 0x78
	ciShortTPL = 0x7A
	ciLongTPL  = 0x72

	// ELL variants. 0x8D carries CC+ACC only; 0x8F additionally carries a
	// 4-byte session number, a 2-byte payload CRC and a listening-window
	// byte before the embedded TPL fields. 0x8E is not recognised.
	ciELLShort    = 0x8D
	ciELLWithSess = 0x8F
)

// ErrTruncated is returned when the header parser runs out of bytes before
// it finishes decoding a field it expected to find.
var ErrTruncated = fmt.Errorf("header: truncated header")

// Parsed is everything the header layer contributes to a Telegram: the
// addresses seen (data-link layer always, TPL secondary address when
// present), the security configuration for the decryptor, the raw CI byte
// (drivers that reinterpret manufacturer-specific payloads need it), the
// diagnostic-only "listening window" byte some ELL variants carry, and the
// byte slice following the header (still encrypted when Security.Mode !=
// ModeNone).
type Parsed struct {
	Addresses []address.Address
	Security  security.Context
	TPLCI     byte
	WindowByte byte
	Content   []byte
}

// ParseWMBusHeader decodes payload (the bytes after the wM-Bus length
// byte) into a Parsed header.
func ParseWMBusHeader(payload []byte) (*Parsed, error) {
	if len(payload) < 10 {
		return nil, ErrTruncated
	}

	pos := 0
	_ = payload[pos] // C-field: control, not needed beyond framing
	pos++

	manufacturer := uint16(payload[pos]) | uint16(payload[pos+1])<<8
	pos += 2

	idBytes := payload[pos : pos+4]
	id, err := address.DecodeBCD(idBytes)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	pos += 4

	version := payload[pos]
	pos++
	media := payload[pos]
	pos++

	primary := address.Address{Manufacturer: manufacturer, ID: id, Version: version, Media: media}

	if pos >= len(payload) {
		return nil, ErrTruncated
	}
	ci := payload[pos]
	pos++

	parsed := &Parsed{Addresses: []address.Address{primary}, TPLCI: ci}
	parsed.Security.Manufacturer = manufacturer
	parsed.Security.AddressBCD = append(append([]byte{}, idBytes...), version, media)

	switch {
	case ci == ciELLShort || ci == ciELLWithSess:
		if err := parseELL(payload, &pos, ci, parsed); err != nil {
			return nil, err
		}
		// Embedded TPL fields follow the ELL header directly for the
		// variants this parser supports.
		if err := parseShortTPLFields(payload, &pos, parsed); err != nil {
			return nil, err
		}

	case ci == ciLongTPL:
		if err := parseLongTPL(payload, &pos, parsed); err != nil {
			return nil, err
		}

	case ci == ciNoTPL:
		parsed.Security.Mode = security.ModeNone

	case ci == ciShortTPL:
		if err := parseShortTPLFields(payload, &pos, parsed); err != nil {
			return nil, err
		}

	case ci >= 0xA0 && ci <= 0xB7:
		// Manufacturer-specific CI: no standard TPL, security assumed
		// none, raw content handed to the driver as-is.
		parsed.Security.Mode = security.ModeNone

	default:
		return nil, fmt.Errorf("header: unsupported CI byte 0x%02x", ci)
	}

	parsed.Content = payload[pos:]
	return parsed, nil
}

// ParseMBusHeader decodes payload (the bytes between the M-Bus envelope's
// second 0x68 and its checksum). Wired M-Bus variable-data telegrams carry
// the identical fixed data header (manufacturer/id/version/media/CI) that
// wM-Bus does, so this is a thin alias rather than a separate decoder.
func ParseMBusHeader(payload []byte) (*Parsed, error) {
	return ParseWMBusHeader(payload)
}

// parseShortTPLFields decodes access-nr(1), status(1), config-word(2 LE)
// and advances *pos past them.
func parseShortTPLFields(payload []byte, pos *int, parsed *Parsed) error {
	if *pos+4 > len(payload) {
		return ErrTruncated
	}
	accessNr := payload[*pos]
	status := payload[*pos+1]
	cw := uint16(payload[*pos+2]) | uint16(payload[*pos+3])<<8
	*pos += 4

	_ = status
	applyConfigWord(cw, accessNr, parsed)
	return nil
}

// parseLongTPL decodes an 8-byte secondary address followed by the same
// short-TPL fields.
func parseLongTPL(payload []byte, pos *int, parsed *Parsed) error {
	if *pos+8 > len(payload) {
		return ErrTruncated
	}
	idBytes := payload[*pos : *pos+4]
	id, err := address.DecodeBCD(idBytes)
	if err != nil {
		return fmt.Errorf("header: %w", err)
	}
	manufacturer := uint16(payload[*pos+4]) | uint16(payload[*pos+5])<<8
	version := payload[*pos+6]
	media := payload[*pos+7]
	*pos += 8

	secondary := address.Address{Manufacturer: manufacturer, ID: id, Version: version, Media: media}
	parsed.Addresses = append(parsed.Addresses, secondary)

	return parseShortTPLFields(payload, pos, parsed)
}

// parseELL decodes the Extended Link Layer fields this parser supports:
// CC (masked into the CTR IV), ACC, and — for the "with session" variant —
// a 4-byte sender number, 2-byte payload CRC, and a diagnostic window byte.
func parseELL(payload []byte, pos *int, ci byte, parsed *Parsed) error {
	if *pos+2 > len(payload) {
		return ErrTruncated
	}
	cc := payload[*pos]
	acc := payload[*pos+1]
	*pos += 2
	parsed.Security.CCField = cc
	parsed.Security.AccessNr = acc

	if ci == ciELLWithSess {
		if *pos+7 > len(payload) {
			return ErrTruncated
		}
		sn := uint32(payload[*pos]) | uint32(payload[*pos+1])<<8 | uint32(payload[*pos+2])<<16 | uint32(payload[*pos+3])<<24
		// payload CRC (2 bytes) is verified by the link-layer collaborator
		// upstream of this core; skipped here.
		windowByte := payload[*pos+6]
		*pos += 7
		parsed.Security.SenderNr = sn
		parsed.Security.FrameNr = uint16(sn & 0xFFFF)
		parsed.WindowByte = windowByte
	}
	return nil
}

// applyConfigWord extracts the security mode and encrypted-block count
// from a TPL configuration word. The supported modes are {0,5,7,13}; this
// parser stores the mode in the word's low 5 bits and the encrypted-block
// count in its high byte, the subset of the full EN13757-4 configuration-word
// encoding the decode core needs.
func applyConfigWord(cw uint16, accessNr byte, parsed *Parsed) {
	mode := security.Mode(cw & 0x1F)
	numBlocks := byte(cw >> 8)
	parsed.Security.Mode = mode
	parsed.Security.AccessNr = accessNr
	parsed.Security.NumEncryptedBlocks = numBlocks
}
