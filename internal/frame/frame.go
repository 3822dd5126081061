// Package frame validates the outermost link-layer envelope of a wM-Bus or
// M-Bus byte sequence and locates the payload slice inside it, without
// interpreting anything past the envelope.
package frame

import "fmt"

// Status is the three-way result of a frame check: a frame may be
// completely present, only partially buffered so far, or simply invalid.
type Status int

const (
	StatusError Status = iota
	StatusPartial
	StatusFull
)

// Check is the result of CheckWMBusFrame/CheckMBusFrame: the overall
// status, and — only meaningful when Status is StatusFull — the total
// frame length and the offset/length of the payload slice inside it.
type Check struct {
	Status       Status
	Length       int // total frame length, including any envelope bytes
	PayloadOffset int
	PayloadLen   int
}

// CheckWMBusFrame validates a wM-Bus frame: the first byte is the total
// length excluding itself. It is an Error if that length is zero,
// Partial if the buffer doesn't yet hold
// length+1 bytes, Full otherwise. The payload is everything after the
// length byte.
func CheckWMBusFrame(b []byte) Check {
	if len(b) == 0 {
		return Check{Status: StatusPartial}
	}
	length := int(b[0])
	if length == 0 {
		return Check{Status: StatusError}
	}
	total := length + 1
	if len(b) < total {
		return Check{Status: StatusPartial}
	}
	return Check{
		Status:        StatusFull,
		Length:        total,
		PayloadOffset: 1,
		PayloadLen:    length,
	}
}

// mbusStartLong and mbusStop are the envelope marker bytes for an M-Bus
// long frame: 0x68 L L 0x68 ... CS 0x16.
const (
	mbusStartLong = 0x68
	mbusStartShort = 0x10
	mbusStop       = 0x16
	mbusSingle     = 0xE5
)

// CheckMBusFrame validates an M-Bus long or short frame (and the
// single-control-byte ack frame), returning the payload slice bounds with
// the header/checksum/stop byte excluded.
func CheckMBusFrame(b []byte) Check {
	if len(b) == 0 {
		return Check{Status: StatusPartial}
	}

	switch b[0] {
	case mbusSingle:
		return Check{Status: StatusFull, Length: 1, PayloadOffset: 0, PayloadLen: 0}

	case mbusStartShort:
		if len(b) < 5 {
			return Check{Status: StatusPartial}
		}
		if b[4] != mbusStop {
			return Check{Status: StatusError}
		}
		cs := b[1] + b[2]
		if cs != b[3] {
			return Check{Status: StatusError}
		}
		return Check{Status: StatusFull, Length: 5, PayloadOffset: 1, PayloadLen: 2}

	case mbusStartLong:
		if len(b) < 4 {
			return Check{Status: StatusPartial}
		}
		l1, l2 := b[1], b[2]
		if l1 != l2 {
			return Check{Status: StatusError}
		}
		if b[3] != mbusStartLong {
			return Check{Status: StatusError}
		}
		total := 6 + int(l1) // 0x68 L L 0x68 <L bytes> CS 0x16
		if len(b) < total {
			return Check{Status: StatusPartial}
		}
		csPos := 4 + int(l1)
		if b[csPos] != checksum(b[4:csPos]) {
			return Check{Status: StatusError}
		}
		if b[csPos+1] != mbusStop {
			return Check{Status: StatusError}
		}
		return Check{
			Status:        StatusFull,
			Length:        total,
			PayloadOffset: 4,
			PayloadLen:    int(l1),
		}

	default:
		return Check{Status: StatusError}
	}
}

// checksum is the arithmetic sum of b, modulo 256.
func checksum(b []byte) byte {
	var s byte
	for _, c := range b {
		s += c
	}
	return s
}

// Payload slices out the payload bytes a Check located, given the same
// buffer that was checked. Callers must only call this when Status ==
// StatusFull.
func (c Check) Payload(b []byte) ([]byte, error) {
	if c.Status != StatusFull {
		return nil, fmt.Errorf("frame: cannot slice payload of a non-full check (status=%d)", c.Status)
	}
	end := c.PayloadOffset + c.PayloadLen
	if end > len(b) {
		return nil, fmt.Errorf("frame: payload bounds [%d:%d] exceed buffer of length %d", c.PayloadOffset, end, len(b))
	}
	return b[c.PayloadOffset:end], nil
}
