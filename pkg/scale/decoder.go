// Package scale decodes SCALE-encoded extrinsic and event arguments
// against the descriptors pkg/metadata parses out of runtime metadata.
package scale

import (
	"bytes"
	"fmt"
	"io"
)

// Decoder reads SCALE primitives off a byte cursor. It wraps
// *bytes.Reader the way the node client wraps a raw byte slice, so
// callers can share one cursor across a sequence of argument decodes.
type Decoder struct {
	r *bytes.Reader
}

// NewDecoder returns a Decoder positioned at the start of buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(buf)}
}

// Len reports the number of unread bytes.
func (d *Decoder) Len() int { return d.r.Len() }

func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("scale: reading byte: %w", io.ErrUnexpectedEOF)
	}
	return b, nil
}

func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("scale: reading %d bytes: %w", n, io.ErrUnexpectedEOF)
	}
	return buf, nil
}

// DecodeCompact reads a SCALE compact (general) integer.
func (d *Decoder) DecodeCompact() (uint64, error) {
	first, err := d.ReadByte()
	if err != nil {
		return 0, err
	}
	switch first & 0b11 {
	case 0b00:
		return uint64(first >> 2), nil
	case 0b01:
		second, err := d.ReadByte()
		if err != nil {
			return 0, err
		}
		return (uint64(second)<<8 | uint64(first)) >> 2, nil
	case 0b10:
		rest, err := d.ReadBytes(3)
		if err != nil {
			return 0, err
		}
		v := uint32(first) | uint32(rest[0])<<8 | uint32(rest[1])<<16 | uint32(rest[2])<<24
		return uint64(v) >> 2, nil
	default:
		n := int(first>>2) + 4
		if n > 8 {
			return 0, fmt.Errorf("scale: compact integer wider than 8 bytes")
		}
		rest, err := d.ReadBytes(n)
		if err != nil {
			return 0, err
		}
		var v uint64
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(rest[i])
		}
		return v, nil
	}
}

// DecodeUint decodes a fixed-width little-endian unsigned integer of the
// given byte width (1, 2, 4 or 8).
func (d *Decoder) DecodeUint(width int) (uint64, error) {
	b, err := d.ReadBytes(width)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// DecodeUint128 decodes a fixed 16-byte little-endian unsigned integer,
// returned as a decimal string since it does not fit in a uint64
// (Balance/u128 values).
func (d *Decoder) DecodeUint128() (string, error) {
	b, err := d.ReadBytes(16)
	if err != nil {
		return "", err
	}
	return decimalFromLittleEndian(b), nil
}

// DecodeBool decodes a SCALE bool: 0x00 is false, 0x01 is true; any
// other byte is malformed input.
func (d *Decoder) DecodeBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, fmt.Errorf("scale: malformed bool byte 0x%02x", b)
	}
}

// DecodeString decodes a compact-length-prefixed UTF-8 string.
func (d *Decoder) DecodeString() (string, error) {
	n, err := d.DecodeCompact()
	if err != nil {
		return "", err
	}
	b, err := d.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeOptionTag reads the Option<T> discriminant byte: 0x00 is None,
// 0x01 is Some, any other value is MalformedOption.
func (d *Decoder) DecodeOptionTag() (present bool, err error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, fmt.Errorf("%w: 0x%02x", ErrMalformedOption, b)
	}
}

// decimalFromLittleEndian renders a little-endian byte slice as a base-10
// string, for integer widths Go has no native type for (u128).
func decimalFromLittleEndian(b []byte) string {
	// Work in big-endian order for the long-division below.
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	digits := []byte{0}
	for _, byteVal := range be {
		carry := int(byteVal)
		for i := range digits {
			v := int(digits[i])*256 + carry
			digits[i] = byte(v % 10)
			carry = v / 10
		}
		for carry > 0 {
			digits = append(digits, byte(carry%10))
			carry /= 10
		}
	}
	out := make([]byte, len(digits))
	for i, v := range digits {
		out[len(digits)-1-i] = '0' + v
	}
	return string(out)
}
