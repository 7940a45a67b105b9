package metadata

import (
	"encoding/binary"
	"fmt"
)

// rawDecoder is the minimal SCALE primitive reader metadata parsing needs
// for its own structural decode (compact lengths, vectors, options,
// strings, enum tags). It intentionally duplicates the primitives in
// pkg/scale rather than importing that package: pkg/scale depends on
// ArgumentMeta (defined here) to dispatch argument decoding, so metadata
// decoding its own bytes and pkg/scale decoding argument values stay on
// opposite sides of a one-way import (scale -> metadata).
type rawDecoder struct {
	buf []byte
	pos int
}

func newRawDecoder(buf []byte) *rawDecoder {
	return &rawDecoder{buf: buf}
}

func (d *rawDecoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, fmt.Errorf("metadata: unexpected end of input")
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *rawDecoder) readBytes(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("metadata: unexpected end of input reading %d bytes", n)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// readCompact decodes a SCALE compact (general) integer.
func (d *rawDecoder) readCompact() (uint64, error) {
	first, err := d.readByte()
	if err != nil {
		return 0, err
	}
	switch first & 0b11 {
	case 0b00:
		return uint64(first >> 2), nil
	case 0b01:
		second, err := d.readByte()
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16([]byte{first, second})) >> 2, nil
	case 0b10:
		rest, err := d.readBytes(3)
		if err != nil {
			return 0, err
		}
		v := uint32(first) | uint32(rest[0])<<8 | uint32(rest[1])<<16 | uint32(rest[2])<<24
		return uint64(v) >> 2, nil
	default:
		n := int(first>>2) + 4
		if n > 8 {
			return 0, fmt.Errorf("metadata: compact integer wider than 8 bytes")
		}
		rest, err := d.readBytes(n)
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

func (d *rawDecoder) readU32() (uint32, error) {
	b, err := d.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *rawDecoder) readString() (string, error) {
	n, err := d.readCompact()
	if err != nil {
		return "", err
	}
	b, err := d.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *rawDecoder) readStringVec() ([]string, error) {
	n, err := d.readCompact()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (d *rawDecoder) readBool() (bool, error) {
	b, err := d.readByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// readOptionTag reports whether an Option<T> that follows is Some (true)
// or None (false).
func (d *rawDecoder) readOptionTag() (bool, error) {
	b, err := d.readByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}
