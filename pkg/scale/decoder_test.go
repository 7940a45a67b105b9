package scale

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/metadata"
)

func TestDecodeCompactModes(t *testing.T) {
	cases := []struct {
		name  string
		input []byte
		want  uint64
	}{
		{"single byte", []byte{0x04}, 1},
		{"single byte max", []byte{0xfc}, 63},
		{"two byte", []byte{0x15, 0x01}, 69},
		{"four byte", []byte{0xfe, 0xff, 0x03, 0x00}, 0xffff},
		{"big mode", []byte{0x03, 0x00, 0x00, 0x00, 0x40}, 1 << 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := NewDecoder(tc.input).DecodeCompact()
			require.NoError(t, err)
			require.Equal(t, tc.want, v)
		})
	}
}

func TestDecodeUint128AsDecimalString(t *testing.T) {
	raw := make([]byte, 16)
	raw[0] = 0x40
	raw[1] = 0x42
	raw[2] = 0x0f // 1_000_000 little-endian
	v, err := NewDecoder(raw).DecodeUint128()
	require.NoError(t, err)
	require.Equal(t, "1000000", v)
}

func TestDecodeOptionTagRejectsBadDiscriminant(t *testing.T) {
	_, err := NewDecoder([]byte{0x02}).DecodeOptionTag()
	require.ErrorIs(t, err, ErrMalformedOption)
}

func TestDecodeVecOfU32(t *testing.T) {
	meta, err := metadata.ParseArgumentMeta("Vec<u32>")
	require.NoError(t, err)
	// length 2, then 1 and 256 little-endian
	raw := []byte{0x08, 0x01, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00}
	arg, err := Decode(meta, NewDecoder(raw))
	require.NoError(t, err)
	items := arg.Value.([]Argument)
	require.Len(t, items, 2)
	require.Equal(t, uint32(1), items[0].Value)
	require.Equal(t, uint32(256), items[1].Value)
}

func TestDecodeOptionNoneAndSome(t *testing.T) {
	meta, err := metadata.ParseArgumentMeta("Option<bool>")
	require.NoError(t, err)

	none, err := Decode(meta, NewDecoder([]byte{0x00}))
	require.NoError(t, err)
	require.Nil(t, none.Value.(*Argument))

	some, err := Decode(meta, NewDecoder([]byte{0x01, 0x01}))
	require.NoError(t, err)
	require.Equal(t, true, some.Value.(*Argument).Value)
}

func TestUnknownPrimitiveTypeIsTyped(t *testing.T) {
	_, err := DecodePrimitive("BrandNewRuntimeType", NewDecoder(nil))
	require.Error(t, err)
	require.True(t, IsUnknownPrimitiveType(err))
}

// Every name in the dispatch table must either decode or fail with a
// short-read style error against an empty buffer -- never with
// UnknownPrimitiveTypeError, which is reserved for names outside the
// table.
func TestPrimitiveTableTotality(t *testing.T) {
	for name := range primitiveTable {
		_, err := DecodePrimitive(name, NewDecoder(nil))
		if err != nil {
			require.False(t, IsUnknownPrimitiveType(err), name)
		}
	}
}

func TestDecodeCompactWrapperNames(t *testing.T) {
	v, err := DecodePrimitive("Compact<Balance>", NewDecoder([]byte{0x04}))
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}
