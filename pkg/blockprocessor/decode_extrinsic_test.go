package blockprocessor

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/scale"
)

func testMetadataWithTimestampSet() *metadata.Metadata {
	return &metadata.Metadata{
		Version: metadata.VersionV13,
		Modules: map[uint8]*metadata.ModuleMetadata{
			3: {
				Index: 3,
				Name:  "Timestamp",
				Calls: map[uint8]*metadata.CallMetadata{
					0: {Index: 0, Name: "set", Arguments: []metadata.ArgumentMeta{
						{Kind: metadata.ArgumentMetaPrimitive, Primitive: "Compact<Moment>"},
					}},
				},
				Events: map[uint8]*metadata.EventMetadata{},
			},
		},
	}
}

// encodeCompactU64 is the inverse of scale.Decoder.DecodeCompact, used
// to build fixture bytes for values the hand-written hex literals would
// be error-prone to produce directly.
func encodeCompactU64(v uint64) []byte {
	switch {
	case v < 1<<6:
		return []byte{byte(v << 2)}
	case v < 1<<14:
		x := uint16(v<<2) | 0b01
		return []byte{byte(x), byte(x >> 8)}
	case v < 1<<30:
		x := uint32(v<<2) | 0b10
		return []byte{byte(x), byte(x >> 8), byte(x >> 16), byte(x >> 24)}
	default:
		var payload []byte
		for tmp := v; tmp > 0; tmp >>= 8 {
			payload = append(payload, byte(tmp))
		}
		for len(payload) < 4 {
			payload = append(payload, 0)
		}
		first := byte((len(payload)-4)<<2) | 0b11
		return append([]byte{first}, payload...)
	}
}

func newBytesDecoder(b []byte) *scale.Decoder { return scale.NewDecoder(b) }

func newHexDecoder(t *testing.T, hexStr string) *scale.Decoder {
	b, err := hex.DecodeString(hexStr)
	require.NoError(t, err)
	return scale.NewDecoder(b)
}

func TestDecodeExtrinsicsUnsigned(t *testing.T) {
	md := testMetadataWithTimestampSet()

	moment := uint64(1_600_000_000_000)
	inner := []byte{0x04, 0x03, 0x00} // unsigned version 4, module 3, call 0
	inner = append(inner, encodeCompactU64(moment)...)
	raw := append(encodeCompactU64(uint64(len(inner))), inner...)

	out, err := DecodeExtrinsics(md, []string{"0x" + hex.EncodeToString(raw)})
	require.NoError(t, err)
	require.Len(t, out, 1)

	ex := out[0]
	require.Equal(t, "Timestamp", ex.ModuleName)
	require.Equal(t, "set", ex.CallName)
	require.False(t, ex.IsSigned())
	require.Equal(t, moment, ex.Arguments[0].Value)
}

func TestDecodeExtrinsicsUnknownModule(t *testing.T) {
	md := testMetadataWithTimestampSet()
	inner := []byte{0x04, 0x99, 0x00}
	raw := append(encodeCompactU64(uint64(len(inner))), inner...)
	_, err := DecodeExtrinsics(md, []string{"0x" + hex.EncodeToString(raw)})
	require.Error(t, err)
}

func TestDecodeEraImmortal(t *testing.T) {
	d := newHexDecoder(t, "00")
	era, err := decodeEra(d)
	require.NoError(t, err)
	require.Nil(t, era)
}

func TestDecodeEraMortal(t *testing.T) {
	// period=64 (2<<5), phase=2: encoded = phase<<4 | (period exponent,
	// here 5) = 0x25, stored little-endian across the two era bytes.
	d := newHexDecoder(t, "2500")
	era, err := decodeEra(d)
	require.NoError(t, err)
	require.NotNil(t, era)
	require.Equal(t, uint64(64), era.Period)
	require.Equal(t, uint64(2), era.Phase)
}

func TestDecodeMultiAddressID(t *testing.T) {
	raw := append([]byte{multiAddressID}, make([]byte, 32)...)
	raw[5] = 0xAB
	d := newBytesDecoder(raw)
	id, err := decodeMultiAddress(d)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), id[4])
}

func TestDecodeMultiAddressIndexIsSkipped(t *testing.T) {
	raw := append([]byte{multiAddressIndex}, encodeCompactU64(7)...)
	d := newBytesDecoder(raw)
	_, err := decodeMultiAddress(d)
	require.NoError(t, err)
	require.Equal(t, 0, d.Len())
}

func TestDecodeMultiSignatureSr25519(t *testing.T) {
	raw := append([]byte{1}, make([]byte, 64)...)
	d := newBytesDecoder(raw)
	sig, err := decodeMultiSignature(d)
	require.NoError(t, err)
	require.Len(t, sig, 64)
}

func TestDecodeMultiSignatureUnknownTag(t *testing.T) {
	d := newBytesDecoder([]byte{0xFF})
	_, err := decodeMultiSignature(d)
	require.Error(t, err)
}
