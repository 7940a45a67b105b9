package chain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/substrate"
)

func TestPlainStorageKeyIsDeterministicAndPrefixLength(t *testing.T) {
	key, err := plainStorageKey("System", "Events")
	require.NoError(t, err)
	require.Equal(t, "0x"+"26aa394eea5630e07c48ae0c9558cef7"+"80d41e5e16056765bc8461851072c9d7", key)

	again, err := plainStorageKey("System", "Events")
	require.NoError(t, err)
	require.Equal(t, key, again)
}

func TestPlainStorageKeyDiffersByItem(t *testing.T) {
	events, err := plainStorageKey("System", "Events")
	require.NoError(t, err)
	upgrade, err := plainStorageKey("System", "LastRuntimeUpgrade")
	require.NoError(t, err)
	require.NotEqual(t, events, upgrade)
}

func TestEncodeAccountIDIsIdentity(t *testing.T) {
	var id substrate.AccountID
	id[0] = 0xAA
	id[31] = 0xBB
	b := encodeAccountID(id)
	require.Len(t, b, 32)
	require.Equal(t, byte(0xAA), b[0])
	require.Equal(t, byte(0xBB), b[31])
}

func TestEncodeU32LittleEndian(t *testing.T) {
	b := encodeU32(0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)
}

func TestAccountIDFromStorageKeyRecoversTrailingID(t *testing.T) {
	prefix := []byte{0x01, 0x02, 0x03, 0x04}
	var id substrate.AccountID
	for i := range id {
		id[i] = byte(i)
	}
	keyHex := bytesToHex(append(prefix, id[:]...))
	got, err := accountIDFromStorageKey(keyHex)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestAccountIDFromStorageKeyTooShort(t *testing.T) {
	_, err := accountIDFromStorageKey(bytesToHex([]byte{0x01, 0x02}))
	require.Error(t, err)
}

func TestMustPlainKeyPanicsNever(t *testing.T) {
	require.NotPanics(t, func() {
		_ = mustPlainKey("System", "Events")
	})
}

func TestDecodeFixedU64RoundTrip(t *testing.T) {
	raw := []byte{1, 0, 0, 0, 0, 0, 0, 0}
	v, err := decodeFixedU64(raw, "test")
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}

func TestDecodeFixedU64TooShort(t *testing.T) {
	_, err := decodeFixedU64([]byte{1, 2, 3}, "test")
	require.Error(t, err)
}

func TestDecodeFixedU32RoundTrip(t *testing.T) {
	raw := []byte{2, 0, 0, 0}
	v, err := decodeFixedU32(raw, "test")
	require.NoError(t, err)
	require.Equal(t, uint32(2), v)
}
