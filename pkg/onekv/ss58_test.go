package onekv

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// The substrate dev "Alice" account: its public key is fixed, so the
// SS58 form (generic prefix 42) decodes to a known 32-byte id.
const (
	aliceSS58   = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	alicePubKey = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
)

func TestDecodeSS58AccountID(t *testing.T) {
	id, err := decodeSS58AccountID(aliceSS58)
	require.NoError(t, err)
	require.Equal(t, alicePubKey, hex.EncodeToString(id[:]))
}

func TestDecodeSS58RejectsBadChecksum(t *testing.T) {
	corrupted := aliceSS58[:len(aliceSS58)-1] + "Z"
	_, err := decodeSS58AccountID(corrupted)
	require.Error(t, err)
}

func TestDecodeSS58RejectsNonBase58(t *testing.T) {
	_, err := decodeSS58AccountID("0Il!")
	require.Error(t, err)
}
