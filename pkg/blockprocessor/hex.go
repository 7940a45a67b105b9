package blockprocessor

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// hexBytes decodes a "0x"-prefixed hex string into bytes, the wire
// shape every RPC method in pkg/chain hands back opaque payloads in.
func hexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed hex %q: %w", s, err)
	}
	return b, nil
}
