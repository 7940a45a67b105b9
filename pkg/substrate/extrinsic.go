package substrate

import "github.com/subvt-network/subvt/pkg/scale"

// ExtrinsicSignature is the signed-extrinsic envelope: signer, the
// mortal/immortal era, nonce and tip. Unsigned (inherent) extrinsics
// carry a nil *ExtrinsicSignature.
type ExtrinsicSignature struct {
	SignerAccountID AccountID
	SignatureBytes  []byte
	Era             *MortalEra
	Nonce           uint64
	Tip             string
}

// MortalEra is the (period, phase) pair encoding a signed extrinsic's
// validity window, decoded per the SCALE mortal-era encoding.
type MortalEra struct {
	Period uint64
	Phase  uint64
}

// Extrinsic is a decoded transaction included in a block: its module
// and call index, typed arguments, and (if signed) its signature
// envelope.
type Extrinsic struct {
	Index        int
	Version      uint8
	ModuleName   string
	CallName     string
	Signature    *ExtrinsicSignature
	Arguments    []scale.Argument
}

// IsSigned reports whether the extrinsic carries a signature.
func (e *Extrinsic) IsSigned() bool { return e.Signature != nil }
