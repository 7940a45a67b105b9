package blockprocessor

import (
	"fmt"

	"github.com/subvt-network/subvt/pkg/metadata"
	"github.com/subvt-network/subvt/pkg/scale"
	"github.com/subvt-network/subvt/pkg/substrate"
)

// multiAddressTag values: the wire shape of sp_runtime::MultiAddress.
const (
	multiAddressID    = 0
	multiAddressIndex = 1
	multiAddressRaw   = 2
	multiAddress32    = 3
	multiAddress20    = 4
)

// multiSignatureLen gives the payload length of each
// sp_runtime::MultiSignature variant tag (Ed25519, Sr25519, Ecdsa).
var multiSignatureLen = map[byte]int{0: 64, 1: 64, 2: 65}

// DecodeExtrinsics decodes a block's raw, still-hex extrinsics (as
// returned by chain_getBlock) against md's call tables, preserving
// their original in-block order via Index.
func DecodeExtrinsics(md *metadata.Metadata, rawHexExtrinsics []string) ([]*substrate.Extrinsic, error) {
	out := make([]*substrate.Extrinsic, len(rawHexExtrinsics))
	for i, hexStr := range rawHexExtrinsics {
		b, err := hexBytes(hexStr)
		if err != nil {
			return nil, fmt.Errorf("blockprocessor: decoding extrinsic %d hex: %w", i, err)
		}
		e, err := decodeExtrinsic(md, i, b)
		if err != nil {
			return nil, fmt.Errorf("blockprocessor: decoding extrinsic %d: %w", i, err)
		}
		out[i] = e
	}
	return out, nil
}

// decodeExtrinsic decodes one opaque extrinsic: the outer
// compact-length-prefixed byte vector, the signed/version byte, the
// optional signature envelope, and the module/call dispatch with its
// typed arguments.
func decodeExtrinsic(md *metadata.Metadata, index int, raw []byte) (*substrate.Extrinsic, error) {
	d := scale.NewDecoder(raw)
	// The outer Vec<u8> length prefix wraps the whole extrinsic body;
	// since we already have the exact byte slice there is nothing
	// further to do with it beyond consuming it.
	if _, err := d.DecodeCompact(); err != nil {
		return nil, fmt.Errorf("decoding outer length: %w", err)
	}

	signedVersion, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	const signBit = 0b1000_0000
	const versionMask = 0b0111_1111
	isSigned := signedVersion&signBit != 0
	version := signedVersion & versionMask

	e := &substrate.Extrinsic{Index: index, Version: version}

	if isSigned {
		sig, err := decodeSignature(d)
		if err != nil {
			return nil, fmt.Errorf("decoding signature: %w", err)
		}
		e.Signature = sig
	}

	moduleIndex, err := d.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decoding module index: %w", err)
	}
	callIndex, err := d.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decoding call index: %w", err)
	}
	mod, ok := md.Modules[moduleIndex]
	if !ok {
		return nil, fmt.Errorf("module index %d not in runtime metadata", moduleIndex)
	}
	call, ok := mod.Calls[callIndex]
	if !ok {
		return nil, fmt.Errorf("%s: call index %d not in runtime metadata", mod.Name, callIndex)
	}
	e.ModuleName = mod.Name
	e.CallName = call.Name

	args := make([]scale.Argument, len(call.Arguments))
	for i, argMeta := range call.Arguments {
		arg, err := scale.Decode(argMeta, d)
		if err != nil {
			return nil, fmt.Errorf("%s.%s argument %d: %w", mod.Name, call.Name, i, err)
		}
		args[i] = arg
	}
	e.Arguments = args
	return e, nil
}

// decodeSignature decodes the MultiAddress signer, MultiSignature,
// mortal/immortal Era, and compact nonce/tip that precede a signed
// extrinsic's call.
func decodeSignature(d *scale.Decoder) (*substrate.ExtrinsicSignature, error) {
	signer, err := decodeMultiAddress(d)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}
	sigBytes, err := decodeMultiSignature(d)
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	era, err := decodeEra(d)
	if err != nil {
		return nil, fmt.Errorf("era: %w", err)
	}
	nonce, err := d.DecodeCompact()
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	tip, err := d.DecodeCompact()
	if err != nil {
		return nil, fmt.Errorf("tip: %w", err)
	}
	return &substrate.ExtrinsicSignature{
		SignerAccountID: signer,
		SignatureBytes:  sigBytes,
		Era:             era,
		Nonce:           nonce,
		Tip:             fmt.Sprintf("%d", tip),
	}, nil
}

// decodeMultiAddress decodes sp_runtime::MultiAddress down to the
// plain AccountId32 SubVT cares about; the Index/Raw/Address32/
// Address20 variants (soft-derived or legacy addressing schemes this
// system never emits transactions for) are read past but otherwise
// ignored, since a signer using one of them has no bearing on
// validator-centric processing.
func decodeMultiAddress(d *scale.Decoder) (substrate.AccountID, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return substrate.AccountID{}, err
	}
	switch tag {
	case multiAddressID:
		b, err := d.ReadBytes(32)
		if err != nil {
			return substrate.AccountID{}, err
		}
		var id substrate.AccountID
		copy(id[:], b)
		return id, nil
	case multiAddressIndex:
		if _, err := d.DecodeCompact(); err != nil {
			return substrate.AccountID{}, err
		}
		return substrate.AccountID{}, nil
	case multiAddressRaw:
		n, err := d.DecodeCompact()
		if err != nil {
			return substrate.AccountID{}, err
		}
		if _, err := d.ReadBytes(int(n)); err != nil {
			return substrate.AccountID{}, err
		}
		return substrate.AccountID{}, nil
	case multiAddress32, multiAddress20:
		n := 32
		if tag == multiAddress20 {
			n = 20
		}
		if _, err := d.ReadBytes(n); err != nil {
			return substrate.AccountID{}, err
		}
		return substrate.AccountID{}, nil
	default:
		return substrate.AccountID{}, fmt.Errorf("unknown MultiAddress tag %d", tag)
	}
}

func decodeMultiSignature(d *scale.Decoder) ([]byte, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	n, ok := multiSignatureLen[tag]
	if !ok {
		return nil, fmt.Errorf("unknown MultiSignature tag %d", tag)
	}
	return d.ReadBytes(n)
}

// decodeEra decodes sp_runtime::generic::Era: a single zero byte for
// Immortal, or two bytes encoding a (period, phase) pair for Mortal.
func decodeEra(d *scale.Decoder) (*substrate.MortalEra, error) {
	first, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if first == 0 {
		return nil, nil
	}
	second, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	encoded := uint64(first) + uint64(second)<<8
	period := uint64(2) << (encoded % (1 << 4))
	quantizeFactor := period >> 12
	if quantizeFactor < 1 {
		quantizeFactor = 1
	}
	phase := (encoded >> 4) * quantizeFactor
	return &substrate.MortalEra{Period: period, Phase: phase}, nil
}
