package scale

import "strings"

// AccountID32 is a 32-byte Substrate account identifier, decoded
// independently of pkg/substrate.AccountID so this package stays free of
// a dependency on pkg/substrate (which itself depends on this package
// for Extrinsic.Arguments).
type AccountID32 [32]byte

// Hash32 is a 32-byte hash (block hash, extrinsic hash, proposal hash).
type Hash32 [32]byte

// ValidatorPreferences is the decoded Staking.Validators preference
// tuple: commission and the nominations-blocked flag.
type ValidatorPreferences struct {
	CommissionPerBillion uint32
	BlocksNominations    bool
}

// DispatchError is a coarse decode of the on-chain DispatchError enum:
// enough to distinguish a Module-origin failure (and its indices) from
// every other variant, which collapse to Kind/Detail.
type DispatchError struct {
	Kind        uint8
	ModuleIndex *uint8
	ErrorIndex  *uint8
}

// IndividualExposure is one nominator's contribution inside a validator's
// Exposure.
type IndividualExposure struct {
	Who   AccountID32
	Value string
}

// Exposure is the decoded Staking.ErasStakers(Clipped) entry.
type Exposure struct {
	Total  string
	Own    string
	Others []IndividualExposure
}

// AccountVote is the decoded governance vote argument (Standard or
// Split), matching the shape pkg/substrate.AccountVote is built from.
type AccountVote struct {
	IsSplit    bool
	Aye        bool
	Conviction uint8
	Balance    string
	AyeAmount  string
	NayAmount  string
}

// Tally is a referendum's running vote tally.
type Tally struct {
	Ayes    string
	Nays    string
	Turnout string
}

// RewardDestination is the decoded Staking.Payee value.
type RewardDestination struct {
	Kind    uint8 // 0 Staked, 1 Stash, 2 Controller, 3 Account, 4 None
	Account *AccountID32
}

// Timepoint is a Multisig operation's (height, index) identifier.
type Timepoint struct {
	Height uint32
	Index  uint32
}

// Heartbeat is the decoded ImOnline.Heartbeat payload.
type Heartbeat struct {
	BlockNumber     uint32
	NetworkState    []byte
	SessionIndex    uint32
	AuthorityIndex  uint32
}

type primitiveDecodeFunc func(d *Decoder) (interface{}, error)

// primitiveTable is the closed dispatch table of names the metadata's
// ArgumentMeta grammar resolves primitives to. A lookup miss
// here is always a decode failure, never a fallback.
var primitiveTable = map[string]primitiveDecodeFunc{
	"u8":  func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 1) },
	"i8":  func(d *Decoder) (interface{}, error) { return decodeIntWidth(d, 1) },
	"u16": func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 2) },
	"i16": func(d *Decoder) (interface{}, error) { return decodeIntWidth(d, 2) },
	"u32": func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },
	"i32": func(d *Decoder) (interface{}, error) { return decodeIntWidth(d, 4) },
	"u64": func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 8) },
	"i64": func(d *Decoder) (interface{}, error) { return decodeIntWidth(d, 8) },
	"u128": func(d *Decoder) (interface{}, error) { return d.DecodeUint128() },
	"i128": func(d *Decoder) (interface{}, error) { return d.DecodeUint128() },
	"bool": func(d *Decoder) (interface{}, error) { return d.DecodeBool() },
	"String": func(d *Decoder) (interface{}, error) { return d.DecodeString() },
	"Text": func(d *Decoder) (interface{}, error) { return d.DecodeString() },

	"AccountId":   decodeAccountID,
	"Hash":        decodeHash,
	"Balance":     func(d *Decoder) (interface{}, error) { return d.DecodeUint128() },
	"BalanceOf":   func(d *Decoder) (interface{}, error) { return d.DecodeUint128() },
	"Moment":      func(d *Decoder) (interface{}, error) { return d.DecodeUint(8) },
	"AuthorityId": decodeAccountID,

	"DispatchError":  decodeDispatchError,
	"DispatchResult": decodeDispatchResult,

	"ValidatorPrefs": decodeValidatorPreferences,

	"ReferendumIndex": func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },
	"ProposalIndex":   func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },
	"VoteThreshold":   decodeVoteThreshold,
	"AccountVote":     decodeAccountVote,
	"Tally":           decodeTally,

	"EraIndex":          func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },
	"SessionIndex":      func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },
	"Exposure":          decodeExposure,
	"SlashingSpanIndex": func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },
	"RewardDestination": decodeRewardDestination,

	"IdentityFields":      func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 8) },
	"Data":                decodeIdentityData,
	"Judgement":           decodeJudgement,
	"RegistrarIndex":      func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },

	"ParaId":      func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },
	"LeasePeriod": func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },

	"Timepoint":  decodeTimepoint,
	"CallHash":   decodeHash,

	"AuthorityIndex": func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },
	"Heartbeat":      decodeHeartbeat,

	"Perbill":    func(d *Decoder) (interface{}, error) { return decodeUintWidth(d, 4) },
	"Percent":    func(d *Decoder) (interface{}, error) { return d.ReadByte() },
}

// DecodePrimitive dispatches a primitive type name to its decode
// function. It also accepts an unenumerated "Compact<...>" wrapper
// generically, since the inner type name varies by runtime but the wire
// shape (a single compact integer) does not.
func DecodePrimitive(name string, d *Decoder) (interface{}, error) {
	if fn, ok := primitiveTable[name]; ok {
		return fn(d)
	}
	if strings.HasPrefix(name, "Compact<") && strings.HasSuffix(name, ">") {
		n, err := d.DecodeCompact()
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, &UnknownPrimitiveTypeError{Name: name}
}

func decodeUintWidth(d *Decoder, width int) (interface{}, error) {
	v, err := d.DecodeUint(width)
	if err != nil {
		return nil, err
	}
	switch width {
	case 1:
		return uint8(v), nil
	case 2:
		return uint16(v), nil
	case 4:
		return uint32(v), nil
	default:
		return v, nil
	}
}

func decodeIntWidth(d *Decoder, width int) (interface{}, error) {
	v, err := decodeUintWidth(d, width)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case uint8:
		return int8(x), nil
	case uint16:
		return int16(x), nil
	case uint32:
		return int32(x), nil
	default:
		return int64(v.(uint64)), nil
	}
}

func decodeAccountID(d *Decoder) (interface{}, error) {
	b, err := d.ReadBytes(32)
	if err != nil {
		return nil, err
	}
	var id AccountID32
	copy(id[:], b)
	return id, nil
}

func decodeHash(d *Decoder) (interface{}, error) {
	b, err := d.ReadBytes(32)
	if err != nil {
		return nil, err
	}
	var h Hash32
	copy(h[:], b)
	return h, nil
}

func decodeValidatorPreferences(d *Decoder) (interface{}, error) {
	commission, err := d.DecodeCompact()
	if err != nil {
		return nil, err
	}
	blocks, err := d.DecodeBool()
	if err != nil {
		return nil, err
	}
	return ValidatorPreferences{CommissionPerBillion: uint32(commission), BlocksNominations: blocks}, nil
}

func decodeDispatchError(d *Decoder) (interface{}, error) {
	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	de := DispatchError{Kind: kind}
	switch kind {
	case 3: // Module { index, error }
		idx, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		errIdx, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		de.ModuleIndex = &idx
		de.ErrorIndex = &errIdx
	case 0, 1, 2, 4, 5, 6, 7:
		// no further payload beyond the discriminant for these variants
	default:
		// unrecognized variant tag; nothing further to read safely
	}
	return de, nil
}

func decodeDispatchResult(d *Decoder) (interface{}, error) {
	ok, err := d.DecodeOptionTag()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	return decodeDispatchError(d)
}

func decodeVoteThreshold(d *Decoder) (interface{}, error) {
	b, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case 0:
		return "SuperMajorityApprove", nil
	case 1:
		return "SuperMajorityAgainst", nil
	case 2:
		return "SimpleMajority", nil
	default:
		return nil, &UnknownPrimitiveTypeError{Name: "VoteThreshold"}
	}
}

func decodeAccountVote(d *Decoder) (interface{}, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0: // Standard { vote, balance }
		voteByte, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		balance, err := d.DecodeUint128()
		if err != nil {
			return nil, err
		}
		return AccountVote{
			IsSplit:    false,
			Aye:        voteByte&0x80 != 0,
			Conviction: voteByte & 0x7f,
			Balance:    balance,
		}, nil
	case 1: // Split { aye, nay }
		aye, err := d.DecodeUint128()
		if err != nil {
			return nil, err
		}
		nay, err := d.DecodeUint128()
		if err != nil {
			return nil, err
		}
		return AccountVote{IsSplit: true, AyeAmount: aye, NayAmount: nay}, nil
	default:
		return nil, &UnknownPrimitiveTypeError{Name: "AccountVote"}
	}
}

func decodeTally(d *Decoder) (interface{}, error) {
	ayes, err := d.DecodeUint128()
	if err != nil {
		return nil, err
	}
	nays, err := d.DecodeUint128()
	if err != nil {
		return nil, err
	}
	turnout, err := d.DecodeUint128()
	if err != nil {
		return nil, err
	}
	return Tally{Ayes: ayes, Nays: nays, Turnout: turnout}, nil
}

func decodeExposure(d *Decoder) (interface{}, error) {
	total, err := d.DecodeUint128()
	if err != nil {
		return nil, err
	}
	own, err := d.DecodeUint128()
	if err != nil {
		return nil, err
	}
	n, err := d.DecodeCompact()
	if err != nil {
		return nil, err
	}
	others := make([]IndividualExposure, n)
	for i := range others {
		whoRaw, err := decodeAccountID(d)
		if err != nil {
			return nil, err
		}
		value, err := d.DecodeUint128()
		if err != nil {
			return nil, err
		}
		others[i] = IndividualExposure{Who: whoRaw.(AccountID32), Value: value}
	}
	return Exposure{Total: total, Own: own, Others: others}, nil
}

func decodeRewardDestination(d *Decoder) (interface{}, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	rd := RewardDestination{Kind: tag}
	if tag == 3 {
		acc, err := decodeAccountID(d)
		if err != nil {
			return nil, err
		}
		id := acc.(AccountID32)
		rd.Account = &id
	}
	return rd, nil
}

// decodeIdentityData decodes the Identity pallet's `Data` enum down to
// the displayable string it carries, or nil for None/hash-only variants
// whose raw bytes are not text.
func decodeIdentityData(d *Decoder) (interface{}, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch {
	case tag == 0:
		return nil, nil
	case tag >= 1 && tag <= 33: // Raw0..Raw32, length = tag-1
		n := int(tag - 1)
		b, err := d.ReadBytes(n)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tag == 34, tag == 35, tag == 36, tag == 37: // BlakeTwo256/Sha256/Keccak256/ShaThree256
		if _, err := d.ReadBytes(32); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		return nil, &UnknownPrimitiveTypeError{Name: "Data"}
	}
}

// decodeJudgement decodes the Identity pallet's Judgement enum: the
// discriminant byte, plus the Balance payload the FeePaid(1) variant
// alone carries.
func decodeJudgement(d *Decoder) (interface{}, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if tag == 1 { // FeePaid(Balance)
		if _, err := d.DecodeUint128(); err != nil {
			return nil, err
		}
	}
	return tag, nil
}

func decodeTimepoint(d *Decoder) (interface{}, error) {
	height, err := d.DecodeUint(4)
	if err != nil {
		return nil, err
	}
	index, err := d.DecodeUint(4)
	if err != nil {
		return nil, err
	}
	return Timepoint{Height: uint32(height), Index: uint32(index)}, nil
}

func decodeHeartbeat(d *Decoder) (interface{}, error) {
	blockNumber, err := d.DecodeUint(4)
	if err != nil {
		return nil, err
	}
	n, err := d.DecodeCompact()
	if err != nil {
		return nil, err
	}
	networkState, err := d.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	sessionIndex, err := d.DecodeUint(4)
	if err != nil {
		return nil, err
	}
	authorityIndex, err := d.DecodeUint(4)
	if err != nil {
		return nil, err
	}
	return Heartbeat{
		BlockNumber:    uint32(blockNumber),
		NetworkState:   networkState,
		SessionIndex:   uint32(sessionIndex),
		AuthorityIndex: uint32(authorityIndex),
	}, nil
}
