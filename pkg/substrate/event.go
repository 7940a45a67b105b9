package substrate

// EventModule identifies which pallet an event belongs to. SubstrateEvent is a closed sum
// type: adding a module is a breaking change to persistence.
type EventModule string

const (
	EventModuleDemocracy EventModule = "Democracy"
	EventModuleReferenda EventModule = "Referenda"
	EventModuleStaking   EventModule = "Staking"
	EventModuleSystem    EventModule = "System"
	EventModuleImOnline  EventModule = "ImOnline"
	EventModuleUtility   EventModule = "Utility"
	EventModuleIdentity  EventModule = "Identity"
	EventModuleMultisig  EventModule = "Multisig"
	EventModuleOffences  EventModule = "Offences"
	EventModuleProxy     EventModule = "Proxy"
	EventModulePara      EventModule = "Para"
	EventModuleOther     EventModule = "Other"
)

// AccountVoteKind tags a Democracy/Referenda AccountVote.
type AccountVoteKind int

const (
	AccountVoteStandard AccountVoteKind = iota
	AccountVoteSplit
)

// AccountVote mirrors the on-chain governance vote argument type.
type AccountVote struct {
	Kind       AccountVoteKind
	Aye        bool // Standard only
	Conviction uint8 // Standard only: 0 (None) .. 6 (Locked6x)
	Balance    string // Standard only
	AyeAmount  string // Split only
	NayAmount  string // Split only
}

// AyeBalance returns the Standard-vote aye amount, or the Split aye
// amount, matching S1's expected column semantics.
func (v AccountVote) AyeBalance() *string {
	switch v.Kind {
	case AccountVoteStandard:
		if v.Aye {
			return &v.Balance
		}
		return nil
	case AccountVoteSplit:
		return &v.AyeAmount
	}
	return nil
}

// NayBalance returns the Standard-vote nay amount, or the Split nay
// amount.
func (v AccountVote) NayBalance() *string {
	switch v.Kind {
	case AccountVoteStandard:
		if !v.Aye {
			return &v.Balance
		}
		return nil
	case AccountVoteSplit:
		return &v.NayAmount
	}
	return nil
}

// ConvictionValue returns the Standard-vote conviction lock multiplier
// (0-6), or nil for a Split vote which carries no conviction.
func (v AccountVote) ConvictionValue() *uint8 {
	if v.Kind == AccountVoteStandard {
		c := v.Conviction
		return &c
	}
	return nil
}

// SubstrateEvent is the decoded, indexed representation of one chain
// event. Event is the pallet-specific payload (one of the *Event
// structs below) or nil for EventModuleOther.
type SubstrateEvent struct {
	Module          EventModule
	BlockHash       Hash
	EventIndex      int
	ExtrinsicIndex  *int
	NestingIndex    *string // e.g. "2.1.0"; position within batched/nested dispatch
	OtherModuleName string  // set only when Module == EventModuleOther
	OtherEventName  string  // set only when Module == EventModuleOther
	RawArguments    []byte  // retained for diagnostics when decode falls back to Other
	Payload         interface{}
}

// DemocracyVoted is Democracy.Voted: account_id voted on a referendum.
type DemocracyVoted struct {
	AccountID       AccountID
	ReferendumIndex uint32
	Vote            AccountVote
}

// DemocracyProposed is Democracy.Proposed.
type DemocracyProposed struct {
	ProposalIndex uint32
	Deposit       string
}

// DemocracySeconded is Democracy.Seconded.
type DemocracySeconded struct {
	AccountID     AccountID
	ProposalIndex uint32
}

// DemocracyStarted is Democracy.Started.
type DemocracyStarted struct {
	ReferendumIndex uint32
	VoteThreshold   string
}

// DemocracyPassed is Democracy.Passed.
type DemocracyPassed struct {
	ReferendumIndex uint32
}

// DemocracyNotPassed is Democracy.NotPassed.
type DemocracyNotPassed struct {
	ReferendumIndex uint32
}

// DemocracyCancelled is Democracy.Cancelled.
type DemocracyCancelled struct {
	ReferendumIndex uint32
}

// DemocracyDelegated is Democracy.Delegated.
type DemocracyDelegated struct {
	OriginalAccountID AccountID
	DelegateAccountID AccountID
}

// DemocracyUndelegated is Democracy.Undelegated.
type DemocracyUndelegated struct {
	AccountID AccountID
}

// ReferendaSubmitted is Referenda.Submitted.
type ReferendaSubmitted struct {
	Index     uint32
	TrackID   uint16
	ProposalHash Hash
}

// ReferendaApproved is Referenda.Approved.
type ReferendaApproved struct {
	Index uint32
}

// ReferendaRejected is Referenda.Rejected.
type ReferendaRejected struct {
	Index uint32
}

// StakingSlashed is Staking.Slashed.
type StakingSlashed struct {
	AccountID AccountID
	Amount    string
}

// StakingChilled is Staking.Chilled.
type StakingChilled struct {
	AccountID AccountID
}

// StakingBonded is Staking.Bonded.
type StakingBonded struct {
	AccountID AccountID
	Amount    string
}

// StakingUnbonded is Staking.Unbonded.
type StakingUnbonded struct {
	AccountID AccountID
	Amount    string
}

// StakingPayoutStarted is Staking.PayoutStarted.
type StakingPayoutStarted struct {
	EraIndex          int64
	ValidatorAccountID AccountID
}

// StakingRewarded is Staking.Rewarded.
type StakingRewarded struct {
	AccountID AccountID
	Amount    string
}

// StakingEraPaid is Staking.EraPaid.
type StakingEraPaid struct {
	EraIndex    int64
	TotalPayout string
	Remainder   string
}

// SystemExtrinsicSuccess is System.ExtrinsicSuccess.
type SystemExtrinsicSuccess struct{}

// SystemExtrinsicFailed is System.ExtrinsicFailed.
type SystemExtrinsicFailed struct {
	DispatchError string
}

// SystemNewAccount is System.NewAccount.
type SystemNewAccount struct {
	AccountID AccountID
}

// SystemKilledAccount is System.KilledAccount.
type SystemKilledAccount struct {
	AccountID AccountID
}

// ImOnlineHeartbeatReceived is ImOnline.HeartbeatReceived.
type ImOnlineHeartbeatReceived struct {
	ValidatorAuthorityIndex uint32
	ValidatorAccountID      AccountID
}

// ImOnlineAllGood is ImOnline.AllGood (no validators were offline this
// session).
type ImOnlineAllGood struct{}

// ImOnlineSomeOffline is ImOnline.SomeOffline.
type ImOnlineSomeOffline struct {
	OfflineAccountIDs []AccountID
}

// OffencesOffence is Offences.Offence.
type OffencesOffence struct {
	Kind           string
	TimeSlot       []byte
	OffenderAccountIDs []AccountID
}

// ParaLeaseGranted is Para.Leased: a parachain lease observed on a
// relay chain.
type ParaLeaseGranted struct {
	ParaID        uint32
	LeasingAccountID AccountID
	PeriodBegin   uint32
	PeriodCount   uint32
}

// ParaAuctionClosed is Para.AuctionClosed.
type ParaAuctionClosed struct {
	AuctionIndex uint32
}
