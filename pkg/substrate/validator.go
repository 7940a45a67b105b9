package substrate

// RewardDestinationKind tags how a validator's rewards are paid out.
type RewardDestinationKind int

const (
	RewardDestinationStaked RewardDestinationKind = iota
	RewardDestinationStash
	RewardDestinationController
	RewardDestinationAccount
	RewardDestinationNone
)

// RewardDestination pairs the tag with its optional account payload
// (only populated for RewardDestinationAccount).
type RewardDestination struct {
	Kind    RewardDestinationKind
	Account *AccountID
}

// ValidatorPreferences mirrors Staking.Validators: commission in
// parts-per-billion, and whether the validator blocks further
// nominations.
type ValidatorPreferences struct {
	CommissionPerBillion uint32
	BlocksNominations    bool
}

// IdentityRegistration is the on-chain Identity.IdentityOf payload,
// reduced to the fields SubVT surfaces.
type IdentityRegistration struct {
	Display   *string
	Legal     *string
	Web       *string
	Email     *string
	Twitter   *string
	Confirmed bool
}

// Account pairs an account id with its optional identity and a single
// level of parent identity. The on-chain super-of relation is
// guaranteed to terminate in at most one hop, so only one level of
// Parent is modeled -- implementations should not attempt to follow
// arbitrary-depth chains.
type Account struct {
	ID           AccountID
	Identity     *IdentityRegistration
	Parent       *ParentAccount
	DiscoveredAt *int64
	KilledAt     *int64
}

// ParentAccount is a single, non-recursive parent reference.
type ParentAccount struct {
	ID       AccountID
	Identity *IdentityRegistration
}

// Nomination is a staker's declaration of up to MaxNominations
// validators to back with a bonded stake. The same logical nomination
// is embedded (copied, not referenced) into every validator snapshot
// it targets, because the downstream JSON contract is one
// self-contained document per validator; the materializer should hold
// a single owning copy keyed by nominator while building the
// snapshots and only copy out when serializing.
type Nomination struct {
	NominatorAccount   AccountID
	ControllerAccount  AccountID
	Stake              string
	Targets            []AccountID
	SubmissionEra      int64
	ActiveAmount       *string
}

// ValidatorStake carries the reward counters the relational store
// contributes to a validator snapshot.
type ValidatorStake struct {
	DiscoveredAt        *int64
	KilledAt            *int64
	SlashCount          int
	OfflineOffenceCount int
	ActiveEraCount       int
	InactiveEraCount     int
	TotalRewardPoints    uint64
	UnclaimedEraIndices  []int64
	BlocksAuthored       int
	RewardPoints         uint64
	HeartbeatReceived    bool
}

// OneKVInfo holds the external validator-enrollment fields fetched
// from the 1KV HTTP endpoint.
type OneKVInfo struct {
	BinaryVersion string
	Rank          int
	Location      string
	Validity      []string
	IsEnrolled    bool
}

// ValidatorDetails is the fully materialized per-validator snapshot
// published to the key/value store and served by the
// validator-details subscription server.
type ValidatorDetails struct {
	Account               Account
	ControllerAccountID   AccountID
	IsActive              bool
	SessionKeys           []byte
	NextSessionKeys       []byte
	ActiveNextSession     bool
	RewardDestination     RewardDestination
	Preferences           ValidatorPreferences
	SelfStake             string
	Oversubscribed        bool
	Slashed               bool
	Nominations           []Nomination
	ValidatorStake
	OneKV *OneKVInfo
}

// IsOversubscribed recomputes oversubscription directly from the
// nomination count, independent of the cached Oversubscribed field.
func (v *ValidatorDetails) IsOversubscribed(maxNominatorRewardedPerValidator int) bool {
	return len(v.Nominations) > maxNominatorRewardedPerValidator
}

// ValidatorSummary is the reduced projection of ValidatorDetails used
// for the per-validator "summary_hash" fingerprint: it
// omits nominations and identity detail so that changes to a
// validator's backers do not churn the summary subscribers watch for
// a coarse-grained "something changed" signal.
type ValidatorSummary struct {
	AccountID         AccountID
	IsActive          bool
	Oversubscribed    bool
	Slashed           bool
	ActiveNextSession bool
	SelfStake         string
	CommissionPerBillion uint32
}

// Summary projects a ValidatorDetails down to its ValidatorSummary.
func (v *ValidatorDetails) Summary() ValidatorSummary {
	return ValidatorSummary{
		AccountID:            v.Account.ID,
		IsActive:             v.IsActive,
		Oversubscribed:       v.Oversubscribed,
		Slashed:              v.Slashed,
		ActiveNextSession:    v.ActiveNextSession,
		SelfStake:            v.SelfStake,
		CommissionPerBillion: v.Preferences.CommissionPerBillion,
	}
}
