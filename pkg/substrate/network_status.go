package substrate

import (
	"bytes"
	"reflect"
)

// NetworkStatus is the verbatim snapshot stored at
// subvt:<chain>:live_network_status.
type NetworkStatus struct {
	BestBlockNumber          uint64
	FinalizedBlockNumber     uint64
	LastEraRewardPoints      uint64
	ActiveEraTotalStake      string
	ActiveEraMinStake        string
	ActiveEraMaxStake        string
	ActiveEraAverageStake    string
	ActiveEraMedianStake     string
	EraIndex                 int64
	EpochIndex               uint64
	ActiveValidatorCount     int
	InactiveValidatorCount   int
	OversubscribedValidatorCount int
}

// NetworkStatusDiff carries only the fields that changed between two
// NetworkStatus snapshots. A nil field means "unchanged".
type NetworkStatusDiff struct {
	BestBlockNumber               *uint64
	FinalizedBlockNumber          *uint64
	LastEraRewardPoints           *uint64
	ActiveEraTotalStake           *string
	ActiveEraMinStake             *string
	ActiveEraMaxStake             *string
	ActiveEraAverageStake         *string
	ActiveEraMedianStake          *string
	EraIndex                      *int64
	EpochIndex                    *uint64
	ActiveValidatorCount          *int
	InactiveValidatorCount        *int
	OversubscribedValidatorCount  *int
}

// DiffNetworkStatus computes the field-level diff between prev and
// curr.
func DiffNetworkStatus(prev, curr *NetworkStatus) *NetworkStatusDiff {
	d := &NetworkStatusDiff{}
	if prev.BestBlockNumber != curr.BestBlockNumber {
		v := curr.BestBlockNumber
		d.BestBlockNumber = &v
	}
	if prev.FinalizedBlockNumber != curr.FinalizedBlockNumber {
		v := curr.FinalizedBlockNumber
		d.FinalizedBlockNumber = &v
	}
	if prev.LastEraRewardPoints != curr.LastEraRewardPoints {
		v := curr.LastEraRewardPoints
		d.LastEraRewardPoints = &v
	}
	if prev.ActiveEraTotalStake != curr.ActiveEraTotalStake {
		v := curr.ActiveEraTotalStake
		d.ActiveEraTotalStake = &v
	}
	if prev.ActiveEraMinStake != curr.ActiveEraMinStake {
		v := curr.ActiveEraMinStake
		d.ActiveEraMinStake = &v
	}
	if prev.ActiveEraMaxStake != curr.ActiveEraMaxStake {
		v := curr.ActiveEraMaxStake
		d.ActiveEraMaxStake = &v
	}
	if prev.ActiveEraAverageStake != curr.ActiveEraAverageStake {
		v := curr.ActiveEraAverageStake
		d.ActiveEraAverageStake = &v
	}
	if prev.ActiveEraMedianStake != curr.ActiveEraMedianStake {
		v := curr.ActiveEraMedianStake
		d.ActiveEraMedianStake = &v
	}
	if prev.EraIndex != curr.EraIndex {
		v := curr.EraIndex
		d.EraIndex = &v
	}
	if prev.EpochIndex != curr.EpochIndex {
		v := curr.EpochIndex
		d.EpochIndex = &v
	}
	if prev.ActiveValidatorCount != curr.ActiveValidatorCount {
		v := curr.ActiveValidatorCount
		d.ActiveValidatorCount = &v
	}
	if prev.InactiveValidatorCount != curr.InactiveValidatorCount {
		v := curr.InactiveValidatorCount
		d.InactiveValidatorCount = &v
	}
	if prev.OversubscribedValidatorCount != curr.OversubscribedValidatorCount {
		v := curr.OversubscribedValidatorCount
		d.OversubscribedValidatorCount = &v
	}
	return d
}

// Apply folds a diff onto prev and returns the resulting snapshot,
// without mutating prev: apply(prev, diff(prev, curr)) == curr.
func (d *NetworkStatusDiff) Apply(prev *NetworkStatus) *NetworkStatus {
	next := *prev
	if d.BestBlockNumber != nil {
		next.BestBlockNumber = *d.BestBlockNumber
	}
	if d.FinalizedBlockNumber != nil {
		next.FinalizedBlockNumber = *d.FinalizedBlockNumber
	}
	if d.LastEraRewardPoints != nil {
		next.LastEraRewardPoints = *d.LastEraRewardPoints
	}
	if d.ActiveEraTotalStake != nil {
		next.ActiveEraTotalStake = *d.ActiveEraTotalStake
	}
	if d.ActiveEraMinStake != nil {
		next.ActiveEraMinStake = *d.ActiveEraMinStake
	}
	if d.ActiveEraMaxStake != nil {
		next.ActiveEraMaxStake = *d.ActiveEraMaxStake
	}
	if d.ActiveEraAverageStake != nil {
		next.ActiveEraAverageStake = *d.ActiveEraAverageStake
	}
	if d.ActiveEraMedianStake != nil {
		next.ActiveEraMedianStake = *d.ActiveEraMedianStake
	}
	if d.EraIndex != nil {
		next.EraIndex = *d.EraIndex
	}
	if d.EpochIndex != nil {
		next.EpochIndex = *d.EpochIndex
	}
	if d.ActiveValidatorCount != nil {
		next.ActiveValidatorCount = *d.ActiveValidatorCount
	}
	if d.InactiveValidatorCount != nil {
		next.InactiveValidatorCount = *d.InactiveValidatorCount
	}
	if d.OversubscribedValidatorCount != nil {
		next.OversubscribedValidatorCount = *d.OversubscribedValidatorCount
	}
	return &next
}

// ValidatorDetailsDiff carries only the changed fields of a
// ValidatorDetails, used by the validator-details subscription server.
// A nil field means "unchanged". Every field of ValidatorDetails has a
// counterpart here so apply(prev, diff(prev, curr)) == curr; OneKV is
// double-pointed because a validator leaving the external registry (a
// change to nil) must be distinguishable from no change.
type ValidatorDetailsDiff struct {
	Account             *Account
	ControllerAccountID *AccountID
	IsActive            *bool
	SessionKeys         *[]byte
	NextSessionKeys     *[]byte
	ActiveNextSession   *bool
	RewardDestination   *RewardDestination
	Preferences         *ValidatorPreferences
	SelfStake           *string
	Oversubscribed      *bool
	Slashed             *bool
	Nominations         *[]Nomination
	ValidatorStake      *ValidatorStake
	OneKV               **OneKVInfo
}

// DiffValidatorDetails computes the field-level diff between two
// validator snapshots for the same account.
func DiffValidatorDetails(prev, curr *ValidatorDetails) *ValidatorDetailsDiff {
	d := &ValidatorDetailsDiff{}
	if !reflect.DeepEqual(prev.Account, curr.Account) {
		v := curr.Account
		d.Account = &v
	}
	if prev.ControllerAccountID != curr.ControllerAccountID {
		v := curr.ControllerAccountID
		d.ControllerAccountID = &v
	}
	if prev.IsActive != curr.IsActive {
		v := curr.IsActive
		d.IsActive = &v
	}
	if !bytes.Equal(prev.SessionKeys, curr.SessionKeys) {
		v := append([]byte(nil), curr.SessionKeys...)
		d.SessionKeys = &v
	}
	if !bytes.Equal(prev.NextSessionKeys, curr.NextSessionKeys) {
		v := append([]byte(nil), curr.NextSessionKeys...)
		d.NextSessionKeys = &v
	}
	if prev.ActiveNextSession != curr.ActiveNextSession {
		v := curr.ActiveNextSession
		d.ActiveNextSession = &v
	}
	if !reflect.DeepEqual(prev.RewardDestination, curr.RewardDestination) {
		v := curr.RewardDestination
		d.RewardDestination = &v
	}
	if prev.Preferences != curr.Preferences {
		v := curr.Preferences
		d.Preferences = &v
	}
	if prev.SelfStake != curr.SelfStake {
		v := curr.SelfStake
		d.SelfStake = &v
	}
	if prev.Oversubscribed != curr.Oversubscribed {
		v := curr.Oversubscribed
		d.Oversubscribed = &v
	}
	if prev.Slashed != curr.Slashed {
		v := curr.Slashed
		d.Slashed = &v
	}
	if !reflect.DeepEqual(prev.Nominations, curr.Nominations) {
		v := append([]Nomination(nil), curr.Nominations...)
		d.Nominations = &v
	}
	if !reflect.DeepEqual(prev.ValidatorStake, curr.ValidatorStake) {
		v := curr.ValidatorStake
		d.ValidatorStake = &v
	}
	if oneKVChanged(prev.OneKV, curr.OneKV) {
		v := curr.OneKV
		d.OneKV = &v
	}
	return d
}

// Apply folds the diff onto prev and returns the resulting snapshot,
// without mutating prev: apply(prev, diff(prev, curr)) == curr.
func (d *ValidatorDetailsDiff) Apply(prev *ValidatorDetails) *ValidatorDetails {
	next := *prev
	if d.Account != nil {
		next.Account = *d.Account
	}
	if d.ControllerAccountID != nil {
		next.ControllerAccountID = *d.ControllerAccountID
	}
	if d.IsActive != nil {
		next.IsActive = *d.IsActive
	}
	if d.SessionKeys != nil {
		next.SessionKeys = *d.SessionKeys
	}
	if d.NextSessionKeys != nil {
		next.NextSessionKeys = *d.NextSessionKeys
	}
	if d.ActiveNextSession != nil {
		next.ActiveNextSession = *d.ActiveNextSession
	}
	if d.RewardDestination != nil {
		next.RewardDestination = *d.RewardDestination
	}
	if d.Preferences != nil {
		next.Preferences = *d.Preferences
	}
	if d.SelfStake != nil {
		next.SelfStake = *d.SelfStake
	}
	if d.Oversubscribed != nil {
		next.Oversubscribed = *d.Oversubscribed
	}
	if d.Slashed != nil {
		next.Slashed = *d.Slashed
	}
	if d.Nominations != nil {
		next.Nominations = *d.Nominations
	}
	if d.ValidatorStake != nil {
		next.ValidatorStake = *d.ValidatorStake
	}
	if d.OneKV != nil {
		next.OneKV = *d.OneKV
	}
	return &next
}

func oneKVChanged(prev, curr *OneKVInfo) bool {
	if (prev == nil) != (curr == nil) {
		return true
	}
	if prev == nil {
		return false
	}
	if prev.Rank != curr.Rank || prev.Location != curr.Location ||
		prev.BinaryVersion != curr.BinaryVersion || prev.IsEnrolled != curr.IsEnrolled {
		return true
	}
	if len(prev.Validity) != len(curr.Validity) {
		return true
	}
	for i := range prev.Validity {
		if prev.Validity[i] != curr.Validity[i] {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the diff carries no changed fields, meaning
// the subscription server should send a heartbeat instead of an
// update.
func (d *ValidatorDetailsDiff) IsEmpty() bool {
	return d.Account == nil && d.ControllerAccountID == nil && d.IsActive == nil &&
		d.SessionKeys == nil && d.NextSessionKeys == nil && d.ActiveNextSession == nil &&
		d.RewardDestination == nil && d.Preferences == nil && d.SelfStake == nil &&
		d.Oversubscribed == nil && d.Slashed == nil && d.Nominations == nil &&
		d.ValidatorStake == nil && d.OneKV == nil
}
