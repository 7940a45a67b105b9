package substrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleStatus() *NetworkStatus {
	return &NetworkStatus{
		BestBlockNumber:              1000,
		FinalizedBlockNumber:         997,
		LastEraRewardPoints:          72000,
		ActiveEraTotalStake:          "5000000000000000",
		ActiveEraMinStake:            "1000000000000",
		ActiveEraMaxStake:            "90000000000000",
		ActiveEraAverageStake:        "5000000000000",
		ActiveEraMedianStake:         "4200000000000",
		EraIndex:                     2500,
		EpochIndex:                   15000,
		ActiveValidatorCount:         900,
		InactiveValidatorCount:       450,
		OversubscribedValidatorCount: 120,
	}
}

func TestDiffNetworkStatusCarriesOnlyChangedFields(t *testing.T) {
	prev := sampleStatus()
	curr := sampleStatus()
	curr.BestBlockNumber = 1001
	curr.ActiveValidatorCount = 901

	d := DiffNetworkStatus(prev, curr)

	require.NotNil(t, d.BestBlockNumber)
	require.Equal(t, uint64(1001), *d.BestBlockNumber)
	require.NotNil(t, d.ActiveValidatorCount)
	require.Equal(t, 901, *d.ActiveValidatorCount)

	require.Nil(t, d.FinalizedBlockNumber)
	require.Nil(t, d.LastEraRewardPoints)
	require.Nil(t, d.ActiveEraTotalStake)
	require.Nil(t, d.EraIndex)
	require.Nil(t, d.EpochIndex)
	require.Nil(t, d.InactiveValidatorCount)
	require.Nil(t, d.OversubscribedValidatorCount)
}

// apply(prev, diff(prev, curr)) == curr must hold for every field.
func TestNetworkStatusDiffApplyRoundTrip(t *testing.T) {
	prev := sampleStatus()
	curr := sampleStatus()
	curr.BestBlockNumber = 1010
	curr.FinalizedBlockNumber = 1004
	curr.LastEraRewardPoints = 73100
	curr.ActiveEraTotalStake = "5100000000000000"
	curr.ActiveEraMinStake = "1100000000000"
	curr.ActiveEraMaxStake = "91000000000000"
	curr.ActiveEraAverageStake = "5100000000000"
	curr.ActiveEraMedianStake = "4300000000000"
	curr.EraIndex = 2501
	curr.EpochIndex = 15006
	curr.ActiveValidatorCount = 905
	curr.InactiveValidatorCount = 440
	curr.OversubscribedValidatorCount = 118

	applied := DiffNetworkStatus(prev, curr).Apply(prev)
	require.Equal(t, curr, applied)
}

func TestNetworkStatusDiffApplyDoesNotMutatePrev(t *testing.T) {
	prev := sampleStatus()
	curr := sampleStatus()
	curr.BestBlockNumber = 1010

	before := *prev
	_ = DiffNetworkStatus(prev, curr).Apply(prev)
	require.Equal(t, before, *prev)
}

func TestValidatorDetailsDiffHeartbeatOnNoChange(t *testing.T) {
	v := &ValidatorDetails{
		IsActive:  true,
		SelfStake: "1000000000000",
		OneKV:     &OneKVInfo{Rank: 12, Location: "Lisbon", BinaryVersion: "0.9.12", Validity: []string{"valid"}},
	}
	same := *v
	d := DiffValidatorDetails(v, &same)
	require.True(t, d.IsEmpty())
}

func TestValidatorDetailsDiffCapturesOneKVChanges(t *testing.T) {
	prev := &ValidatorDetails{
		OneKV: &OneKVInfo{Rank: 12, Location: "Lisbon", BinaryVersion: "0.9.12", Validity: []string{"valid"}},
	}
	curr := &ValidatorDetails{
		OneKV: &OneKVInfo{Rank: 9, Location: "Porto", BinaryVersion: "0.9.13", Validity: []string{"valid"}},
	}
	d := DiffValidatorDetails(prev, curr)
	require.False(t, d.IsEmpty())
	require.NotNil(t, d.OneKV)
	require.Equal(t, 9, (*d.OneKV).Rank)
	require.Equal(t, "Porto", (*d.OneKV).Location)
	require.Equal(t, "0.9.13", (*d.OneKV).BinaryVersion)
}

// Leaving the external registry (OneKV becoming nil) is itself a
// change, distinct from "unchanged".
func TestValidatorDetailsDiffCapturesOneKVRemoval(t *testing.T) {
	prev := &ValidatorDetails{OneKV: &OneKVInfo{Rank: 12, IsEnrolled: true}}
	curr := &ValidatorDetails{}
	d := DiffValidatorDetails(prev, curr)
	require.False(t, d.IsEmpty())
	require.NotNil(t, d.OneKV)
	require.Nil(t, *d.OneKV)

	applied := d.Apply(prev)
	require.Nil(t, applied.OneKV)
}

func sampleValidatorDetails() *ValidatorDetails {
	var id, controller, nominator AccountID
	id[0], controller[0], nominator[0] = 0xaa, 0xbb, 0xcc
	display := "validator one"
	discovered := int64(1_600_000_000_000)
	return &ValidatorDetails{
		Account: Account{
			ID:       id,
			Identity: &IdentityRegistration{Display: &display, Confirmed: true},
		},
		ControllerAccountID: controller,
		IsActive:            true,
		SessionKeys:         []byte{0x01, 0x02},
		NextSessionKeys:     []byte{0x03, 0x04},
		ActiveNextSession:   true,
		RewardDestination:   RewardDestination{Kind: RewardDestinationStaked},
		Preferences:         ValidatorPreferences{CommissionPerBillion: 10_000_000},
		SelfStake:           "1000",
		Oversubscribed:      false,
		Slashed:             false,
		Nominations: []Nomination{
			{NominatorAccount: nominator, ControllerAccount: nominator, Stake: "500", Targets: []AccountID{id}},
		},
		ValidatorStake: ValidatorStake{
			DiscoveredAt:        &discovered,
			SlashCount:          1,
			ActiveEraCount:      10,
			InactiveEraCount:    2,
			TotalRewardPoints:   4200,
			UnclaimedEraIndices: []int64{2498, 2499},
			BlocksAuthored:      3,
			RewardPoints:        60,
			HeartbeatReceived:   true,
		},
		OneKV: &OneKVInfo{Rank: 12, Location: "Lisbon", BinaryVersion: "0.9.12", Validity: []string{"valid"}, IsEnrolled: true},
	}
}

// apply(prev, diff(prev, curr)) == curr must hold across every field
// of the snapshot, the same round-trip contract the network status
// diff carries.
func TestValidatorDetailsDiffApplyRoundTrip(t *testing.T) {
	prev := sampleValidatorDetails()

	curr := sampleValidatorDetails()
	var newController, newNominator AccountID
	newController[0], newNominator[0] = 0xdd, 0xee
	newDisplay := "validator one renamed"
	payee := newController
	curr.Account.Identity.Display = &newDisplay
	curr.ControllerAccountID = newController
	curr.IsActive = false
	curr.SessionKeys = []byte{0x05, 0x06}
	curr.NextSessionKeys = []byte{0x07, 0x08}
	curr.ActiveNextSession = false
	curr.RewardDestination = RewardDestination{Kind: RewardDestinationAccount, Account: &payee}
	curr.Preferences = ValidatorPreferences{CommissionPerBillion: 20_000_000, BlocksNominations: true}
	curr.SelfStake = "2000"
	curr.Oversubscribed = true
	curr.Slashed = true
	curr.Nominations = append(curr.Nominations,
		Nomination{NominatorAccount: newNominator, ControllerAccount: newNominator, Stake: "700", Targets: []AccountID{curr.Account.ID}})
	curr.ValidatorStake.BlocksAuthored = 4
	curr.ValidatorStake.RewardPoints = 80
	curr.ValidatorStake.UnclaimedEraIndices = []int64{2499, 2500}
	curr.OneKV = &OneKVInfo{Rank: 9, Location: "Porto", BinaryVersion: "0.9.13", Validity: []string{"valid"}, IsEnrolled: true}

	d := DiffValidatorDetails(prev, curr)
	require.False(t, d.IsEmpty())
	applied := d.Apply(prev)
	require.Equal(t, curr, applied)
}

// Counters that move almost every block (authorship, reward points)
// must surface in the diff so an update message reflects what actually
// changed.
func TestValidatorDetailsDiffCapturesStakeCounters(t *testing.T) {
	prev := sampleValidatorDetails()
	curr := sampleValidatorDetails()
	curr.ValidatorStake.BlocksAuthored++
	curr.ValidatorStake.RewardPoints += 20

	d := DiffValidatorDetails(prev, curr)
	require.False(t, d.IsEmpty())
	require.NotNil(t, d.ValidatorStake)
	require.Equal(t, curr.ValidatorStake, *d.ValidatorStake)
	require.Nil(t, d.Nominations)
	require.Equal(t, curr, d.Apply(prev))
}

func TestValidatorDetailsDiffApplyDoesNotMutatePrev(t *testing.T) {
	prev := sampleValidatorDetails()
	curr := sampleValidatorDetails()
	curr.SelfStake = "9999"

	snapshot := sampleValidatorDetails()
	_ = DiffValidatorDetails(prev, curr).Apply(prev)
	require.Equal(t, snapshot, prev)
}

func TestValidatorDetailsDiffActivityFlip(t *testing.T) {
	prev := &ValidatorDetails{IsActive: false, SelfStake: "10"}
	curr := &ValidatorDetails{IsActive: true, SelfStake: "10"}
	d := DiffValidatorDetails(prev, curr)
	require.NotNil(t, d.IsActive)
	require.True(t, *d.IsActive)
	require.Nil(t, d.SelfStake)
}
