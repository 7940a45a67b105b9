package blockprocessor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/substrate"
)

func TestFillEraStakeStats(t *testing.T) {
	var n1, n2, n3 substrate.AccountID
	n1[0], n2[0], n3[0] = 1, 2, 3
	stakers := &substrate.EraStakers{
		Stakers: []substrate.EraValidatorStake{
			{TotalStake: "100", NominatorStakes: []substrate.EraNominatorStake{{AccountID: n1, Stake: "60"}}},
			{TotalStake: "300", NominatorStakes: []substrate.EraNominatorStake{{AccountID: n1, Stake: "100"}, {AccountID: n2, Stake: "100"}}},
			{TotalStake: "200", NominatorStakes: []substrate.EraNominatorStake{{AccountID: n3, Stake: "50"}}},
		},
	}
	era := &substrate.Era{Index: 10}
	fillEraStakeStats(era, stakers)

	require.Equal(t, "600", era.TotalStake)
	require.Equal(t, "100", era.MinStake)
	require.Equal(t, "300", era.MaxStake)
	require.Equal(t, "200", era.AverageStake)
	require.Equal(t, "200", era.MedianStake)
	// n1 backs two validators but counts once.
	require.Equal(t, 3, era.ActiveNominatorCount)
}

func TestFillEraStakeStatsEmpty(t *testing.T) {
	era := &substrate.Era{Index: 1}
	fillEraStakeStats(era, &substrate.EraStakers{})
	require.Equal(t, "0", era.TotalStake)
	require.Equal(t, 0, era.ActiveNominatorCount)
}
