package networkstatus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/substrate"
)

func stakersFrom(totals ...string) *substrate.EraStakers {
	s := &substrate.EraStakers{}
	for _, total := range totals {
		s.Stakers = append(s.Stakers, substrate.EraValidatorStake{TotalStake: total})
	}
	return s
}

func TestFillStakeAggregatesOddCount(t *testing.T) {
	status := &substrate.NetworkStatus{}
	fillStakeAggregates(status, stakersFrom("300", "100", "200"))

	require.Equal(t, "600", status.ActiveEraTotalStake)
	require.Equal(t, "100", status.ActiveEraMinStake)
	require.Equal(t, "300", status.ActiveEraMaxStake)
	require.Equal(t, "200", status.ActiveEraAverageStake)
	require.Equal(t, "200", status.ActiveEraMedianStake)
}

func TestFillStakeAggregatesEvenCount(t *testing.T) {
	status := &substrate.NetworkStatus{}
	fillStakeAggregates(status, stakersFrom("100", "200", "300", "400"))

	require.Equal(t, "1000", status.ActiveEraTotalStake)
	require.Equal(t, "250", status.ActiveEraAverageStake)
	require.Equal(t, "250", status.ActiveEraMedianStake)
}

// Balance aggregates must survive values beyond 64 bits.
func TestFillStakeAggregatesU128(t *testing.T) {
	big1 := "340282366920938463463374607431768211455" // 2^128 - 1
	status := &substrate.NetworkStatus{}
	fillStakeAggregates(status, stakersFrom(big1, big1))

	require.Equal(t, "680564733841876926926749214863536422910", status.ActiveEraTotalStake)
	require.Equal(t, big1, status.ActiveEraAverageStake)
	require.Equal(t, big1, status.ActiveEraMedianStake)
}

func TestFillStakeAggregatesEmpty(t *testing.T) {
	status := &substrate.NetworkStatus{}
	fillStakeAggregates(status, stakersFrom())
	require.Equal(t, "0", status.ActiveEraTotalStake)
	require.Equal(t, "0", status.ActiveEraMedianStake)
}
