package chain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subvt-network/subvt/pkg/substrate"
)

// The nomination order inside a snapshot must be reproducible across
// materializer runs, whatever order the storage scan yielded them in,
// so downstream fingerprints do not see spurious changes.
func TestSortNominationsDeterministicAcrossInputOrders(t *testing.T) {
	base := make([]substrate.Nomination, 50)
	for i := range base {
		base[i].NominatorAccount[0] = byte(i)
		base[i].NominatorAccount[31] = byte(i * 7)
	}

	reference := append([]substrate.Nomination(nil), base...)
	sortNominationsDeterministically(reference)

	rng := rand.New(rand.NewSource(1))
	for run := 0; run < 5; run++ {
		shuffled := append([]substrate.Nomination(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		sortNominationsDeterministically(shuffled)
		require.Equal(t, reference, shuffled)
	}
}
