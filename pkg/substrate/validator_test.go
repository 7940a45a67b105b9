package substrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsOversubscribedBoundary(t *testing.T) {
	const maxRewarded = 512
	v := &ValidatorDetails{Nominations: make([]Nomination, maxRewarded)}
	require.False(t, v.IsOversubscribed(maxRewarded))

	v.Nominations = make([]Nomination, maxRewarded+1)
	require.True(t, v.IsOversubscribed(maxRewarded))
}

func TestSummaryOmitsNominationDetail(t *testing.T) {
	var id AccountID
	id[0] = 0xaa
	v := &ValidatorDetails{
		Account:           Account{ID: id},
		IsActive:          true,
		Oversubscribed:    true,
		Slashed:           false,
		ActiveNextSession: true,
		SelfStake:         "123456789",
		Preferences:       ValidatorPreferences{CommissionPerBillion: 30_000_000},
		Nominations:       make([]Nomination, 600),
	}
	s := v.Summary()
	require.Equal(t, id, s.AccountID)
	require.True(t, s.IsActive)
	require.True(t, s.Oversubscribed)
	require.True(t, s.ActiveNextSession)
	require.Equal(t, "123456789", s.SelfStake)
	require.Equal(t, uint32(30_000_000), s.CommissionPerBillion)

	// A nomination-only change must not move the summary, so
	// summary-hash subscribers are not churned by backer movements.
	v.Nominations = append(v.Nominations, Nomination{})
	require.Equal(t, s, v.Summary())
}

func TestParseAccountIDRoundTrip(t *testing.T) {
	var id AccountID
	for i := range id {
		id[i] = byte(i)
	}
	parsed, err := ParseAccountID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ParseAccountID("0x1234")
	require.Error(t, err)
	_, err = ParseAccountID("not-hex")
	require.Error(t, err)
}
