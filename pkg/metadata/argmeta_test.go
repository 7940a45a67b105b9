package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgumentMetaRoundTrip(t *testing.T) {
	// Type strings as they appear in recorded v12/v13 runtimes.
	inputs := []string{
		"AccountId",
		"Balance",
		"bool",
		"Vec<AccountId>",
		"Vec<Vec<u8>>",
		"Option<Balance>",
		"Option<Vec<AccountId>>",
		"(AccountId, Balance)",
		"(EraIndex, SessionIndex, AccountId)",
		"Vec<(AccountId, Balance)>",
		"Vec<(IdentificationTuple, OpaqueTimeSlot)>",
		"Option<(AccountId, Vec<u8>)>",
	}
	for _, input := range inputs {
		parsed, err := ParseArgumentMeta(input)
		require.NoError(t, err, input)
		reparsed, err := ParseArgumentMeta(parsed.String())
		require.NoError(t, err, input)
		require.Equal(t, parsed, reparsed, input)
	}
}

func TestParseArgumentMetaShapes(t *testing.T) {
	vec, err := ParseArgumentMeta("Vec<(AccountId, Balance)>")
	require.NoError(t, err)
	require.Equal(t, ArgumentMetaVec, vec.Kind)
	require.Equal(t, ArgumentMetaTuple, vec.Elem.Kind)
	require.Len(t, vec.Elem.Tuple, 2)
	require.Equal(t, "AccountId", vec.Elem.Tuple[0].Primitive)
	require.Equal(t, "Balance", vec.Elem.Tuple[1].Primitive)

	opt, err := ParseArgumentMeta("Option<Vec<u8>>")
	require.NoError(t, err)
	require.Equal(t, ArgumentMetaOption, opt.Kind)
	require.Equal(t, ArgumentMetaVec, opt.Elem.Kind)
	require.Equal(t, "u8", opt.Elem.Elem.Primitive)
}

func TestParseArgumentMetaRejectsUnterminatedWrappers(t *testing.T) {
	for _, input := range []string{"Vec<AccountId", "Option<Balance", "(AccountId, Balance"} {
		_, err := ParseArgumentMeta(input)
		require.Error(t, err, input)
	}
}

func TestArgumentMetaStringNestedTuple(t *testing.T) {
	m, err := ParseArgumentMeta("Vec<(AccountId, Vec<(u32, bool)>)>")
	require.NoError(t, err)
	require.Equal(t, "Vec<(AccountId, Vec<(u32, bool)>)>", m.String())
}
