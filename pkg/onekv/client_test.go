package onekv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const candidatesFixture = `[
  {
    "stash": "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
    "rank": 17,
    "location": "Lisbon",
    "version": "0.9.12",
    "valid": true,
    "validity": [
      {"valid": true, "type": "ONLINE", "details": ""},
      {"valid": true, "type": "VALIDATE_INTENTION", "details": ""},
      {"valid": false, "type": "CLIENT_UPGRADE", "details": "needs 0.9.13"}
    ]
  },
  {
    "stash": "not-a-valid-address",
    "rank": 1,
    "location": "nowhere",
    "version": "0.0.0",
    "valid": false,
    "validity": []
  }
]`

func TestCandidatesFetchAndMapping(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/candidates", r.URL.Path)
		hits.Add(1)
		_, _ = w.Write([]byte(candidatesFixture))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, time.Hour, nil)
	candidates, err := client.Candidates(context.Background())
	require.NoError(t, err)

	alice, err := decodeSS58AccountID(aliceSS58)
	require.NoError(t, err)
	info := candidates[alice]
	require.NotNil(t, info)
	require.Equal(t, 17, info.Rank)
	require.Equal(t, "Lisbon", info.Location)
	require.Equal(t, "0.9.12", info.BinaryVersion)
	require.ElementsMatch(t, []string{"ONLINE", "VALIDATE_INTENTION"}, info.Validity)
	require.True(t, info.IsEnrolled)

	// The malformed stash was skipped, not fatal.
	require.Len(t, candidates, 1)

	// Within the refresh interval the cache is served, not the
	// endpoint.
	_, err = client.Candidates(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())
}

func TestCandidatesServesStaleCacheOnRefreshFailure(t *testing.T) {
	failing := atomic.Bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(candidatesFixture))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, 0, nil)
	first, err := client.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	failing.Store(true)
	stale, err := client.Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, stale, 1)
}
