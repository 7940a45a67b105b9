package notificationgen

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// testGenerator builds a Generator with the inspection and cursor
// persistence replaced by in-memory doubles, so the cursor-advance
// semantics can be exercised without a relational store.
func testGenerator(cursor uint64, inspect func(ctx context.Context, blockNumber uint64) error) (*Generator, *[]uint64) {
	persisted := &[]uint64{}
	g := &Generator{
		logger:      log.New(os.Stderr, "[NotificationGenerator] ", log.LstdFlags),
		cursor:      cursor,
		cursorKnown: true,
	}
	g.inspect = inspect
	g.persistCursor = func(_ context.Context, blockNumber uint64) error {
		*persisted = append(*persisted, blockNumber)
		return nil
	}
	return g, persisted
}

func TestCursorAdvancesThroughCatchUpRange(t *testing.T) {
	var inspected []uint64
	g, persisted := testGenerator(100, func(_ context.Context, n uint64) error {
		inspected = append(inspected, n)
		return nil
	})

	require.NoError(t, g.OnBlockProcessed(context.Background(), 105))

	require.Equal(t, []uint64{101, 102, 103, 104, 105}, inspected)
	require.Equal(t, []uint64{101, 102, 103, 104, 105}, *persisted)
	cursor, known := g.Cursor()
	require.True(t, known)
	require.Equal(t, uint64(105), cursor)
}

// A failing block stops the range: the cursor stays just before it and
// later blocks in the range are never inspected.
func TestCursorStopsAtFirstFailingBlock(t *testing.T) {
	var inspected []uint64
	boom := errors.New("inspector exploded")
	g, persisted := testGenerator(100, func(_ context.Context, n uint64) error {
		if n == 104 {
			return boom
		}
		inspected = append(inspected, n)
		return nil
	})

	err := g.OnBlockProcessed(context.Background(), 105)
	require.ErrorIs(t, err, boom)

	require.Equal(t, []uint64{101, 102, 103}, inspected)
	require.Equal(t, []uint64{101, 102, 103}, *persisted)
	cursor, _ := g.Cursor()
	require.Equal(t, uint64(103), cursor)
}

// The next notification retries from where the cursor stopped.
func TestNextNotificationRetriesFailedBlock(t *testing.T) {
	failOnce := true
	var inspected []uint64
	g, _ := testGenerator(103, func(_ context.Context, n uint64) error {
		if n == 104 && failOnce {
			failOnce = false
			return errors.New("transient")
		}
		inspected = append(inspected, n)
		return nil
	})

	require.Error(t, g.OnBlockProcessed(context.Background(), 105))
	require.NoError(t, g.OnBlockProcessed(context.Background(), 106))

	require.Equal(t, []uint64{104, 105, 106}, inspected)
	cursor, _ := g.Cursor()
	require.Equal(t, uint64(106), cursor)
}

func TestStaleNotificationIsANoOp(t *testing.T) {
	g, persisted := testGenerator(200, func(_ context.Context, n uint64) error {
		t.Fatalf("unexpected inspection of block %d", n)
		return nil
	})
	require.NoError(t, g.OnBlockProcessed(context.Background(), 150))
	require.Empty(t, *persisted)
	cursor, _ := g.Cursor()
	require.Equal(t, uint64(200), cursor)
}
