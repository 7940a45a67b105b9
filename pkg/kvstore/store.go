// Package kvstore is the typed façade over the key/value store with
// pub/sub: it computes stable 64-bit fingerprints,
// writes validator snapshots, and publishes change notifications. Two
// backends implement the same Store interface -- redis.go (Redis,
// production) and memstore.go (an in-process double for tests).
package kvstore

import "context"

// Store is the minimal command surface the gateway needs: plain sets, atomic
// multi-key sets, set-of-strings membership (the active/inactive
// address sets), deletes, and pub/sub.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	MSet(ctx context.Context, pairs map[string][]byte) error
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	// DelByPrefix removes every key starting with prefix -- used to
	// clear the prior per-validator key set before a materializer run
	// writes the new one.
	DelByPrefix(ctx context.Context, prefix string) error
	Publish(ctx context.Context, channel string, message string) error
	// Subscribe returns a channel of messages published on channel.
	// Cancelling ctx unsubscribes and closes the returned channel.
	Subscribe(ctx context.Context, channel string) (<-chan string, error)

	// NewBatch starts a set of operations that Batch.Exec applies as a
	// single atomic unit: a subscriber that reads the
	// finalized_block_number publication must see a fully consistent
	// snapshot.
	NewBatch() Batch
}

// Batch accumulates writes for one atomic Exec. Calls are not applied
// until Exec runs.
type Batch interface {
	Set(key string, value []byte)
	MSet(pairs map[string][]byte)
	SAdd(key string, members ...string)
	Del(keys ...string)
	DelByPrefix(ctx context.Context, prefix string) error
	Publish(channel string, message string)
	Exec(ctx context.Context) error
}
