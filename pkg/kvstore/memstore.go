package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	dbm "github.com/cometbft/cometbft-db"
)

// MemStore is an in-process Store double used by unit tests and local
// development, built on cometbft-db's embedded key/value engine and
// generalized from a single-key KV to the richer Redis-style surface
// Store requires. Sets are modeled as a JSON-encoded string slice
// under the same key since cometbft-db has no native set type.
type MemStore struct {
	writeMu sync.Mutex // guards read-modify-write set ops and batch atomicity
	subsMu  sync.Mutex // guards the subs map
	db      dbm.DB
	subs    map[string][]chan string
}

// NewMemStore opens an in-memory cometbft-db MemDB as the backing
// store.
func NewMemStore() *MemStore {
	return &MemStore{
		db:   dbm.NewMemDB(),
		subs: make(map[string][]chan string),
	}
}

func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	v, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("kvstore: memstore get %s: %w", key, err)
	}
	return v, nil
}

func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	if err := s.db.Set([]byte(key), value); err != nil {
		return fmt.Errorf("kvstore: memstore set %s: %w", key, err)
	}
	return nil
}

func (s *MemStore) MSet(ctx context.Context, pairs map[string][]byte) error {
	for k, v := range pairs {
		if err := s.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.sAddLocked(key, members...)
}

// sAddLocked is SAdd's body for callers already holding writeMu
// (batch Exec runs its queued ops under the lock).
func (s *MemStore) sAddLocked(key string, members ...string) error {
	set := map[string]struct{}{}
	if raw, err := s.db.Get([]byte(key)); err == nil && raw != nil {
		var existing []string
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("kvstore: memstore decode set %s: %w", key, err)
		}
		for _, m := range existing {
			set[m] = struct{}{}
		}
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return s.writeSetLocked(key, set)
}

func (s *MemStore) writeSetLocked(key string, set map[string]struct{}) error {
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Strings(members)
	raw, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("kvstore: memstore encode set %s: %w", key, err)
	}
	if err := s.db.Set([]byte(key), raw); err != nil {
		return fmt.Errorf("kvstore: memstore set %s: %w", key, err)
	}
	return nil
}

func (s *MemStore) SMembers(_ context.Context, key string) ([]string, error) {
	raw, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("kvstore: memstore get set %s: %w", key, err)
	}
	if raw == nil {
		return nil, nil
	}
	var members []string
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("kvstore: memstore decode set %s: %w", key, err)
	}
	return members, nil
}

func (s *MemStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		if err := s.db.Delete([]byte(k)); err != nil {
			return fmt.Errorf("kvstore: memstore delete %s: %w", k, err)
		}
	}
	return nil
}

func (s *MemStore) DelByPrefix(_ context.Context, prefix string) error {
	keys, err := s.keysWithPrefix(prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.db.Delete([]byte(k)); err != nil {
			return fmt.Errorf("kvstore: memstore delete %s: %w", k, err)
		}
	}
	return nil
}

func (s *MemStore) keysWithPrefix(prefix string) ([]string, error) {
	iter, err := s.db.Iterator([]byte(prefix), nil)
	if err != nil {
		return nil, fmt.Errorf("kvstore: memstore iterate %s: %w", prefix, err)
	}
	defer iter.Close()
	var keys []string
	for ; iter.Valid(); iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, []byte(prefix)) {
			break
		}
		keys = append(keys, string(key))
	}
	return keys, iter.Error()
}

func (s *MemStore) Publish(_ context.Context, channel, message string) error {
	s.subsMu.Lock()
	subs := append([]chan string(nil), s.subs[channel]...)
	s.subsMu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- message:
		default:
			// Slow consumer: drop.
		}
	}
	return nil
}

func (s *MemStore) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	ch := make(chan string, 100)
	s.subsMu.Lock()
	s.subs[channel] = append(s.subs[channel], ch)
	s.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		subs := s.subs[channel]
		for i, c := range subs {
			if c == ch {
				s.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (s *MemStore) NewBatch() Batch {
	return &memBatch{store: s}
}

type memOp func(ctx context.Context, s *MemStore) error

type memBatch struct {
	store *MemStore
	ops   []memOp
}

func (b *memBatch) Set(key string, value []byte) {
	b.ops = append(b.ops, func(ctx context.Context, s *MemStore) error { return s.Set(ctx, key, value) })
}

func (b *memBatch) MSet(pairs map[string][]byte) {
	b.ops = append(b.ops, func(ctx context.Context, s *MemStore) error { return s.MSet(ctx, pairs) })
}

func (b *memBatch) SAdd(key string, members ...string) {
	b.ops = append(b.ops, func(_ context.Context, s *MemStore) error { return s.sAddLocked(key, members...) })
}

func (b *memBatch) Del(keys ...string) {
	b.ops = append(b.ops, func(ctx context.Context, s *MemStore) error { return s.Del(ctx, keys...) })
}

func (b *memBatch) DelByPrefix(_ context.Context, prefix string) error {
	b.ops = append(b.ops, func(ctx context.Context, s *MemStore) error { return s.DelByPrefix(ctx, prefix) })
	return nil
}

func (b *memBatch) Publish(channel, message string) {
	b.ops = append(b.ops, func(ctx context.Context, s *MemStore) error { return s.Publish(ctx, channel, message) })
}

// Exec applies every queued operation under a single lock, giving the
// same atomic-batch guarantee the Redis backend gets from TxPipeline.
func (b *memBatch) Exec(ctx context.Context) error {
	b.store.writeMu.Lock()
	defer b.store.writeMu.Unlock()
	for _, op := range b.ops {
		if err := op(ctx, b.store); err != nil {
			return err
		}
	}
	return nil
}
