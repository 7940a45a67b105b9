package kvstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production Store backend: Redis supplies both the
// key/value surface and the pub/sub channels in a single dependency
// (see DESIGN.md).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials url (e.g. "redis://127.0.0.1:6379").
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("kvstore: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("kvstore: ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("kvstore: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) MSet(ctx context.Context, pairs map[string][]byte) error {
	if len(pairs) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(pairs)*2)
	for k, v := range pairs {
		args = append(args, k, v)
	}
	if err := s.client.MSet(ctx, args...).Err(); err != nil {
		return fmt.Errorf("kvstore: mset: %w", err)
	}
	return nil
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("kvstore: sadd %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("kvstore: smembers %s: %w", key, err)
	}
	return members, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("kvstore: del: %w", err)
	}
	return nil
}

func (s *RedisStore) DelByPrefix(ctx context.Context, prefix string) error {
	keys, err := s.scanKeys(ctx, prefix)
	if err != nil {
		return err
	}
	return s.Del(ctx, keys...)
}

func (s *RedisStore) scanKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kvstore: scan %s*: %w", prefix, err)
	}
	return keys, nil
}

func (s *RedisStore) Publish(ctx context.Context, channel, message string) error {
	if err := s.client.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("kvstore: publish %s: %w", channel, err)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	sub := s.client.Subscribe(ctx, channel)
	redisCh := sub.Channel()
	out := make(chan string, 100) // bounded; slow consumers drop events
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
					// Slow consumer: drop the event -- each event is a
					// hint to re-read from the store.
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) NewBatch() Batch {
	return &redisBatch{store: s, pipe: s.client.TxPipeline()}
}

type redisBatch struct {
	store *RedisStore
	pipe  redis.Pipeliner
}

func (b *redisBatch) Set(key string, value []byte) {
	b.pipe.Set(context.Background(), key, value, 0)
}

func (b *redisBatch) MSet(pairs map[string][]byte) {
	args := make([]interface{}, 0, len(pairs)*2)
	for k, v := range pairs {
		args = append(args, k, v)
	}
	if len(args) > 0 {
		b.pipe.MSet(context.Background(), args...)
	}
}

func (b *redisBatch) SAdd(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	b.pipe.SAdd(context.Background(), key, args...)
}

func (b *redisBatch) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	b.pipe.Del(context.Background(), keys...)
}

// DelByPrefix resolves matching keys with a SCAN up front (outside the
// pipeline, since Redis has no server-side "delete by pattern") and
// queues their deletion inside the batch.
func (b *redisBatch) DelByPrefix(ctx context.Context, prefix string) error {
	keys, err := b.store.scanKeys(ctx, prefix)
	if err != nil {
		return err
	}
	b.Del(keys...)
	return nil
}

func (b *redisBatch) Publish(channel, message string) {
	b.pipe.Publish(context.Background(), channel, message)
}

func (b *redisBatch) Exec(ctx context.Context) error {
	if _, err := b.pipe.Exec(ctx); err != nil {
		return fmt.Errorf("kvstore: exec batch: %w", err)
	}
	return nil
}
