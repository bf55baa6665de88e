// Package store wraps the shared coordination store: an ordered-key KV
// store with atomic hashes, lists, sets, sorted sets, compare-and-set of
// string keys with TTL, and topic-based publish/subscribe (§3, §5). The
// concrete backend is Redis, following the teacher's own choice of
// go-redis for exactly this role in manager.go and state.go.
package store

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Store is a thin, context-carrying wrapper around a redis client. Every
// method corresponds to one of the coordination primitives §5 names as the
// concurrency substrate; nothing here encodes role-specific policy.
type Store struct {
	Client *redis.Client
	log    zerolog.Logger
}

// New dials the coordination store.
func New(addr, password string, db int, log zerolog.Logger) *Store {
	return &Store{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		log: log,
	}
}

// Ping verifies connectivity, used by role binaries at startup so a bad
// coordination-store address fails fast rather than thrashing in a loop.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.Client.Close()
}

// --- Hash (record) primitives -------------------------------------------

// HSetFields writes a hash record with the given fields in one round trip
// and refreshes its TTL, modelling the "small records (hashes of short
// string fields), TTL refreshed on each write" rule of §3.
func (s *Store) HSetFields(ctx context.Context, key string, fields map[string]interface{}, ttl time.Duration) error {
	pipe := s.Client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// HGetAllMap reads an entire hash record. A missing key returns an empty,
// non-nil map so callers can treat "absent" and "empty" uniformly.
func (s *Store) HGetAllMap(ctx context.Context, key string) (map[string]string, error) {
	return s.Client.HGetAll(ctx, key).Result()
}

// HSetField writes a single field and refreshes the record's TTL.
func (s *Store) HSetField(ctx context.Context, key, field, value string, ttl time.Duration) error {
	pipe := s.Client.TxPipeline()
	pipe.HSet(ctx, key, field, value)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes one or more keys outright.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.Client.Del(ctx, keys...).Err()
}

// Exists reports whether a key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.Client.Exists(ctx, key).Result()
	return n > 0, err
}

// --- Ready-queue (list) primitives --------------------------------------

// PushTail appends IDs to the tail of the ready queue.
func (s *Store) PushTail(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return s.Client.RPush(ctx, key, args...).Err()
}

// PopHead pops up to count values from the head of the list, returning
// fewer if the list is shorter. An empty, non-error result means the list
// was empty.
func (s *Store) PopHead(ctx context.Context, key string, count int64) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	res, err := s.Client.LPopCount(ctx, key, int(count)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return res, err
}

// Len returns the current list length.
func (s *Store) Len(ctx context.Context, key string) (int64, error) {
	return s.Client.LLen(ctx, key).Result()
}

// Snapshot returns the full contents of a list without mutating it, used
// by the reaper's queue-hygiene pass.
func (s *Store) Snapshot(ctx context.Context, key string) ([]string, error) {
	return s.Client.LRange(ctx, key, 0, -1).Result()
}

// RemoveValue deletes every occurrence of value from the list by value
// rather than position, as §4.4 requires ("value-based list delete to
// avoid positional drift").
func (s *Store) RemoveValue(ctx context.Context, key, value string) error {
	return s.Client.LRem(ctx, key, 0, value).Err()
}

// --- Sorted-set (availability index) primitives -------------------------

// ZUpsert sets member's score outright (used after the session runner
// recomputes available_slots from scratch).
func (s *Store) ZUpsert(ctx context.Context, key, member string, score float64) error {
	return s.Client.ZAdd(ctx, key, &redis.Z{Score: score, Member: member}).Err()
}

// ZRemove drops a member from the sorted set.
func (s *Store) ZRemove(ctx context.Context, key, member string) error {
	return s.Client.ZRem(ctx, key, member).Err()
}

// ZHighestScore returns the member(s) with the greatest score, descending,
// capped at limit. Used by the matchmaker to find the session with the
// most free slots.
func (s *Store) ZHighestScore(ctx context.Context, key string, limit int64) ([]redis.Z, error) {
	return s.Client.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
}

// ZIncr adjusts member's score by delta and returns the new score. Used for
// the slot-reservation decrement/release dance.
func (s *Store) ZIncr(ctx context.Context, key, member string, delta float64) (float64, error) {
	return s.Client.ZIncrBy(ctx, key, delta, member).Result()
}

// ZScore reads a single member's score.
func (s *Store) ZScore(ctx context.Context, key, member string) (float64, error) {
	return s.Client.ZScore(ctx, key, member).Result()
}

// ZAll returns every member and score, used by capacity-provider
// reconciliation to rebuild the index from computed truth.
func (s *Store) ZAll(ctx context.Context, key string) ([]redis.Z, error) {
	return s.Client.ZRangeWithScores(ctx, key, 0, -1).Result()
}

// --- Set primitives -------------------------------------------------------

func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.Client.SAdd(ctx, key, args...).Err()
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.Client.SMembers(ctx, key).Result()
}

// --- Locks -----------------------------------------------------------------

// AcquireLock attempts a SETNX-with-TTL; true means the caller now owns the
// lock. Per the design notes, locks are never explicitly released — they
// expire, which is what makes a crash mid-critical-section safe.
func (s *Store) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.Client.SetNX(ctx, key, "1", ttl).Result()
}

// --- Pub/Sub ---------------------------------------------------------------

// Publish fans a payload out on topic, the coordination store's own
// publish/subscribe primitive (§3, §5: "Publish happens after the write
// group it describes").
func (s *Store) Publish(ctx context.Context, topic string, payload []byte) error {
	return s.Client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a subscription to one or more topics.
func (s *Store) Subscribe(ctx context.Context, topics ...string) *redis.PubSub {
	return s.Client.Subscribe(ctx, topics...)
}

// Scanner incrementally walks keys matching pattern, used by the reaper's
// player-hygiene pass ("Scan player:* incrementally").
type Scanner struct {
	client  *redis.Client
	pattern string
	cursor  uint64
	done    bool
}

func (s *Store) NewScanner(pattern string) *Scanner {
	return &Scanner{client: s.Client, pattern: pattern}
}

// Next returns the next batch of matching keys. ok is false once the scan
// has fully cycled.
func (sc *Scanner) Next(ctx context.Context) (keys []string, ok bool, err error) {
	if sc.done {
		return nil, false, nil
	}
	keys, cursor, err := sc.client.Scan(ctx, sc.cursor, sc.pattern, 200).Result()
	if err != nil {
		return nil, false, err
	}
	sc.cursor = cursor
	if cursor == 0 {
		sc.done = true
	}
	return keys, true, nil
}
