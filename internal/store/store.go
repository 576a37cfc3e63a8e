package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entity kinds carried through the offline queue.
const (
	KindNote      = "note"
	KindFlashcard = "flashcard"
	KindProgress  = "progress"
)

var (
	// ErrNotFound means neither the remote store nor the local cache has
	// the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrMalformedRecord marks a locally stored record that no longer
	// parses. Callers treat the single item as unavailable; it never fails
	// a whole sync or list pass.
	ErrMalformedRecord = errors.New("malformed stored record")
)

// PendingWrite is one queued offline write. Payload holds the full entity
// JSON; replaying it is an idempotent upsert keyed by the entity id.
type PendingWrite struct {
	Kind     string          `json:"kind"`
	UserID   string          `json:"user_id"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queued_at"`
}

// Queue is the durable write-ahead list of offline writes. Append and the
// snapshot-and-clear drain may run concurrently without losing entries.
type Queue interface {
	Append(ctx context.Context, w PendingWrite) error
	// Snapshot atomically takes and clears the current queue contents.
	// Entries that fail to replay are handed back via Requeue.
	Snapshot(ctx context.Context) ([]PendingWrite, error)
	Requeue(ctx context.Context, writes []PendingWrite) error
	Len(ctx context.Context) (int64, error)
}

// Cache is the local read-fallback copy of remote entities, keyed by
// (kind, user) with atomic upsert-by-id.
type Cache interface {
	Put(ctx context.Context, kind, userID, id string, payload []byte) error
	Get(ctx context.Context, kind, userID, id string) ([]byte, error)
	GetAll(ctx context.Context, kind, userID string) (map[string][]byte, error)
	Delete(ctx context.Context, kind, userID, id string) error
}

const pendingKey = "sync:pending"

// RedisQueue implements Queue on a Redis list.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Append(ctx context.Context, w PendingWrite) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode pending write: %w", err)
	}
	return q.client.LPush(ctx, pendingKey, data).Err()
}

func (q *RedisQueue) Snapshot(ctx context.Context) ([]PendingWrite, error) {
	// Take and clear in one transaction so appends racing the drain land
	// either in this snapshot or in the next one, never nowhere.
	pipe := q.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, pendingKey, 0, -1)
	pipe.Del(ctx, pendingKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	raw := rangeCmd.Val()
	writes := make([]PendingWrite, 0, len(raw))
	for _, item := range raw {
		var w PendingWrite
		if err := json.Unmarshal([]byte(item), &w); err != nil {
			// Skip, do not abort: one corrupt entry must not wedge the queue.
			continue
		}
		writes = append(writes, w)
	}
	return writes, nil
}

func (q *RedisQueue) Requeue(ctx context.Context, writes []PendingWrite) error {
	if len(writes) == 0 {
		return nil
	}
	pipe := q.client.Pipeline()
	for _, w := range writes {
		data, err := json.Marshal(w)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, pendingKey, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, pendingKey).Result()
}

// RedisCache implements Cache on per-(kind,user) Redis hashes.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(kind, userID string) string {
	return fmt.Sprintf("cache:%s:%s", kind, userID)
}

func (c *RedisCache) Put(ctx context.Context, kind, userID, id string, payload []byte) error {
	return c.client.HSet(ctx, cacheKey(kind, userID), id, payload).Err()
}

func (c *RedisCache) Get(ctx context.Context, kind, userID, id string) ([]byte, error) {
	data, err := c.client.HGet(ctx, cacheKey(kind, userID), id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	return data, err
}

func (c *RedisCache) GetAll(ctx context.Context, kind, userID string) (map[string][]byte, error) {
	raw, err := c.client.HGetAll(ctx, cacheKey(kind, userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for id, payload := range raw {
		out[id] = []byte(payload)
	}
	return out, nil
}

func (c *RedisCache) Delete(ctx context.Context, kind, userID, id string) error {
	return c.client.HDel(ctx, cacheKey(kind, userID), id).Err()
}
