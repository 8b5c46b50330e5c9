package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/redis/go-redis/v9"
)

const (
	batchKeyPrefix = "shopsync:batch:"
	batchTTL       = 7 * 24 * time.Hour
)

type batchHash struct {
	Kind      string `redis:"kind"`
	ShopID    int64  `redis:"shop_id"`
	JobLogID  int64  `redis:"joblog_id"`
	Total     int    `redis:"total"`
	Pending   int    `redis:"pending"`
	Failed    int    `redis:"failed"`
	Cancelled bool   `redis:"cancelled"`
}

func (h batchHash) toBatch(id string) *Batch {
	return &Batch{
		ID:        id,
		Kind:      h.Kind,
		ShopID:    h.ShopID,
		JobLogID:  h.JobLogID,
		Total:     h.Total,
		Pending:   h.Pending,
		Failed:    h.Failed,
		Cancelled: h.Cancelled,
	}
}

// RedisBatchStore keeps one hash per batch so that every worker process sees the same
// counters.
type RedisBatchStore struct {
	rdb redis.UniversalClient
}

func NewRedisBatchStore(rdb redis.UniversalClient) *RedisBatchStore {
	return &RedisBatchStore{rdb: rdb}
}

func batchKey(id string) string {
	return batchKeyPrefix + id
}

func (s *RedisBatchStore) Create(ctx context.Context, b *Batch) error {
	key := batchKey(b.ID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"kind", b.Kind,
			"shop_id", b.ShopID,
			"joblog_id", b.JobLogID,
			"total", b.Total,
			"pending", b.Pending,
			"failed", b.Failed,
			"cancelled", b.Cancelled,
		)
		pipe.Expire(ctx, key, batchTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create batch %s: %w", b.ID, err)
	}
	return nil
}

func (s *RedisBatchStore) Get(ctx context.Context, id string) (*Batch, error) {
	res := s.rdb.HGetAll(ctx, batchKey(id))
	if err := res.Err(); err != nil {
		return nil, err
	}
	if len(res.Val()) == 0 {
		return nil, nil
	}
	var h batchHash
	if err := res.Scan(&h); err != nil {
		return nil, err
	}
	return h.toBatch(id), nil
}

func (s *RedisBatchStore) exists(ctx context.Context, key string) error {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("batch %s: %w", key[len(batchKeyPrefix):], apperr.ErrNotFound)
	}
	return nil
}

func (s *RedisBatchStore) AddJobs(ctx context.Context, id string, n int) error {
	key := batchKey(id)
	if err := s.exists(ctx, key); err != nil {
		return err
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "total", int64(n))
		pipe.HIncrBy(ctx, key, "pending", int64(n))
		return nil
	})
	return err
}

// mutate applies the increments and reads the hash back inside one MULTI/EXEC.
func (s *RedisBatchStore) mutate(ctx context.Context, id string, incr map[string]int64) (*Batch, error) {
	key := batchKey(id)
	if err := s.exists(ctx, key); err != nil {
		return nil, err
	}
	var all *redis.MapStringStringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for field, n := range incr {
			pipe.HIncrBy(ctx, key, field, n)
		}
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	var h batchHash
	if err := all.Scan(&h); err != nil {
		return nil, err
	}
	return h.toBatch(id), nil
}

func (s *RedisBatchStore) JobSucceeded(ctx context.Context, id string) (*Batch, error) {
	return s.mutate(ctx, id, map[string]int64{"pending": -1})
}

func (s *RedisBatchStore) JobFailed(ctx context.Context, id string) (*Batch, error) {
	return s.mutate(ctx, id, map[string]int64{"pending": -1, "failed": 1})
}

func (s *RedisBatchStore) Cancel(ctx context.Context, id string) error {
	key := batchKey(id)
	if err := s.exists(ctx, key); err != nil {
		return err
	}
	return s.rdb.HSet(ctx, key, "cancelled", true).Err()
}

func (s *RedisBatchStore) Cancelled(ctx context.Context, id string) (bool, error) {
	v, err := s.rdb.HGet(ctx, batchKey(id), "cancelled").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}
