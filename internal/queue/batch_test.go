package queue_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func batchStores(t *testing.T) map[string]queue.BatchStore {
	_, rdb := newRedis(t)
	return map[string]queue.BatchStore{
		"memory": queue.NewMemoryBatchStore(),
		"redis":  queue.NewRedisBatchStore(rdb),
	}
}

func TestBatchStore_Counters(t *testing.T) {
	for name, store := range batchStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, &queue.Batch{ID: "b1", Kind: "sku", ShopID: 7, JobLogID: 42}))
			require.NoError(t, store.AddJobs(ctx, "b1", 3))

			b, err := store.JobSucceeded(ctx, "b1")
			require.NoError(t, err)
			assert.Equal(t, 2, b.Pending)
			assert.Equal(t, 0, b.Failed)

			b, err = store.JobFailed(ctx, "b1")
			require.NoError(t, err)
			assert.Equal(t, 1, b.Pending)
			assert.Equal(t, 1, b.Failed)
			assert.False(t, b.Finished())

			b, err = store.JobSucceeded(ctx, "b1")
			require.NoError(t, err)
			assert.True(t, b.Finished())

			got, err := store.Get(ctx, "b1")
			require.NoError(t, err)
			assert.Equal(t, &queue.Batch{ID: "b1", Kind: "sku", ShopID: 7, JobLogID: 42, Total: 3, Pending: 0, Failed: 1}, got)
		})
	}
}

func TestBatchStore_Cancel(t *testing.T) {
	for name, store := range batchStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, &queue.Batch{ID: "b2", Kind: "barcode"}))

			cancelled, err := store.Cancelled(ctx, "b2")
			require.NoError(t, err)
			assert.False(t, cancelled)

			require.NoError(t, store.Cancel(ctx, "b2"))
			cancelled, err = store.Cancelled(ctx, "b2")
			require.NoError(t, err)
			assert.True(t, cancelled)

			assert.ErrorIs(t, store.Cancel(ctx, "missing"), apperr.ErrNotFound)
			cancelled, err = store.Cancelled(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, cancelled)

			missing, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestBatchStore_ExactlyOneFinisher(t *testing.T) {
	const jobs = 50
	for name, store := range batchStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Create(ctx, &queue.Batch{ID: "b3", Kind: "sku"}))
			require.NoError(t, store.AddJobs(ctx, "b3", jobs))

			var finishers, firstFailures int32
			var wg sync.WaitGroup
			for i := 0; i < jobs; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					var (
						b   *queue.Batch
						err error
					)
					if i%5 == 0 {
						b, err = store.JobFailed(ctx, "b3")
						if err == nil && b.Failed == 1 {
							atomic.AddInt32(&firstFailures, 1)
						}
					} else {
						b, err = store.JobSucceeded(ctx, "b3")
					}
					if assert.NoError(t, err) && b.Finished() {
						atomic.AddInt32(&finishers, 1)
					}
				}(i)
			}
			wg.Wait()

			assert.Equal(t, int32(1), finishers)
			assert.Equal(t, int32(1), firstFailures)
			b, err := store.Get(ctx, "b3")
			require.NoError(t, err)
			assert.Equal(t, 10, b.Failed)
		})
	}
}
