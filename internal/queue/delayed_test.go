package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingDispatcher struct {
	before func()
}

func (f failingDispatcher) Dispatch(context.Context, ...*queue.Job) error {
	if f.before != nil {
		f.before()
	}
	return errors.New("broker down")
}

func TestRedisDelayer_PumpsOnlyDueJobs(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	broker := queue.NewMemoryBroker()
	delayer := queue.NewRedisDelayer(rdb, broker, logger.NewNop())

	now := time.Now()
	due, err := queue.NewJob(queue.TypeBatchGenerate, 1, map[string]int{"n": 1})
	require.NoError(t, err)
	due.AvailableAt = now.Add(-time.Second)
	later, err := queue.NewJob(queue.TypeBatchGenerate, 1, map[string]int{"n": 2})
	require.NoError(t, err)
	later.AvailableAt = now.Add(time.Minute)

	require.NoError(t, delayer.Schedule(ctx, due))
	require.NoError(t, delayer.Schedule(ctx, later))

	n, err := delayer.PumpDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	jobs := broker.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, due.ID, jobs[0].ID)
	assert.JSONEq(t, `{"n":1}`, string(jobs[0].Payload))

	// a second pump at the same instant finds nothing new
	n, err = delayer.PumpDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = delayer.PumpDue(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, broker.Len())
}

func TestRedisDelayer_FailedDispatchReparksJob(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	delayer := queue.NewRedisDelayer(rdb, failingDispatcher{}, logger.NewNop())

	now := time.Now()
	job, err := queue.NewJob(queue.TypeVariantPush, 1, map[string]int{"n": 1})
	require.NoError(t, err)
	job.AvailableAt = now.Add(-time.Second)
	require.NoError(t, delayer.Schedule(ctx, job))

	n, err := delayer.PumpDue(ctx, now)
	require.Error(t, err)
	assert.Zero(t, n)

	members, err := mr.ZMembers("shopsync:queue:delayed")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Contains(t, members[0], job.ID)
}

func TestRedisDelayer_LogsLostJobWhenReparkFails(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	core, logs := observer.New(zap.ErrorLevel)
	// redis goes away between the pop and the re-park
	delayer := queue.NewRedisDelayer(rdb, failingDispatcher{before: mr.Close}, logger.NewFromZap(zap.New(core)))

	now := time.Now()
	job, err := queue.NewJob(queue.TypeVariantPush, 1, map[string]int{"n": 1})
	require.NoError(t, err)
	job.AvailableAt = now.Add(-time.Second)
	require.NoError(t, delayer.Schedule(ctx, job))

	_, err = delayer.PumpDue(ctx, now)
	require.Error(t, err)

	lost := logs.FilterMessage("Failed to re-park delayed job, job is lost").All()
	require.Len(t, lost, 1)
	assert.Equal(t, job.ID, lost[0].ContextMap()["job_id"])
	assert.Equal(t, queue.TypeVariantPush, lost[0].ContextMap()["job_type"])
}

func TestRetryPolicy(t *testing.T) {
	p := queue.DefaultRetryPolicy()
	assert.Equal(t, 10*time.Second, p.Delay(1))
	assert.Equal(t, 30*time.Second, p.Delay(2))
	assert.Equal(t, 120*time.Second, p.Delay(4))
	assert.Equal(t, 300*time.Second, p.Delay(9))
	assert.False(t, p.Exhausted(4))
	assert.True(t, p.Exhausted(5))
}
