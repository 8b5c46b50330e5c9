package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	delayedKey       = "shopsync:queue:delayed"
	delayedPumpBatch = 100
)

// RedisDelayer parks retried jobs in a sorted set scored by due time and pumps them back
// into the dispatcher once due.
type RedisDelayer struct {
	rdb        redis.UniversalClient
	dispatcher Dispatcher
	interval   time.Duration
	logger     logger.ZapLogger
}

func NewRedisDelayer(rdb redis.UniversalClient, dispatcher Dispatcher, log logger.ZapLogger) *RedisDelayer {
	return &RedisDelayer{
		rdb:        rdb,
		dispatcher: dispatcher,
		interval:   time.Second,
		logger:     log,
	}
}

func (d *RedisDelayer) Schedule(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(job.AvailableAt.UnixMilli()),
		Member: data,
	}).Err()
}

func (d *RedisDelayer) Run(ctx context.Context) {
	d.logger.Info("Starting delayed job pump")
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Stopping delayed job pump")
			return
		case now := <-ticker.C:
			if _, err := d.PumpDue(ctx, now); err != nil && ctx.Err() == nil {
				d.logger.Error("Failed to pump delayed jobs", zap.Error(err))
			}
		}
	}
}

// PumpDue dispatches the jobs due at now. A member is only dispatched by the pump that
// managed to remove it, so several pumps can share one set.
func (d *RedisDelayer) PumpDue(ctx context.Context, now time.Time) (int, error) {
	members, err := d.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: delayedPumpBatch,
	}).Result()
	if err != nil {
		return 0, err
	}

	pumped := 0
	for _, member := range members {
		removed, err := d.rdb.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return pumped, err
		}
		if removed == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			d.logger.Error("Dropping undecodable delayed job", zap.Error(err))
			continue
		}
		if err := d.dispatcher.Dispatch(ctx, &job); err != nil {
			// put it back so the next tick retries the publish
			if zerr := d.rdb.ZAdd(ctx, delayedKey, redis.Z{Score: float64(now.UnixMilli()), Member: member}).Err(); zerr != nil {
				d.logger.Error("Failed to re-park delayed job, job is lost",
					zap.String("job_id", job.ID), zap.String("job_type", job.Type), zap.Error(zerr))
			}
			return pumped, fmt.Errorf("dispatch delayed job %s: %w", job.ID, err)
		}
		pumped++
	}
	return pumped, nil
}
