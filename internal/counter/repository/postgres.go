package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/counter"
	"github.com/fekuna/shopsync-service/internal/database"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB       *sqlx.DB
	lockWait time.Duration
}

func NewPGRepository(db *sqlx.DB, lockWait time.Duration) *PGRepository {
	if lockWait <= 0 {
		lockWait = 5 * time.Second
	}
	return &PGRepository{DB: db, lockWait: lockWait}
}

func (r *PGRepository) NextValue(ctx context.Context, key counter.Key, start int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()

	next, err := r.nextValue(ctx, key, start)
	if err != nil {
		if database.IsLockContention(err) {
			return 0, fmt.Errorf("counter %d/%s: %w: %v", key.ShopID, key.Scope, apperr.ErrResourceContention, err)
		}
		return 0, fmt.Errorf("counter %d/%s: %w", key.ShopID, key.Scope, err)
	}
	return next, nil
}

func (r *PGRepository) nextValue(ctx context.Context, key counter.Key, start int64) (int64, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	postgres := database.IsPostgres(r.DB)
	if postgres {
		// Bounded wait on the row lock; surfaces as 55P03.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockWait.Milliseconds())); err != nil {
			return 0, err
		}
	}

	now := time.Now().UTC()

	// 1. Seed the row so there is always something to lock.
	seed := r.DB.Rebind(`
        INSERT INTO counters (shop_id, scope, value, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (shop_id, scope) DO NOTHING
    `)
	if _, err := tx.ExecContext(ctx, seed, key.ShopID, key.Scope, start-1, now); err != nil {
		return 0, err
	}

	// 2. Lock and read. SQLite already holds the database write lock after the insert.
	lockQuery := `SELECT value FROM counters WHERE shop_id = ? AND scope = ?`
	if postgres {
		lockQuery += ` FOR UPDATE`
	}
	var current int64
	if err := tx.GetContext(ctx, &current, r.DB.Rebind(lockQuery), key.ShopID, key.Scope); err != nil {
		return 0, err
	}

	// 3. Increment and write back.
	next := current + 1
	update := r.DB.Rebind(`UPDATE counters SET value = ?, updated_at = ? WHERE shop_id = ? AND scope = ?`)
	if _, err := tx.ExecContext(ctx, update, next, now, key.ShopID, key.Scope); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *PGRepository) Current(ctx context.Context, key counter.Key) (int64, bool, error) {
	var value int64
	query := r.DB.Rebind(`SELECT value FROM counters WHERE shop_id = ? AND scope = ?`)
	err := r.DB.GetContext(ctx, &value, query, key.ShopID, key.Scope)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return value, true, nil
}
