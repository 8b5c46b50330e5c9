package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, j *model.JobLog) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	if j.Status == "" {
		j.Status = model.JobStatusPending
	}
	query := r.DB.Rebind(`
        INSERT INTO job_logs (shop_id, kind, batch_id, status, total_items, message, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `)
	return r.DB.GetContext(ctx, &j.ID, query, j.ShopID, j.Kind, j.BatchID, j.Status, j.TotalItems, j.Message, j.CreatedAt)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.JobLog, error) {
	var job model.JobLog
	err := r.DB.GetContext(ctx, &job, r.DB.Rebind(`SELECT * FROM job_logs WHERE id = ? LIMIT 1`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *PGRepository) FindByShop(ctx context.Context, shopID int64, limit int) ([]model.JobLog, error) {
	if limit <= 0 {
		limit = 20
	}
	query := r.DB.Rebind(fmt.Sprintf(`SELECT * FROM job_logs WHERE shop_id = ? ORDER BY id DESC LIMIT %d`, limit))
	var jobs []model.JobLog
	if err := r.DB.SelectContext(ctx, &jobs, query, shopID); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *PGRepository) SetBatchID(ctx context.Context, id int64, batchID string) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE job_logs SET batch_id = ? WHERE id = ?`), batchID, id)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

func (r *PGRepository) Start(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
        UPDATE job_logs SET status = ?, started_at = ?
        WHERE id = ? AND status = ?
    `), model.JobStatusRunning, time.Now().UTC(), id, model.JobStatusPending)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

func (r *PGRepository) Complete(ctx context.Context, id int64, message string) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
        UPDATE job_logs SET status = ?, message = ?, finished_at = ?
        WHERE id = ? AND status = ?
    `), model.JobStatusCompleted, message, time.Now().UTC(), id, model.JobStatusRunning)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

func (r *PGRepository) Fail(ctx context.Context, id int64, errMessage string) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
        UPDATE job_logs SET status = ?, error_message = ?, finished_at = ?
        WHERE id = ? AND status IN (?, ?)
    `), model.JobStatusFailed, errMessage, time.Now().UTC(), id, model.JobStatusPending, model.JobStatusRunning)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

// Increments happen in SQL so concurrent workers never lose an update.
func (r *PGRepository) IncrementProcessed(ctx context.Context, id int64, n int) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE job_logs SET processed_items = processed_items + ? WHERE id = ?`), n, id)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

func (r *PGRepository) IncrementFailed(ctx context.Context, id int64, n int) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE job_logs SET failed_items = failed_items + ? WHERE id = ?`), n, id)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

// requireRow turns a no-op UPDATE into ErrNotFound or ErrInvalidTransition.
func (r *PGRepository) requireRow(ctx context.Context, res sql.Result, id int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var status string
	err = r.DB.GetContext(ctx, &status, r.DB.Rebind(`SELECT status FROM job_logs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("job log %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("job log %d is %s: %w", id, status, apperr.ErrInvalidTransition)
}
