package repository

import (
	"context"
	"time"

	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Put(ctx context.Context, s *model.Setting) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO settings (shop_id, namespace, setting_key, value, updated_at)
        VALUES (:shop_id, :namespace, :setting_key, :value, :updated_at)
        ON CONFLICT (shop_id, namespace, setting_key) DO UPDATE
        SET value = excluded.value,
            updated_at = excluded.updated_at
    `
	_, err := r.DB.NamedExecContext(ctx, query, s)
	return err
}

func (r *PGRepository) FindNamespace(ctx context.Context, shopID int64, namespace string) ([]model.Setting, error) {
	var settings []model.Setting
	query := r.DB.Rebind(`SELECT * FROM settings WHERE shop_id = ? AND namespace = ? ORDER BY setting_key`)
	if err := r.DB.SelectContext(ctx, &settings, query, shopID, namespace); err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *PGRepository) Delete(ctx context.Context, shopID int64, namespace, key string) error {
	query := r.DB.Rebind(`DELETE FROM settings WHERE shop_id = ? AND namespace = ? AND setting_key = ?`)
	_, err := r.DB.ExecContext(ctx, query, shopID, namespace, key)
	return err
}
