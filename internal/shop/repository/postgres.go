package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
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

func (r *PGRepository) Upsert(ctx context.Context, s *model.Shop) error {
	s.Domain = strings.ToLower(strings.TrimSpace(s.Domain))
	if s.InstalledAt.IsZero() {
		s.InstalledAt = time.Now().UTC()
	}
	query := r.DB.Rebind(`
        INSERT INTO shops (domain, access_token, installed_at)
        VALUES (?, ?, ?)
        ON CONFLICT (domain) DO UPDATE SET access_token = excluded.access_token
        RETURNING id
    `)
	return r.DB.QueryRowxContext(ctx, query, s.Domain, s.AccessToken, s.InstalledAt).Scan(&s.ID)
}

func (r *PGRepository) FindByDomain(ctx context.Context, domain string) (*model.Shop, error) {
	return r.findOne(ctx, `SELECT * FROM shops WHERE domain = ? LIMIT 1`, strings.ToLower(strings.TrimSpace(domain)))
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Shop, error) {
	return r.findOne(ctx, `SELECT * FROM shops WHERE id = ? LIMIT 1`, id)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Shop, error) {
	var shop model.Shop
	err := r.DB.GetContext(ctx, &shop, r.DB.Rebind(query), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}
