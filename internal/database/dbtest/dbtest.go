// Package dbtest opens a migrated in-memory SQLite database for repository tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/shopsync-service/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func New(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedShop inserts a shop row and returns its id.
func SeedShop(t *testing.T, db *sqlx.DB, domain string) int64 {
	t.Helper()
	var id int64
	err := db.Get(&id, `INSERT INTO shops (domain, access_token, installed_at) VALUES (?, ?, ?) RETURNING id`,
		domain, "shpat_test", time.Now().UTC())
	require.NoError(t, err)
	return id
}
