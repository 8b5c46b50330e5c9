package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// The schema is written once with placeholders for the column types that differ between
// Postgres and SQLite.
const schema = `
CREATE TABLE IF NOT EXISTS shops (
    id           {{pk}},
    domain       TEXT NOT NULL UNIQUE,
    access_token TEXT NOT NULL DEFAULT '',
    installed_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id           {{pk}},
    shop_id      BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
    external_id  BIGINT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    description  TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'active',
    vendor       TEXT NOT NULL DEFAULT '',
    product_type TEXT NOT NULL DEFAULT '',
    tags         {{json}} NOT NULL,
    images       {{json}} NOT NULL,
    created_at   TIMESTAMP NOT NULL,
    updated_at   TIMESTAMP NOT NULL,
    UNIQUE (shop_id, external_id)
);

CREATE TABLE IF NOT EXISTS variants (
    id                 {{pk}},
    shop_id            BIGINT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
    product_id         BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
    external_id        BIGINT NOT NULL UNIQUE,
    title              TEXT NOT NULL DEFAULT '',
    sku                TEXT,
    barcode            TEXT,
    barcode_format     TEXT,
    price              {{decimal}} NOT NULL,
    inventory_quantity INTEGER NOT NULL DEFAULT 0,
    option1            TEXT,
    option2            TEXT,
    option3            TEXT,
    image_src          TEXT,
    created_at         TIMESTAMP NOT NULL,
    updated_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_variants_shop_sku ON variants(shop_id, sku);
CREATE INDEX IF NOT EXISTS idx_variants_shop_barcode ON variants(shop_id, barcode);
CREATE INDEX IF NOT EXISTS idx_variants_product ON variants(product_id);

CREATE TABLE IF NOT EXISTS counters (
    shop_id    BIGINT NOT NULL,
    scope      TEXT NOT NULL,
    value      BIGINT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (shop_id, scope)
);

CREATE TABLE IF NOT EXISTS job_logs (
    id              {{pk}},
    shop_id         BIGINT NOT NULL,
    kind            TEXT NOT NULL,
    batch_id        TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    total_items     INTEGER NOT NULL DEFAULT 0,
    processed_items INTEGER NOT NULL DEFAULT 0,
    failed_items    INTEGER NOT NULL DEFAULT 0,
    message         TEXT NOT NULL DEFAULT '',
    error_message   TEXT NOT NULL DEFAULT '',
    started_at      TIMESTAMP,
    finished_at     TIMESTAMP,
    created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_logs_shop ON job_logs(shop_id, created_at);

CREATE TABLE IF NOT EXISTS settings (
    shop_id    BIGINT NOT NULL,
    namespace  TEXT NOT NULL,
    setting_key TEXT NOT NULL,
    value       TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (shop_id, namespace, setting_key)
);
`

// Barcode records are a read-only projection of variants: the variant row is the single
// source of truth for the value.
const barcodeView = `
CREATE {{createview}} variant_barcodes AS
SELECT v.shop_id        AS shop_id,
       v.external_id    AS variant_id,
       v.barcode        AS value,
       COALESCE(v.barcode_format, '') AS format,
       CASE WHEN COUNT(*) OVER (PARTITION BY v.shop_id, v.barcode) > 1 THEN 1 ELSE 0 END AS duplicate
FROM variants v
WHERE v.barcode IS NOT NULL AND v.barcode <> '';
`

func Migrate(ctx context.Context, db *sqlx.DB) error {
	ddl := render(schema, IsPostgres(db))
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, render(barcodeView, IsPostgres(db))); err != nil {
		return fmt.Errorf("migrate barcode view: %w", err)
	}
	return nil
}

func render(ddl string, postgres bool) string {
	r := strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{json}}", "TEXT",
		"{{decimal}}", "TEXT",
		"{{createview}}", "VIEW IF NOT EXISTS",
	)
	if postgres {
		r = strings.NewReplacer(
			"{{pk}}", "BIGSERIAL PRIMARY KEY",
			"{{json}}", "JSONB",
			"{{decimal}}", "NUMERIC(14,4)",
			"{{createview}}", "OR REPLACE VIEW",
		)
	}
	return r.Replace(ddl)
}
