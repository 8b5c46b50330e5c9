package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

// Rows are only rewritten when a mirrored field actually changed, so replaying the same
// payload leaves updated_at alone.
const upsertProductQuery = `
    INSERT INTO products (
        shop_id, external_id, title, description, status, vendor, product_type,
        tags, images, created_at, updated_at
    )
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT (shop_id, external_id) DO UPDATE
    SET title = excluded.title,
        description = excluded.description,
        status = excluded.status,
        vendor = excluded.vendor,
        product_type = excluded.product_type,
        tags = excluded.tags,
        images = excluded.images,
        updated_at = excluded.updated_at
    WHERE products.title IS DISTINCT FROM excluded.title
       OR products.description IS DISTINCT FROM excluded.description
       OR products.status IS DISTINCT FROM excluded.status
       OR products.vendor IS DISTINCT FROM excluded.vendor
       OR products.product_type IS DISTINCT FROM excluded.product_type
       OR products.tags IS DISTINCT FROM excluded.tags
       OR products.images IS DISTINCT FROM excluded.images
`

const upsertVariantQuery = `
    INSERT INTO variants (
        shop_id, product_id, external_id, title, sku, barcode, barcode_format, price,
        inventory_quantity, option1, option2, option3, image_src, created_at, updated_at
    )
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT (external_id) DO UPDATE
    SET shop_id = excluded.shop_id,
        product_id = excluded.product_id,
        title = excluded.title,
        sku = excluded.sku,
        barcode = excluded.barcode,
        barcode_format = CASE
            WHEN variants.barcode IS NOT DISTINCT FROM excluded.barcode THEN variants.barcode_format
            ELSE excluded.barcode_format
        END,
        price = excluded.price,
        inventory_quantity = excluded.inventory_quantity,
        option1 = excluded.option1,
        option2 = excluded.option2,
        option3 = excluded.option3,
        image_src = excluded.image_src,
        updated_at = excluded.updated_at
    WHERE variants.shop_id IS DISTINCT FROM excluded.shop_id
       OR variants.product_id IS DISTINCT FROM excluded.product_id
       OR variants.title IS DISTINCT FROM excluded.title
       OR variants.sku IS DISTINCT FROM excluded.sku
       OR variants.barcode IS DISTINCT FROM excluded.barcode
       OR variants.price IS DISTINCT FROM excluded.price
       OR variants.inventory_quantity IS DISTINCT FROM excluded.inventory_quantity
       OR variants.option1 IS DISTINCT FROM excluded.option1
       OR variants.option2 IS DISTINCT FROM excluded.option2
       OR variants.option3 IS DISTINCT FROM excluded.option3
       OR variants.image_src IS DISTINCT FROM excluded.image_src
`

func (r *PGRepository) Upsert(ctx context.Context, p *model.Product) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err = tx.ExecContext(ctx, r.DB.Rebind(upsertProductQuery),
		p.ShopID, p.ExternalID, p.Title, p.Description, p.Status, p.Vendor, p.ProductType,
		p.Tags, p.Images, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert product %d: %w", p.ExternalID, err)
	}

	idQuery := r.DB.Rebind(`SELECT id FROM products WHERE shop_id = ? AND external_id = ?`)
	if err := tx.GetContext(ctx, &p.ID, idQuery, p.ShopID, p.ExternalID); err != nil {
		return fmt.Errorf("load product id %d: %w", p.ExternalID, err)
	}

	variantQuery := r.DB.Rebind(upsertVariantQuery)
	keep := make([]int64, 0, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		v.ShopID = p.ShopID
		v.ProductID = p.ID
		v.ProductExternalID = p.ExternalID
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		v.UpdatedAt = now

		_, err := tx.ExecContext(ctx, variantQuery,
			v.ShopID, v.ProductID, v.ExternalID, v.Title, v.SKU, v.Barcode, v.BarcodeFormat, v.Price,
			v.InventoryQuantity, v.Option1, v.Option2, v.Option3, v.ImageSrc, v.CreatedAt, v.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert variant %d: %w", v.ExternalID, err)
		}
		keep = append(keep, v.ExternalID)
	}

	// Variants removed on Shopify's side disappear from the mirror too.
	if len(keep) > 0 {
		query, args, err := sqlx.In(`DELETE FROM variants WHERE product_id = ? AND external_id NOT IN (?)`, p.ID, keep)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.DB.Rebind(query), args...); err != nil {
			return fmt.Errorf("prune variants of %d: %w", p.ExternalID, err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) FindByExternalID(ctx context.Context, shopID, externalID int64) (*model.Product, error) {
	var product model.Product
	query := r.DB.Rebind(`SELECT * FROM products WHERE shop_id = ? AND external_id = ? LIMIT 1`)
	err := r.DB.GetContext(ctx, &product, query, shopID, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	variantQuery := r.DB.Rebind(`SELECT * FROM variants WHERE product_id = ? ORDER BY id`)
	if err := r.DB.SelectContext(ctx, &product.Variants, variantQuery, product.ID); err != nil {
		return nil, err
	}
	for i := range product.Variants {
		product.Variants[i].ProductExternalID = product.ExternalID
	}
	return &product, nil
}

func (r *PGRepository) DeleteByExternalID(ctx context.Context, shopID, externalID int64) (bool, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, r.DB.Rebind(`
        DELETE FROM variants
        WHERE product_id IN (SELECT id FROM products WHERE shop_id = ? AND external_id = ?)
    `), shopID, externalID)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, r.DB.Rebind(`DELETE FROM products WHERE shop_id = ? AND external_id = ?`), shopID, externalID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, tx.Commit()
}

func (r *PGRepository) FindVariants(ctx context.Context, shopID int64, variantIDs []int64) ([]model.Variant, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
        SELECT v.*, p.external_id AS product_external_id
        FROM variants v
        JOIN products p ON p.id = v.product_id
        WHERE v.shop_id = ? AND v.external_id IN (?)
        ORDER BY v.id
    `, shopID, variantIDs)
	if err != nil {
		return nil, err
	}

	var variants []model.Variant
	if err := r.DB.SelectContext(ctx, &variants, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *PGRepository) FindVariantIDs(ctx context.Context, f *dto.VariantFilter) ([]int64, error) {
	conditions := []string{"v.shop_id = ?"}
	args := []interface{}{f.ShopID}

	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		conditions = append(conditions, "(LOWER(p.title) LIKE ? OR LOWER(v.title) LIKE ? OR LOWER(COALESCE(v.sku, '')) LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Vendor != "" {
		conditions = append(conditions, "p.vendor = ?")
		args = append(args, f.Vendor)
	}
	if f.ProductType != "" {
		conditions = append(conditions, "p.product_type = ?")
		args = append(args, f.ProductType)
	}
	if f.Status != "" {
		conditions = append(conditions, "p.status = ?")
		args = append(args, f.Status)
	}

	query := `
        SELECT v.external_id
        FROM variants v
        JOIN products p ON p.id = v.product_id
        WHERE ` + strings.Join(conditions, " AND ") + `
        ORDER BY v.id`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var ids []int64
	if err := r.DB.SelectContext(ctx, &ids, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PGRepository) UpdateVariantCodes(ctx context.Context, shopID, variantID int64, codes *dto.VariantCodes) error {
	sets := []string{}
	args := []interface{}{}
	if codes.SKU != nil {
		sets = append(sets, "sku = ?")
		args = append(args, *codes.SKU)
	}
	if codes.Barcode != nil {
		sets = append(sets, "barcode = ?")
		args = append(args, *codes.Barcode)
	}
	if codes.BarcodeFormat != nil {
		sets = append(sets, "barcode_format = ?")
		args = append(args, *codes.BarcodeFormat)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), shopID, variantID)

	query := r.DB.Rebind(`UPDATE variants SET ` + strings.Join(sets, ", ") + ` WHERE shop_id = ? AND external_id = ?`)
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("variant %d: %w", variantID, apperr.ErrNotFound)
	}
	return nil
}

func (r *PGRepository) FindBarcodes(ctx context.Context, shopID int64, variantIDs []int64) ([]model.Barcode, error) {
	query := `SELECT shop_id, variant_id, value, format, duplicate FROM variant_barcodes WHERE shop_id = ?`
	args := []interface{}{shopID}
	if len(variantIDs) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND variant_id IN (?)`, shopID, variantIDs)
		if err != nil {
			return nil, err
		}
	}
	query += ` ORDER BY variant_id`

	var barcodes []model.Barcode
	if err := r.DB.SelectContext(ctx, &barcodes, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return barcodes, nil
}
