package model

import "time"

type Shop struct {
	ID          int64     `db:"id" json:"id"`
	Domain      string    `db:"domain" json:"domain"`
	AccessToken string    `db:"access_token" json:"-"`
	InstalledAt time.Time `db:"installed_at" json:"installed_at"`
}

// Barcode is the read-only projection of a variant's barcode.
type Barcode struct {
	ShopID    int64  `db:"shop_id" json:"shop_id"`
	VariantID int64  `db:"variant_id" json:"variant_id"`
	Value     string `db:"value" json:"value"`
	Format    string `db:"format" json:"format"`
	Duplicate bool   `db:"duplicate" json:"duplicate"`
}

// Setting is one key of a shop's label, printer or generation-rule configuration.
type Setting struct {
	ShopID    int64     `db:"shop_id" json:"shop_id"`
	Namespace string    `db:"namespace" json:"namespace"`
	Key       string    `db:"setting_key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
