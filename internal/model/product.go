package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BaseModel struct {
	ID        int64     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	ProductStatusDraft    = "draft"
	ProductStatusActive   = "active"
	ProductStatusArchived = "archived"
)

type Product struct {
	BaseModel
	ShopID      int64      `db:"shop_id" json:"shop_id"`
	ExternalID  int64      `db:"external_id" json:"external_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Status      string     `db:"status" json:"status"`
	Vendor      string     `db:"vendor" json:"vendor"`
	ProductType string     `db:"product_type" json:"product_type"`
	Tags        StringList `db:"tags" json:"tags"`
	Images      ImageList  `db:"images" json:"images"`
	Variants    []Variant  `db:"-" json:"variants"` // Not in products table
}

type Variant struct {
	BaseModel
	ShopID            int64           `db:"shop_id" json:"shop_id"`
	ProductID         int64           `db:"product_id" json:"product_id"`
	ExternalID        int64           `db:"external_id" json:"external_id"`
	Title             string          `db:"title" json:"title"`
	SKU               *string         `db:"sku" json:"sku"`
	Barcode           *string         `db:"barcode" json:"barcode"`
	BarcodeFormat     *string         `db:"barcode_format" json:"barcode_format"`
	Price             decimal.Decimal `db:"price" json:"price"`
	InventoryQuantity int             `db:"inventory_quantity" json:"inventory_quantity"`
	Option1           *string         `db:"option1" json:"option1"`
	Option2           *string         `db:"option2" json:"option2"`
	Option3           *string         `db:"option3" json:"option3"`
	ImageSrc          *string         `db:"image_src" json:"image_src"`

	// ProductExternalID is filled by joins; the variants table only stores the local id.
	ProductExternalID int64 `db:"product_external_id" json:"product_external_id,omitempty"`
}

func (v *Variant) SKUValue() string {
	if v.SKU == nil {
		return ""
	}
	return *v.SKU
}

func (v *Variant) BarcodeValue() string {
	if v.Barcode == nil {
		return ""
	}
	return *v.Barcode
}

type Image struct {
	ID  int64  `json:"id,omitempty"`
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// StringList is stored as a JSON array.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(src any) error {
	return scanJSON(src, (*[]string)(s))
}

// ImageList is stored as a JSON array, order preserved.
type ImageList []Image

func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Image(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ImageList) Scan(src any) error {
	return scanJSON(src, (*[]Image)(l))
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}
