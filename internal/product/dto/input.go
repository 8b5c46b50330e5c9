package dto

// VariantCodes carries the generated or edited identifiers of one variant. Nil fields are
// left untouched.
type VariantCodes struct {
	SKU           *string `json:"sku,omitempty"`
	Barcode       *string `json:"barcode,omitempty"`
	BarcodeFormat *string `json:"barcode_format,omitempty"`
}

func (c *VariantCodes) Empty() bool {
	return c.SKU == nil && c.Barcode == nil && c.BarcodeFormat == nil
}
