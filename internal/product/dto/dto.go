package dto

// VariantFilter selects variants for "all matching" generation runs.
type VariantFilter struct {
	ShopID      int64  `json:"shop_id"`
	Query       string `json:"query"` // matched against product title, variant title and sku
	Vendor      string `json:"vendor"`
	ProductType string `json:"product_type"`
	Status      string `json:"status" validate:"omitempty,oneof=draft active archived"`
	Limit       int    `json:"limit"`
}

func (f *VariantFilter) Empty() bool {
	return f.Query == "" && f.Vendor == "" && f.ProductType == "" && f.Status == ""
}
