package dto

import "encoding/json"

type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type GraphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

type GraphQLError struct {
	Message    string                 `json:"message"`
	Path       []any                  `json:"path,omitempty"`
	Extensions map[string]any         `json:"extensions,omitempty"`
	Locations  []GraphQLErrorLocation `json:"locations,omitempty"`
}

type GraphQLErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type UserError struct {
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
}

type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor,omitempty"`
}

// ProductIDPage is the cheap pagination query result: ids only.
type ProductIDPage struct {
	Products struct {
		PageInfo PageInfo `json:"pageInfo"`
		Edges    []struct {
			Cursor string `json:"cursor"`
			Node   struct {
				ID string `json:"id"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

// ProductPage keeps product nodes raw; the ingest package owns their decoding.
type ProductPage struct {
	Products struct {
		PageInfo PageInfo `json:"pageInfo"`
		Edges    []struct {
			Node json.RawMessage `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

type VariantInput struct {
	ID            string              `json:"id"`
	Barcode       *string             `json:"barcode,omitempty"`
	InventoryItem *InventoryItemInput `json:"inventoryItem,omitempty"`
}

type InventoryItemInput struct {
	SKU string `json:"sku"`
}

type VariantsBulkUpdateData struct {
	ProductVariantsBulkUpdate struct {
		ProductVariants []struct {
			ID string `json:"id,omitempty"`
		} `json:"productVariants,omitempty"`
		UserErrors []UserError `json:"userErrors,omitempty"`
	} `json:"productVariantsBulkUpdate"`
}
