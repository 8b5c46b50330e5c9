package shopify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fekuna/shopsync-service/internal/shopify/dto"
)

// PageSize is the largest page Shopify serves for products.
const PageSize = 250

const productIDsQuery = `
query productIds($first: Int!, $after: String) {
	products(first: $first, after: $after) {
		pageInfo { hasNextPage endCursor }
		edges { cursor node { id } }
	}
}`

const productPageQuery = `
query productPage($first: Int!, $after: String) {
	products(first: $first, after: $after) {
		pageInfo { hasNextPage endCursor }
		edges {
			node {
				id
				title
				descriptionHtml
				status
				vendor
				productType
				tags
				featuredImage { id url altText }
				images(first: 50) { edges { node { id url altText } } }
				variants(first: 100) {
					edges {
						node {
							id
							title
							sku
							barcode
							price
							inventoryQuantity
							selectedOptions { name value }
							image { id url altText }
						}
					}
				}
			}
		}
	}
}`

const variantsBulkUpdateMutation = `
mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
	productVariantsBulkUpdate(productId: $productId, variants: $variants) {
		productVariants { id }
		userErrors { field message }
	}
}`

func pageVariables(first int, after string) map[string]any {
	vars := map[string]any{"first": first}
	if after != "" {
		vars["after"] = after
	}
	return vars
}

// FetchProductIDs runs the cheap id-only pagination query.
func FetchProductIDs(ctx context.Context, api API, after string) (*dto.ProductIDPage, error) {
	var page dto.ProductIDPage
	if err := api.Graph(ctx, productIDsQuery, pageVariables(PageSize, after), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchProductPage runs the full-detail query for the page starting after the cursor and
// returns the raw product nodes.
func FetchProductPage(ctx context.Context, api API, after string) ([]json.RawMessage, dto.PageInfo, error) {
	var page dto.ProductPage
	if err := api.Graph(ctx, productPageQuery, pageVariables(PageSize, after), &page); err != nil {
		return nil, dto.PageInfo{}, err
	}
	nodes := make([]json.RawMessage, 0, len(page.Products.Edges))
	for _, e := range page.Products.Edges {
		nodes = append(nodes, e.Node)
	}
	return nodes, page.Products.PageInfo, nil
}

func ProductGID(id int64) string { return fmt.Sprintf("gid://shopify/Product/%d", id) }

func VariantGID(id int64) string { return fmt.Sprintf("gid://shopify/ProductVariant/%d", id) }

// PushVariantCodes writes sku and barcode values of one product's variants back to Shopify.
func PushVariantCodes(ctx context.Context, api API, productID int64, variants []dto.VariantInput) error {
	if len(variants) == 0 {
		return nil
	}
	var data dto.VariantsBulkUpdateData
	err := api.Graph(ctx, variantsBulkUpdateMutation, map[string]any{
		"productId": ProductGID(productID),
		"variants":  variants,
	}, &data)
	if err != nil {
		return err
	}
	return userErrorsToError("productVariantsBulkUpdate", data.ProductVariantsBulkUpdate.UserErrors)
}
