// Package batch runs bulk SKU and barcode generation as chunked queue batches tracked by a
// JobLog.
package batch

import (
	"fmt"

	"github.com/fekuna/shopsync-service/internal/generator"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/fekuna/shopsync-service/internal/product/dto"
)

const DefaultChunkSize = 100

type GenerateRequest struct {
	ShopID int64  `json:"shop_id" validate:"required,gt=0"`
	Kind   string `json:"kind" validate:"required,oneof=sku barcode"`
	// VariantIDs selects variants explicitly; when empty Filter picks them, and an empty
	// filter means every variant of the shop.
	VariantIDs    []int64                 `json:"variant_ids" validate:"omitempty,dive,gt=0"`
	Filter        *dto.VariantFilter      `json:"filter"`
	SKURules      *generator.SKURules     `json:"sku_rules"`
	BarcodeRules  *generator.BarcodeRules `json:"barcode_rules"`
	SyncToShopify bool                    `json:"sync_to_shopify"`
}

type generatePayload struct {
	Kind          string                  `json:"kind"`
	JobLogID      int64                   `json:"joblog_id"`
	VariantIDs    []int64                 `json:"variant_ids"`
	SKURules      *generator.SKURules     `json:"sku_rules,omitempty"`
	BarcodeRules  *generator.BarcodeRules `json:"barcode_rules,omitempty"`
	SyncToShopify bool                    `json:"sync_to_shopify"`
}

type pushPayload struct {
	ProductID  int64   `json:"product_id"`
	VariantIDs []int64 `json:"variant_ids"`
	// Kind limits the push to one field; empty pushes both.
	Kind string `json:"kind,omitempty"`
}

// Summary is the completion message of a generation run.
func Summary(kind string, processed, failed int) string {
	noun := "SKUs"
	if kind == model.JobKindBarcode {
		noun = "barcodes"
	}
	return fmt.Sprintf("Generated %d %s (%d failed)", processed, noun, failed)
}

func chunk(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
