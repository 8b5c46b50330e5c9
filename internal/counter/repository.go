package counter

import (
	"context"
	"fmt"
)

// Key identifies one monotonic sequence.
type Key struct {
	ShopID int64
	Scope  string
}

const (
	ScopeSKU     = "sku"
	ScopeBarcode = "barcode"
)

// ProductScope narrows a sequence to one product, e.g. "sku/product/42".
func ProductScope(base string, productID int64) string {
	return fmt.Sprintf("%s/product/%d", base, productID)
}

type Repository interface {
	// NextValue returns the next value of the sequence, seeding it with start when the
	// key has never been used. Concurrent callers never observe the same value.
	NextValue(ctx context.Context, key Key, start int64) (int64, error)
	Current(ctx context.Context, key Key) (int64, bool, error)
}
