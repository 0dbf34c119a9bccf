// Package cart implements the client-side cart: an in-memory line-item list
// with merge-on-add identity, stock clamping, derived-total friendly
// snapshots, write-through persistence, and an ordered subscription stream.
package cart

import (
	"github.com/veilmart/storefront/internal/domain/product"
)

// Key identifies a line item: the product plus its optional size variant.
// Two additions with the same key merge into a single line item.
type Key struct {
	ProductID string
	Size      string
}

// LineItem is one distinct purchasable configuration in the cart. Product is
// a frozen snapshot captured at add-time; Quantity always satisfies
// 1 <= Quantity <= Product.Stock.
type LineItem struct {
	Product  product.Product
	Quantity int
	Size     string
}

// Key returns the line item's identity.
func (i LineItem) Key() Key {
	return Key{ProductID: i.Product.ID, Size: i.Size}
}

// clampQuantity bounds qty to the purchasable range for the given stock.
// A requested quantity above stock degrades to "as many as possible" rather
// than failing; this mirrors the storefront UX.
func clampQuantity(qty, stock int) int {
	if qty > stock {
		qty = stock
	}
	if qty < 0 {
		qty = 0
	}
	return qty
}
