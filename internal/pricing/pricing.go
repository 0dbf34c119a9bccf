// Package pricing computes derived cart totals: subtotal, shipping, the
// order-value discount, and the grand total. Totals are never stored; every
// call recomputes from the given snapshot so displayed totals cannot drift
// from the underlying line items.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/veilmart/storefront/internal/domain/cart"
)

// Recognized storefront defaults. Multiple call sites (cart view, checkout
// review, order summary) must agree exactly, so they share one Policy value
// instead of inlining thresholds.
var (
	DefaultFreeShippingThreshold = decimal.NewFromInt(50)
	DefaultFlatShippingFee       = decimal.RequireFromString("5.99")
	DefaultDiscountThreshold     = decimal.NewFromInt(100)
	DefaultDiscountRate          = decimal.RequireFromString("0.10")
)

// Policy holds the threshold rules for shipping and the order-value discount.
type Policy struct {
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	FreeShippingThreshold decimal.Decimal
	// FlatShippingFee applies below the free-shipping threshold.
	FlatShippingFee decimal.Decimal
	// DiscountThreshold is the subtotal at which the discount kicks in.
	DiscountThreshold decimal.Decimal
	// DiscountRate is the fraction of the subtotal discounted, e.g. 0.10.
	DiscountRate decimal.Decimal
}

// DefaultPolicy returns the recognized storefront thresholds.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingFee:       DefaultFlatShippingFee,
		DiscountThreshold:     DefaultDiscountThreshold,
		DiscountRate:          DefaultDiscountRate,
	}
}

// Quote bundles all derived totals for one cart snapshot.
type Quote struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Subtotal returns the sum of unit price times quantity over all items.
func (p Policy) Subtotal(items []cart.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		line := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// ShippingCost returns zero at or above the free-shipping threshold and the
// flat fee below it. An empty cart ships nothing and costs nothing.
func (p Policy) ShippingCost(items []cart.LineItem) decimal.Decimal {
	if len(items) == 0 {
		return decimal.Zero
	}
	if p.Subtotal(items).GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

// Discount returns the order-value discount: DiscountRate times the subtotal
// once the subtotal reaches the discount threshold, zero below it.
func (p Policy) Discount(items []cart.LineItem) decimal.Decimal {
	subtotal := p.Subtotal(items)
	if subtotal.GreaterThanOrEqual(p.DiscountThreshold) {
		return subtotal.Mul(p.DiscountRate)
	}
	return decimal.Zero
}

// Total returns subtotal + shipping - discount, always recomputed.
func (p Policy) Total(items []cart.LineItem) decimal.Decimal {
	return p.Subtotal(items).Add(p.ShippingCost(items)).Sub(p.Discount(items))
}

// QuoteFor computes all four totals for the snapshot in one pass over the
// threshold rules.
func (p Policy) QuoteFor(items []cart.LineItem) Quote {
	subtotal := p.Subtotal(items)
	shipping := p.ShippingCost(items)
	discount := p.Discount(items)
	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(shipping).Sub(discount),
	}
}
