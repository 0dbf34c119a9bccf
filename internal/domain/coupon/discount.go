package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount this rule grants for the given cart items.
// It returns ErrInvalidCoupon when the cart does not satisfy the rule's
// minimum item count.
func (r Rule) Apply(items []Item) (Discount, error) {
	if r.MinItems > 0 && totalQuantity(items) < r.MinItems {
		return Discount{}, ErrInvalidCoupon
	}

	var amount decimal.Decimal
	switch r.DiscountType {
	case DiscountPercentage:
		amount = subtotal(items).Mul(r.Value).Div(hundred)
	case DiscountFixed:
		amount = decimal.Min(r.Value, subtotal(items))
	case DiscountFreeLowest:
		amount = lowestUnitPrice(items)
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", r.DiscountType)
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Discount{
		Amount:      amount.Round(2),
		Description: r.Description,
	}, nil
}

func subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

func totalQuantity(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// lowestUnitPrice returns the lowest unit price among the items, or zero for
// an empty cart.
func lowestUnitPrice(items []Item) decimal.Decimal {
	if len(items) == 0 {
		return decimal.Zero
	}
	lowest := items[0].Price
	for _, item := range items[1:] {
		if item.Price.LessThan(lowest) {
			lowest = item.Price
		}
	}
	return lowest
}
