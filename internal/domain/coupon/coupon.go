// Package coupon implements promo-code validation for checkout. Codes are
// checked offline against a compiled coupon pack; the backend remains the
// authority when the order is placed.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promo discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeLowest removes the cost of the cheapest item in the cart.
	DiscountFreeLowest DiscountType = "free_lowest"
)

var (
	// ErrInvalidCoupon is returned when a promo code is unknown or the cart
	// does not satisfy the code's minimum item requirement.
	ErrInvalidCoupon = errors.New("invalid promo code")
	// ErrCouponExpired is returned when a code is outside its valid window.
	ErrCouponExpired = errors.New("promo code expired")
)

// Rule defines a promo code's discount behaviour and eligibility constraints.
type Rule struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinItems     int
	Description  string
	ValidFrom    *time.Time
	ValidUntil   *time.Time
}

// Discount holds the computed discount amount and a human-readable
// description shown at checkout review.
type Discount struct {
	Amount      decimal.Decimal
	Description string
}

// Item represents a cart line item for discount calculation purposes.
type Item struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Validator validates a promo code against a set of cart items and returns
// the computed discount.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (*Discount, error)
}
