// Package checkout orchestrates order placement: it reads the cart snapshot
// and pricing quote, validates an optional promo code, sends the order to the
// backend, and clears the cart once the backend accepts it.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veilmart/storefront/internal/domain/cart"
	"github.com/veilmart/storefront/internal/domain/coupon"
	"github.com/veilmart/storefront/internal/pricing"
)

// ErrEmptyCart is returned when checkout is attempted with no line items.
// An empty cart blocks checkout; everything else about the cart lifecycle is
// implicit.
var ErrEmptyCart = errors.New("cart is empty")

// OrderItem is one line of an order request or a placed order.
type OrderItem struct {
	ProductID string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderRequest is the payload sent to the backend. All amounts are rounded
// to two decimal places here, and only here; the pricing policy itself never
// rounds.
type OrderRequest struct {
	Reference  string
	Items      []OrderItem
	CouponCode string
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
}

// Order is a placed order as confirmed by the backend.
type Order struct {
	ID         string
	Reference  string
	Items      []OrderItem
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponCode string
	CreatedAt  time.Time
}

// Placer submits an order request to the remote order-placement API.
type Placer interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// Summary is a checkout review: the quote plus any promo discount.
type Summary struct {
	Items          []cart.LineItem
	Quote          pricing.Quote
	CouponDiscount decimal.Decimal
	CouponDetail   string
	// Payable is quote total minus the promo discount, floored at zero.
	Payable decimal.Decimal
}

// Service wires the cart, pricing policy, promo validation, and the order
// API into the checkout flow.
type Service struct {
	cart    *cart.Store
	policy  pricing.Policy
	coupons coupon.Validator
	orders  Placer
}

// NewService creates a checkout Service. coupons may be nil, in which case
// promo codes are rejected locally.
func NewService(cartStore *cart.Store, policy pricing.Policy, coupons coupon.Validator, orders Placer) *Service {
	return &Service{
		cart:    cartStore,
		policy:  policy,
		coupons: coupons,
		orders:  orders,
	}
}

// Review computes the checkout summary for the current cart without placing
// an order. It returns ErrEmptyCart when there is nothing to check out.
func (s *Service) Review(ctx context.Context, couponCode string) (*Summary, error) {
	items := s.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	summary := &Summary{
		Items:          items,
		Quote:          s.policy.QuoteFor(items),
		CouponDiscount: decimal.Zero,
	}

	if couponCode != "" {
		if s.coupons == nil {
			return nil, coupon.ErrInvalidCoupon
		}
		d, err := s.coupons.Validate(ctx, couponCode, couponItems(items))
		if err != nil {
			return nil, errors.Wrap(err, "validate promo code")
		}
		summary.CouponDiscount = d.Amount
		summary.CouponDetail = d.Description
	}

	payable := summary.Quote.Total.Sub(summary.CouponDiscount)
	if payable.IsNegative() {
		payable = decimal.Zero
	}
	summary.Payable = payable

	return summary, nil
}

// Checkout reviews the cart, places the order, and clears the cart on
// success. A failed placement leaves the cart untouched.
func (s *Service) Checkout(ctx context.Context, couponCode string) (*Order, error) {
	summary, err := s.Review(ctx, couponCode)
	if err != nil {
		return nil, err
	}

	req := OrderRequest{
		Reference:  uuid.New().String(),
		Items:      make([]OrderItem, len(summary.Items)),
		CouponCode: couponCode,
		Subtotal:   summary.Quote.Subtotal.Round(2),
		Shipping:   summary.Quote.Shipping.Round(2),
		Discount:   summary.Quote.Discount.Add(summary.CouponDiscount).Round(2),
		Total:      summary.Payable.Round(2),
	}
	for i, item := range summary.Items {
		req.Items[i] = OrderItem{
			ProductID: item.Product.ID,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
		}
	}

	order, err := s.orders.PlaceOrder(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	s.cart.Clear()
	return order, nil
}

func couponItems(items []cart.LineItem) []coupon.Item {
	out := make([]coupon.Item, len(items))
	for i, item := range items {
		out[i] = coupon.Item{
			ProductID: item.Product.ID,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
		}
	}
	return out
}
