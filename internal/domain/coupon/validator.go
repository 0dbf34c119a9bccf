package coupon

import (
	"context"
	"time"
)

var _ Validator = (*PackValidator)(nil)

// PackValidator validates promo codes offline against a compiled coupon pack.
type PackValidator struct {
	pack *Pack
	now  func() time.Time
}

// NewPackValidator creates a PackValidator over the given pack.
func NewPackValidator(pack *Pack) *PackValidator {
	return &PackValidator{pack: pack, now: time.Now}
}

// Validate resolves the rule for code, checks its validity window, and
// applies it to the cart items.
func (v *PackValidator) Validate(_ context.Context, code string, items []Item) (*Discount, error) {
	rule, err := v.pack.Rule(code)
	if err != nil {
		return nil, err
	}

	now := v.now()
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrCouponExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrCouponExpired
	}

	d, err := rule.Apply(items)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
