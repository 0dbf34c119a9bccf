package restapi

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/veilmart/storefront/internal/domain/checkout"
)

var _ checkout.Placer = (*Client)(nil)

type orderItemDTO struct {
	ProductID string          `json:"product_id"`
	Size      string          `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type orderRequestDTO struct {
	Reference  string          `json:"reference"`
	Items      []orderItemDTO  `json:"items"`
	CouponCode string          `json:"coupon_code,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
}

type orderDTO struct {
	ID         string          `json:"id"`
	Reference  string          `json:"reference"`
	Items      []orderItemDTO  `json:"items"`
	CouponCode string          `json:"coupon_code"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PlaceOrder submits the order request and returns the order the backend
// confirmed. The backend re-validates items, stock, and any promo code; its
// response is authoritative over the client's own quote.
func (c *Client) PlaceOrder(ctx context.Context, req checkout.OrderRequest) (*checkout.Order, error) {
	body := orderRequestDTO{
		Reference:  req.Reference,
		Items:      make([]orderItemDTO, len(req.Items)),
		CouponCode: req.CouponCode,
		Subtotal:   req.Subtotal,
		Shipping:   req.Shipping,
		Discount:   req.Discount,
		Total:      req.Total,
	}
	for i, item := range req.Items {
		body.Items[i] = orderItemDTO{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	var dto orderDTO
	if err := c.post(ctx, "/api/orders", body, &dto); err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	order := &checkout.Order{
		ID:         dto.ID,
		Reference:  dto.Reference,
		Items:      make([]checkout.OrderItem, len(dto.Items)),
		CouponCode: dto.CouponCode,
		Subtotal:   dto.Subtotal,
		Shipping:   dto.Shipping,
		Discount:   dto.Discount,
		Total:      dto.Total,
		CreatedAt:  dto.CreatedAt,
	}
	for i, item := range dto.Items {
		order.Items[i] = checkout.OrderItem{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return order, nil
}
