package restapi

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/veilmart/storefront/internal/domain/product"
)

var _ product.Repository = (*Client)(nil)

type productDTO struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
	Image    imageDTO        `json:"image"`
}

type imageDTO struct {
	Thumbnail string `json:"thumbnail"`
	Mobile    string `json:"mobile"`
	Tablet    string `json:"tablet"`
	Desktop   string `json:"desktop"`
}

func (d productDTO) toDomain() product.Product {
	return product.Product{
		ID:       d.ID,
		Name:     d.Name,
		Price:    d.Price,
		Stock:    d.Stock,
		Category: d.Category,
		Image: product.Image{
			Thumbnail: d.Image.Thumbnail,
			Mobile:    d.Image.Mobile,
			Tablet:    d.Image.Tablet,
			Desktop:   d.Image.Desktop,
		},
	}
}

// List fetches the full product catalog.
func (c *Client) List(ctx context.Context) ([]product.Product, error) {
	var dtos []productDTO
	if err := c.get(ctx, "/api/products", &dtos); err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	out := make([]product.Product, len(dtos))
	for i, d := range dtos {
		out[i] = d.toDomain()
	}
	return out, nil
}

// GetByID fetches a single product. It returns product.ErrNotFound when the
// backend does not know the ID.
func (c *Client) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var dto productDTO
	if err := c.get(ctx, "/api/products/"+url.PathEscape(id), &dto); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	p := dto.toDomain()
	return &p, nil
}

// GetByIDs fetches products in a single batch. IDs unknown to the backend
// are simply absent from the result.
func (c *Client) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{"ids": []string{strings.Join(ids, ",")}}
	var dtos []productDTO
	if err := c.get(ctx, "/api/products?"+query.Encode(), &dtos); err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}

	out := make([]product.Product, len(dtos))
	for i, d := range dtos {
		out[i] = d.toDomain()
	}
	return out, nil
}
