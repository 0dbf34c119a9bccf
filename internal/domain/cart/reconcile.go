package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/veilmart/storefront/internal/domain/product"
)

// Reconcile refreshes every frozen product snapshot from the catalog in a
// single batch fetch. Quantities are re-clamped to current stock, items whose
// product vanished from the catalog (or is out of stock) are dropped, and the
// result is persisted and published once.
func (s *Store) Reconcile(ctx context.Context, repo product.Repository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil
	}

	ids := make([]string, 0, len(s.items))
	seen := make(map[string]struct{}, len(s.items))
	for _, item := range s.items {
		if _, ok := seen[item.Product.ID]; ok {
			continue
		}
		seen[item.Product.ID] = struct{}{}
		ids = append(ids, item.Product.ID)
	}

	fetched, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "fetch products")
	}

	current := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		current[p.ID] = p
	}

	reconciled := s.items[:0]
	for _, item := range s.items {
		p, ok := current[item.Product.ID]
		if !ok {
			continue
		}
		item.Product = p
		item.Quantity = clampQuantity(item.Quantity, p.Stock)
		if item.Quantity <= 0 {
			continue
		}
		reconciled = append(reconciled, item)
	}
	s.items = reconciled

	s.persist()
	s.publish()
	return nil
}
