package bookkeeping

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
)

// ListProducts returns the catalogue sorted by type, color and size.
func (s *Service) ListProducts(ctx context.Context, ns string) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadProducts(ctx, ns)
	if err != nil {
		return nil, err
	}

	sorted := slices.Clone(products)
	slices.SortStableFunc(sorted, func(a, b models.Product) int {
		if c := strings.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		if c := strings.Compare(a.Color, b.Color); c != 0 {
			return c
		}
		return strings.Compare(a.Size, b.Size)
	})
	return sorted, nil
}

// SaveProduct creates a product, or edits the one stored under oldKey when it
// is set. A product landing on an existing unique key replaces it.
func (s *Service) SaveProduct(ctx context.Context, ns, oldKey string, p models.Product) (models.Product, error) {
	p.Type = strings.TrimSpace(p.Type)
	p.Size = strings.TrimSpace(p.Size)
	p.Color = strings.TrimSpace(p.Color)

	if p.Buy1 < 0 || p.Sell1 < 0 || (p.Lowest != nil && *p.Lowest < 0) {
		return models.Product{}, invalid("prices must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttributes(ctx, ns, p); err != nil {
		return models.Product{}, err
	}

	products, err := s.loadProducts(ctx, ns)
	if err != nil {
		return models.Product{}, err
	}

	newKey := p.UniqueKey()
	existing := slices.IndexFunc(products, func(x models.Product) bool { return x.UniqueKey() == newKey })

	if oldKey != "" {
		current := slices.IndexFunc(products, func(x models.Product) bool { return x.UniqueKey() == oldKey })
		if current < 0 {
			return models.Product{}, ErrNotFound
		}
		if existing > -1 && existing != current {
			products[existing] = p
			products = slices.Delete(products, current, current+1)
		} else {
			products[current] = p
		}
	} else if existing > -1 {
		products[existing] = p
	} else {
		products = append(products, p)
	}

	if err := saveList(ctx, s.store, ns, kv.KeyProducts, products); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// DeleteProduct removes the product with the given type|size|color key.
func (s *Service) DeleteProduct(ctx context.Context, ns, uniqueKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.loadProducts(ctx, ns)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(products, func(x models.Product) bool { return x.UniqueKey() == uniqueKey })
	if idx < 0 {
		return ErrNotFound
	}
	return saveList(ctx, s.store, ns, kv.KeyProducts, slices.Delete(products, idx, idx+1))
}

func (s *Service) checkAttributes(ctx context.Context, ns string, p models.Product) error {
	checks := []struct {
		kind  models.AttributeKind
		value string
	}{
		{models.AttributeType, p.Type},
		{models.AttributeSize, p.Size},
		{models.AttributeColor, p.Color},
	}
	for _, c := range checks {
		values, err := s.loadAttributes(ctx, ns, c.kind)
		if err != nil {
			return err
		}
		if !slices.Contains(values, c.value) {
			return invalid("%s %q is not in the managed list", c.kind, c.value)
		}
	}
	return nil
}

// loadProducts reads the catalogue and drops duplicate unique keys, keeping
// the position of the first and the values of the last occurrence.
func (s *Service) loadProducts(ctx context.Context, ns string) ([]models.Product, error) {
	products, err := loadList[models.Product](ctx, s.store, ns, kv.KeyProducts)
	if err != nil {
		return nil, err
	}

	deduped := dedupeProducts(products)
	if len(deduped) != len(products) {
		if err := saveList(ctx, s.store, ns, kv.KeyProducts, deduped); err != nil {
			return nil, err
		}
		s.logger.Info("removed duplicate products",
			zap.String("namespace", ns),
			zap.Int("removed", len(products)-len(deduped)))
	}
	return deduped, nil
}

func dedupeProducts(products []models.Product) []models.Product {
	index := make(map[string]int, len(products))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if i, ok := index[p.UniqueKey()]; ok {
			out[i] = p
			continue
		}
		index[p.UniqueKey()] = len(out)
		out = append(out, p)
	}
	return out
}

// productKeys lists the distinct size | color keys in catalogue order.
func productKeys(products []models.Product) []string {
	seen := make(map[string]bool, len(products))
	var keys []string
	for _, p := range products {
		if k := p.Key(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func findProduct(products []models.Product, key string) (models.Product, bool) {
	size, color := models.SplitProductKey(key)
	for _, p := range products {
		if p.Size == size && p.Color == color {
			return p, true
		}
	}
	return models.Product{}, false
}

func costFor(products []models.Product, key string, packs int) float64 {
	p, ok := findProduct(products, key)
	if !ok {
		return 0
	}
	return p.Buy1 * models.PackSize * float64(packs)
}

func defaultPrice100(products []models.Product, key string) float64 {
	p, ok := findProduct(products, key)
	if !ok {
		return 0
	}
	return p.Sell1 * models.PackSize
}

func estimateProfit(products []models.Product, key string, packs int, price100 float64) float64 {
	p, ok := findProduct(products, key)
	if !ok {
		return 0
	}
	return price100*float64(packs) - p.Buy1*models.PackSize*float64(packs)
}
