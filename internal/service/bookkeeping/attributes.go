package bookkeeping

import (
	"context"
	"slices"
	"strings"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
)

func attributeKey(kind models.AttributeKind) (string, error) {
	switch kind {
	case models.AttributeType:
		return kv.KeyTypes, nil
	case models.AttributeSize:
		return kv.KeySizes, nil
	case models.AttributeColor:
		return kv.KeyColors, nil
	}
	return "", invalid("unknown attribute kind %q", kind)
}

func (s *Service) loadAttributes(ctx context.Context, ns string, kind models.AttributeKind) ([]string, error) {
	key, err := attributeKey(kind)
	if err != nil {
		return nil, err
	}
	return loadList[string](ctx, s.store, ns, key)
}

func (s *Service) saveAttributes(ctx context.Context, ns string, kind models.AttributeKind, values []string) error {
	key, err := attributeKey(kind)
	if err != nil {
		return err
	}
	return saveList(ctx, s.store, ns, key, values)
}

// ListAttributes returns the managed values of one attribute list.
func (s *Service) ListAttributes(ctx context.Context, ns string, kind models.AttributeKind) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAttributes(ctx, ns, kind)
}

// AddAttribute inserts a trimmed value, keeping the list unique and sorted.
func (s *Service) AddAttribute(ctx context.Context, ns string, kind models.AttributeKind, value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, invalid("value must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.loadAttributes(ctx, ns, kind)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(values, value) {
		values = append(values, value)
	}
	slices.Sort(values)

	if err := s.saveAttributes(ctx, ns, kind, values); err != nil {
		return nil, err
	}
	return values, nil
}

// RenameAttribute replaces a value in place. Products keep their stored
// attributes; only the managed list changes.
func (s *Service) RenameAttribute(ctx context.Context, ns string, kind models.AttributeKind, from, to string) ([]string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, invalid("new value must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.loadAttributes(ctx, ns, kind)
	if err != nil {
		return nil, err
	}

	idx := slices.Index(values, from)
	if idx < 0 {
		return nil, ErrNotFound
	}
	if to != from && slices.Contains(values, to) {
		return nil, invalid("%s %q already exists", kind, to)
	}
	values[idx] = to

	if err := s.saveAttributes(ctx, ns, kind, values); err != nil {
		return nil, err
	}
	return values, nil
}

// DeleteAttribute removes a value unless a product still uses it.
func (s *Service) DeleteAttribute(ctx context.Context, ns string, kind models.AttributeKind, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.loadAttributes(ctx, ns, kind)
	if err != nil {
		return err
	}
	idx := slices.Index(values, value)
	if idx < 0 {
		return ErrNotFound
	}

	products, err := s.loadProducts(ctx, ns)
	if err != nil {
		return err
	}
	inUse := slices.ContainsFunc(products, func(p models.Product) bool {
		switch kind {
		case models.AttributeType:
			return p.Type == value
		case models.AttributeSize:
			return p.Size == value
		default:
			return p.Color == value
		}
	})
	if inUse {
		return ErrAttributeInUse
	}

	return s.saveAttributes(ctx, ns, kind, slices.Delete(values, idx, idx+1))
}

// CollapseState records which product groups are folded in the catalogue view.
type CollapseState struct {
	Types  []string `json:"types"`
	Colors []string `json:"colors"`
}

// GetCollapseState returns the folded types and type/color groups.
func (s *Service) GetCollapseState(ctx context.Context, ns string) (CollapseState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCollapseState(ctx, ns)
}

func (s *Service) loadCollapseState(ctx context.Context, ns string) (CollapseState, error) {
	types, err := loadList[string](ctx, s.store, ns, kv.KeyCollapsedTypes)
	if err != nil {
		return CollapseState{}, err
	}
	colors, err := loadList[string](ctx, s.store, ns, kv.KeyCollapsedColors)
	if err != nil {
		return CollapseState{}, err
	}
	return CollapseState{Types: types, Colors: colors}, nil
}

// ToggleType folds or unfolds a product type.
func (s *Service) ToggleType(ctx context.Context, ns, productType string) (CollapseState, error) {
	return s.toggle(ctx, ns, kv.KeyCollapsedTypes, productType)
}

// ToggleColor folds or unfolds the colour group of a type.
func (s *Service) ToggleColor(ctx context.Context, ns, productType, color string) (CollapseState, error) {
	return s.toggle(ctx, ns, kv.KeyCollapsedColors, productType+"||"+color)
}

func (s *Service) toggle(ctx context.Context, ns, key, value string) (CollapseState, error) {
	if value == "" {
		return CollapseState{}, invalid("group must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := loadList[string](ctx, s.store, ns, key)
	if err != nil {
		return CollapseState{}, err
	}
	if idx := slices.Index(set, value); idx > -1 {
		set = slices.Delete(set, idx, idx+1)
	} else {
		set = append(set, value)
	}
	if err := saveList(ctx, s.store, ns, key, set); err != nil {
		return CollapseState{}, err
	}
	return s.loadCollapseState(ctx, ns)
}
