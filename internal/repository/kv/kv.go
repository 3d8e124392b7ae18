package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Application keys, kept identical to the web app's local storage keys so
// backups stay interchangeable.
const (
	KeyProducts        = "pw_products"
	KeyInvestments     = "pw_investments"
	KeySales           = "pw_sales"
	KeyExpenses        = "pw_expenses"
	KeyCollapsedTypes  = "pw_collapsed_types"
	KeyCollapsedColors = "pw_collapsed_colors"
	KeyTypes           = "pw_attr_types"
	KeySizes           = "pw_attr_sizes"
	KeyColors          = "pw_attr_colors"
	KeyOrderDrafts     = "pw_order_drafts"
	KeyCourierVault    = "pw_courier_vault"

	// NamespaceUsers holds one entry per canonical username.
	NamespaceUsers = "_users"
)

// ErrCacheMiss is returned by caches for absent keys.
var ErrCacheMiss = errors.New("kv: cache miss")

// Store is the per-key JSON value store used by every service.
type Store interface {
	Get(ctx context.Context, namespace, key string, dst any) (bool, error)
	Set(ctx context.Context, namespace, key string, value any) error
	Delete(ctx context.Context, namespace, key string) error
}

// Cache is the local, fast copy of stored values.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Mirror is the durable cloud copy, one document per namespaced key.
type Mirror interface {
	LoadDocument(ctx context.Context, namespace, key string) ([]byte, bool, error)
	SaveDocument(ctx context.Context, namespace, key string, value []byte) error
	DeleteDocument(ctx context.Context, namespace, key string) error
}

// MirroredStore reads through the cache and writes to both cache and mirror.
// Concurrent writers race; the last write wins.
type MirroredStore struct {
	cache  Cache
	mirror Mirror
	logger *zap.Logger
}

// NewMirroredStore builds a store. A nil mirror keeps values in the cache only.
func NewMirroredStore(cache Cache, mirror Mirror, logger *zap.Logger) *MirroredStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MirroredStore{cache: cache, mirror: mirror, logger: logger}
}

func cacheKey(namespace, key string) string {
	return namespace + "/" + key
}

// Get decodes the value stored under key into dst and reports whether it existed.
func (s *MirroredStore) Get(ctx context.Context, namespace, key string, dst any) (bool, error) {
	ck := cacheKey(namespace, key)

	raw, err := s.cache.Get(ctx, ck)
	switch {
	case err == nil:
	case errors.Is(err, ErrCacheMiss):
		if s.mirror == nil {
			return false, nil
		}
		var found bool
		raw, found, err = s.mirror.LoadDocument(ctx, namespace, key)
		if err != nil {
			return false, fmt.Errorf("load %s from mirror: %w", ck, err)
		}
		if !found {
			return false, nil
		}
		if err := s.cache.Set(ctx, ck, raw); err != nil {
			s.logger.Warn("cache fill failed", zap.String("key", ck), zap.Error(err))
		}
	default:
		return false, fmt.Errorf("read %s from cache: %w", ck, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", ck, err)
	}
	return true, nil
}

// Set encodes value as JSON and stores it in the cache and the mirror.
func (s *MirroredStore) Set(ctx context.Context, namespace, key string, value any) error {
	ck := cacheKey(namespace, key)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ck, err)
	}

	if err := s.cache.Set(ctx, ck, raw); err != nil {
		return fmt.Errorf("write %s to cache: %w", ck, err)
	}

	if s.mirror != nil {
		if err := s.mirror.SaveDocument(ctx, namespace, key, raw); err != nil {
			return fmt.Errorf("write %s to mirror: %w", ck, err)
		}
	}

	s.logger.Debug("value stored", zap.String("key", ck), zap.Int("bytes", len(raw)))
	return nil
}

// Delete removes the key from the cache and the mirror.
func (s *MirroredStore) Delete(ctx context.Context, namespace, key string) error {
	ck := cacheKey(namespace, key)

	if err := s.cache.Delete(ctx, ck); err != nil {
		return fmt.Errorf("delete %s from cache: %w", ck, err)
	}
	if s.mirror != nil {
		if err := s.mirror.DeleteDocument(ctx, namespace, key); err != nil {
			return fmt.Errorf("delete %s from mirror: %w", ck, err)
		}
	}
	return nil
}
