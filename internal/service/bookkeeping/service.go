// Package bookkeeping keeps the product catalogue, purchases, sales and
// expenses of one business account. Every operation is scoped to a namespace,
// the canonical username of the caller.
package bookkeeping

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/repository/kv"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	// recentSalesLimit is the number of rows in the recent sales panel.
	recentSalesLimit = 8
	// lowStockThreshold flags product keys with fewer packs left.
	lowStockThreshold = 3
	// maxBoostDays caps a single boost range.
	maxBoostDays = 366
)

var (
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrNotFound         = errors.New("record not found")
	ErrAttributeInUse   = errors.New("attribute is still used by one or more products")
	ErrInvalidRange     = errors.New("invalid date range")
)

// Service implements the bookkeeping operations on top of the KV store.
type Service struct {
	store  kv.Store
	logger *zap.Logger

	// mu serialises read-modify-write cycles issued by this process.
	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewService wires a bookkeeping service.
func NewService(store kv.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Service) today() string {
	return s.now().Format(dateLayout)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, args...))
}

// normalizeDate defaults an empty date to today and rejects anything that is
// not YYYY-MM-DD.
func (s *Service) normalizeDate(date string) (string, error) {
	if date == "" {
		return s.today(), nil
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", invalid("date %q must be YYYY-MM-DD", date)
	}
	return date, nil
}

func validBatch(batch int) bool {
	return batch == 1 || batch == 2
}

func loadList[T any](ctx context.Context, store kv.Store, ns, key string) ([]T, error) {
	var out []T
	if _, err := store.Get(ctx, ns, key, &out); err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func saveList[T any](ctx context.Context, store kv.Store, ns, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	if err := store.Set(ctx, ns, key, items); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// loadRecords loads a record list and backfills IDs on legacy records, which
// were addressed by position before.
func loadRecords[T any](ctx context.Context, s *Service, ns, key string, id func(*T) *string) ([]T, error) {
	items, err := loadList[T](ctx, s.store, ns, key)
	if err != nil {
		return nil, err
	}

	changed := false
	for i := range items {
		if p := id(&items[i]); *p == "" {
			*p = s.newID()
			changed = true
		}
	}
	if changed {
		if err := saveList(ctx, s.store, ns, key, items); err != nil {
			return nil, err
		}
		s.logger.Info("assigned ids to legacy records", zap.String("namespace", ns), zap.String("key", key))
	}
	return items, nil
}

func removeByID[T any](items []T, id string, get func(*T) *string) ([]T, bool) {
	for i := range items {
		if *get(&items[i]) == id {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}
