// Package orders turns customer messages into order drafts and dispatches
// reviewed drafts to the courier.
package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/orderparser"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
	"github.com/mamadbah2/packwrap/pkg/clients/anthropic"
)

var (
	ErrNotFound           = errors.New("draft not found")
	ErrEmptyMessage       = errors.New("order text must not be empty")
	ErrAlreadyDispatched  = errors.New("draft was already dispatched")
	ErrDispatchInProgress = errors.New("draft is being dispatched")
	ErrIncomplete         = errors.New("draft is missing required fields")
)

// requiredForDispatch are the fields the courier refuses orders without.
var requiredForDispatch = []string{"name", "phone", "address", "codAmount"}

// Dispatcher places courier orders with an account's vaulted credentials.
type Dispatcher interface {
	PlaceOrderWithVault(ctx context.Context, ns, passphrase string, order any) (map[string]any, error)
}

// Service manages order drafts.
type Service struct {
	store      kv.Store
	ai         anthropic.Client
	dispatcher Dispatcher
	logger     *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{} // namespace/draft keys with a courier call outstanding
	now      func() time.Time
	newID    func() string
}

// NewService wires the drafts service. ai may be nil, which disables assisted parsing.
func NewService(store kv.Store, ai anthropic.Client, dispatcher Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		ai:         ai,
		dispatcher: dispatcher,
		logger:     logger,
		inflight:   make(map[string]struct{}),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Parse extracts an order from text. With assist set and an AI client
// configured, fields the parser left empty are completed by the model; the
// parser's own results are never overwritten.
func (s *Service) Parse(ctx context.Context, text string, assist bool) models.ParsedOrder {
	order := orderparser.Parse(text)

	missing := order.Missing()
	if !assist || s.ai == nil || len(missing) == 0 || strings.TrimSpace(text) == "" {
		return order
	}

	hint, err := s.ai.ExtractOrder(ctx, text, missing)
	if err != nil {
		s.logger.Warn("ai order extraction failed", zap.Error(err))
		return order
	}
	return fillMissing(order, hint)
}

func fillMissing(order, hint models.ParsedOrder) models.ParsedOrder {
	if order.Name == "" {
		order.Name = hint.Name
	}
	if order.Phone == "" {
		order.Phone = hint.Phone
	}
	if order.Address == "" {
		order.Address = hint.Address
	}
	if order.Size == "" {
		order.Size = hint.Size
	}
	if order.Pieces == nil {
		order.Pieces = hint.Pieces
	}
	if order.CODAmount == nil {
		order.CODAmount = hint.CODAmount
	}
	return order
}

// CreateDraft parses text and stores the result as a new draft.
func (s *Service) CreateDraft(ctx context.Context, ns, source, text string, assist bool) (models.OrderDraft, error) {
	if strings.TrimSpace(text) == "" {
		return models.OrderDraft{}, ErrEmptyMessage
	}

	order := s.Parse(ctx, text, assist)

	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx, ns)
	if err != nil {
		return models.OrderDraft{}, err
	}

	now := s.now().UTC()
	draft := models.OrderDraft{
		ID:        s.newID(),
		Status:    models.DraftPending,
		Source:    source,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, ns, append(drafts, draft)); err != nil {
		return models.OrderDraft{}, err
	}

	s.logger.Info("order draft created",
		zap.String("namespace", ns),
		zap.String("draft_id", draft.ID),
		zap.String("source", source),
		zap.Strings("missing", order.Missing()))
	return draft, nil
}

// ListDrafts returns drafts newest first, optionally filtered by status.
func (s *Service) ListDrafts(ctx context.Context, ns string, status models.DraftStatus) ([]models.OrderDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx, ns)
	if err != nil {
		return nil, err
	}
	drafts = slices.DeleteFunc(drafts, func(d models.OrderDraft) bool {
		return status != "" && d.Status != status
	})
	if drafts == nil {
		drafts = []models.OrderDraft{}
	}
	slices.SortStableFunc(drafts, func(a, b models.OrderDraft) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return drafts, nil
}

// GetDraft returns one draft.
func (s *Service) GetDraft(ctx context.Context, ns, id string) (models.OrderDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx, ns)
	if err != nil {
		return models.OrderDraft{}, err
	}
	idx := indexOf(drafts, id)
	if idx < 0 {
		return models.OrderDraft{}, ErrNotFound
	}
	return drafts[idx], nil
}

// CorrectDraft replaces the parsed fields with manually reviewed ones. The
// original message is kept.
func (s *Service) CorrectDraft(ctx context.Context, ns, id string, order models.ParsedOrder) (models.OrderDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx, ns)
	if err != nil {
		return models.OrderDraft{}, err
	}
	idx := indexOf(drafts, id)
	if idx < 0 {
		return models.OrderDraft{}, ErrNotFound
	}
	if drafts[idx].Status == models.DraftDispatched {
		return models.OrderDraft{}, ErrAlreadyDispatched
	}

	order.Raw = drafts[idx].Order.Raw
	order.Name = strings.TrimSpace(order.Name)
	order.Phone = strings.TrimSpace(order.Phone)
	order.Address = strings.TrimSpace(order.Address)
	order.Size = strings.TrimSpace(order.Size)
	drafts[idx].Order = order
	drafts[idx].UpdatedAt = s.now().UTC()

	if err := s.save(ctx, ns, drafts); err != nil {
		return models.OrderDraft{}, err
	}
	return drafts[idx], nil
}

// DeleteDraft removes a draft.
func (s *Service) DeleteDraft(ctx context.Context, ns, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx, ns)
	if err != nil {
		return err
	}
	idx := indexOf(drafts, id)
	if idx < 0 {
		return ErrNotFound
	}
	return s.save(ctx, ns, slices.Delete(drafts, idx, idx+1))
}

// Dispatch sends a complete draft to the courier with the account's vaulted
// keys and records the consignment.
func (s *Service) Dispatch(ctx context.Context, ns, id, passphrase string) (models.OrderDraft, error) {
	draft, err := s.claimDispatch(ctx, ns, id)
	if err != nil {
		return models.OrderDraft{}, err
	}
	key := ns + "/" + id
	defer func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}()

	resp, err := s.dispatcher.PlaceOrderWithVault(ctx, ns, passphrase, CourierOrder(draft))
	if err != nil {
		return models.OrderDraft{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx, ns)
	if err != nil {
		return models.OrderDraft{}, err
	}
	idx := indexOf(drafts, id)
	if idx < 0 {
		// Deleted while the courier call was in flight; the consignment exists anyway.
		s.logger.Warn("dispatched draft disappeared", zap.String("draft_id", id))
		return models.OrderDraft{}, ErrNotFound
	}

	drafts[idx].Status = models.DraftDispatched
	drafts[idx].ConsignmentID, drafts[idx].TrackingCode = consignment(resp)
	drafts[idx].UpdatedAt = s.now().UTC()
	if err := s.save(ctx, ns, drafts); err != nil {
		return models.OrderDraft{}, err
	}

	s.logger.Info("order dispatched",
		zap.String("namespace", ns),
		zap.String("draft_id", id),
		zap.String("consignment_id", drafts[idx].ConsignmentID))
	return drafts[idx], nil
}

// claimDispatch checks that a draft can be sent and marks it in flight so a
// concurrent call for the same draft is refused instead of placing a second
// consignment.
func (s *Service) claimDispatch(ctx context.Context, ns, id string) (models.OrderDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drafts, err := s.load(ctx, ns)
	if err != nil {
		return models.OrderDraft{}, err
	}
	idx := indexOf(drafts, id)
	if idx < 0 {
		return models.OrderDraft{}, ErrNotFound
	}
	draft := drafts[idx]
	if draft.Status == models.DraftDispatched {
		return models.OrderDraft{}, ErrAlreadyDispatched
	}
	if missing := missingForDispatch(draft.Order); len(missing) > 0 {
		return models.OrderDraft{}, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	key := ns + "/" + id
	if _, busy := s.inflight[key]; busy {
		return models.OrderDraft{}, ErrDispatchInProgress
	}
	s.inflight[key] = struct{}{}
	return draft, nil
}

// CourierOrder builds the courier payload for a draft.
func CourierOrder(d models.OrderDraft) models.CourierOrder {
	var cod float64
	if d.Order.CODAmount != nil {
		cod = *d.Order.CODAmount
	}

	var note []string
	if d.Order.Size != "" {
		note = append(note, d.Order.Size)
	}
	if d.Order.Pieces != nil {
		note = append(note, fmt.Sprintf("%d pcs", *d.Order.Pieces))
	}

	invoice := strings.ReplaceAll(d.ID, "-", "")
	if len(invoice) > 12 {
		invoice = invoice[:12]
	}

	return models.CourierOrder{
		Invoice:          "PW-" + strings.ToUpper(invoice),
		RecipientName:    d.Order.Name,
		RecipientPhone:   d.Order.Phone,
		RecipientAddress: d.Order.Address,
		CODAmount:        cod,
		Note:             strings.Join(note, ", "),
	}
}

func missingForDispatch(o models.ParsedOrder) []string {
	missing := o.Missing()
	return slices.DeleteFunc(missing, func(f string) bool {
		return !slices.Contains(requiredForDispatch, f)
	})
}

// consignment reads the id and tracking code out of the courier response.
func consignment(resp map[string]any) (string, string) {
	c, ok := resp["consignment"].(map[string]any)
	if !ok {
		c = resp
	}
	return stringify(c["consignment_id"]), stringify(c["tracking_code"])
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return models.FormatAmount(x)
	default:
		return fmt.Sprint(x)
	}
}

func indexOf(drafts []models.OrderDraft, id string) int {
	return slices.IndexFunc(drafts, func(d models.OrderDraft) bool { return d.ID == id })
}

func (s *Service) load(ctx context.Context, ns string) ([]models.OrderDraft, error) {
	var drafts []models.OrderDraft
	if _, err := s.store.Get(ctx, ns, kv.KeyOrderDrafts, &drafts); err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}
	return drafts, nil
}

func (s *Service) save(ctx context.Context, ns string, drafts []models.OrderDraft) error {
	if drafts == nil {
		drafts = []models.OrderDraft{}
	}
	if err := s.store.Set(ctx, ns, kv.KeyOrderDrafts, drafts); err != nil {
		return fmt.Errorf("save drafts: %w", err)
	}
	return nil
}
