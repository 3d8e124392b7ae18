package orders

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
)

type fakeAI struct {
	hint   models.ParsedOrder
	err    error
	fields []string
	calls  int
}

func (f *fakeAI) ExtractOrder(_ context.Context, _ string, fields []string) (models.ParsedOrder, error) {
	f.calls++
	f.fields = fields
	return f.hint, f.err
}

type fakeDispatcher struct {
	resp       map[string]any
	err        error
	passphrase string
	order      any
}

func (f *fakeDispatcher) PlaceOrderWithVault(_ context.Context, _, passphrase string, order any) (map[string]any, error) {
	f.passphrase = passphrase
	f.order = order
	return f.resp, f.err
}

const (
	ns       = "karim"
	complete = "Name: Karim\nPhone: 01711223344\nAddress: 12 Green Road, Dhaka\nSize: 10/14 White\nAmount: 5 pcs\nTotal: 5*50=250"
)

func newTestService(ai *fakeAI, dispatcher *fakeDispatcher) *Service {
	var svc *Service
	if ai == nil {
		svc = NewService(kv.NewMemoryStore(), nil, dispatcher, nil)
	} else {
		svc = NewService(kv.NewMemoryStore(), ai, dispatcher, nil)
	}
	clock := time.Date(2024, 10, 5, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("0000000%d-aaaa-bbbb-cccc-dddddddddddd", n)
	}
	return svc
}

func TestParse_AssistFillsOnlyMissingFields(t *testing.T) {
	ai := &fakeAI{hint: models.ParsedOrder{Name: "AI Name", Address: "Mirpur 10, Dhaka"}}
	svc := newTestService(ai, nil)

	order := svc.Parse(context.Background(), "Name: Karim\n01711223344", true)

	assert.Equal(t, "Karim", order.Name)
	assert.Equal(t, "Mirpur 10, Dhaka", order.Address)
	assert.Equal(t, 1, ai.calls)
	assert.NotContains(t, ai.fields, "name")
	assert.Contains(t, ai.fields, "address")
}

func TestParse_AssistErrorsDegradeToParserResult(t *testing.T) {
	ai := &fakeAI{err: errors.New("rate limited")}
	svc := newTestService(ai, nil)

	order := svc.Parse(context.Background(), "Name: Karim", true)
	assert.Equal(t, "Karim", order.Name)
	assert.Empty(t, order.Address)
}

func TestParse_NoAssistWhenComplete(t *testing.T) {
	ai := &fakeAI{}
	svc := newTestService(ai, nil)

	svc.Parse(context.Background(), complete, true)
	svc.Parse(context.Background(), "Name: Karim", false)
	assert.Zero(t, ai.calls)
}

func TestDraftLifecycle(t *testing.T) {
	dispatcher := &fakeDispatcher{resp: map[string]any{
		"status":      200.0,
		"consignment": map[string]any{"consignment_id": 1234567.0, "tracking_code": "TRK1"},
	}}
	svc := newTestService(nil, dispatcher)
	ctx := context.Background()

	_, err := svc.CreateDraft(ctx, ns, "web", "   ", false)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	first, err := svc.CreateDraft(ctx, ns, "web", "Karim\n01711223344", false)
	require.NoError(t, err)
	assert.Equal(t, models.DraftPending, first.Status)

	second, err := svc.CreateDraft(ctx, ns, "whatsapp", complete, false)
	require.NoError(t, err)

	drafts, err := svc.ListDrafts(ctx, ns, "")
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, second.ID, drafts[0].ID)

	_, err = svc.Dispatch(ctx, ns, first.ID, "pass")
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.ErrorContains(t, err, "address")

	cod := 300.0
	corrected, err := svc.CorrectDraft(ctx, ns, first.ID, models.ParsedOrder{
		Name: "Karim", Phone: "01711223344", Address: " Uttara, Dhaka ", CODAmount: &cod, Raw: "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "Uttara, Dhaka", corrected.Order.Address)
	assert.Equal(t, "Karim\n01711223344", corrected.Order.Raw)
	assert.True(t, corrected.UpdatedAt.After(corrected.CreatedAt))

	dispatched, err := svc.Dispatch(ctx, ns, first.ID, "pass")
	require.NoError(t, err)
	assert.Equal(t, models.DraftDispatched, dispatched.Status)
	assert.Equal(t, "1234567", dispatched.ConsignmentID)
	assert.Equal(t, "TRK1", dispatched.TrackingCode)
	assert.Equal(t, "pass", dispatcher.passphrase)

	sent, ok := dispatcher.order.(models.CourierOrder)
	require.True(t, ok)
	assert.Equal(t, "PW-00000001AAAA", sent.Invoice)
	assert.Equal(t, 300.0, sent.CODAmount)

	_, err = svc.Dispatch(ctx, ns, first.ID, "pass")
	assert.ErrorIs(t, err, ErrAlreadyDispatched)
	_, err = svc.CorrectDraft(ctx, ns, first.ID, models.ParsedOrder{})
	assert.ErrorIs(t, err, ErrAlreadyDispatched)

	pending, err := svc.ListDrafts(ctx, ns, models.DraftPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	require.NoError(t, svc.DeleteDraft(ctx, ns, second.ID))
	assert.ErrorIs(t, svc.DeleteDraft(ctx, ns, second.ID), ErrNotFound)
	_, err = svc.GetDraft(ctx, ns, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatch_CourierFailureKeepsDraft(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("HTTP 502")}
	svc := newTestService(nil, dispatcher)
	ctx := context.Background()

	draft, err := svc.CreateDraft(ctx, ns, "web", complete, false)
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, ns, draft.ID, "pass")
	require.Error(t, err)

	got, err := svc.GetDraft(ctx, ns, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftPending, got.Status)

	// A failed call does not leave the draft locked.
	_, err = svc.Dispatch(ctx, ns, draft.ID, "pass")
	assert.NotErrorIs(t, err, ErrDispatchInProgress)
}

// gatedDispatcher holds every courier call until release is closed.
type gatedDispatcher struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedDispatcher) PlaceOrderWithVault(context.Context, string, string, any) (map[string]any, error) {
	g.calls.Add(1)
	g.entered <- struct{}{}
	<-g.release
	return map[string]any{"consignment": map[string]any{"consignment_id": 42.0, "tracking_code": "TRK42"}}, nil
}

func TestDispatch_ConcurrentCallsPlaceOneConsignment(t *testing.T) {
	gate := &gatedDispatcher{entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewService(kv.NewMemoryStore(), nil, gate, nil)
	ctx := context.Background()

	draft, err := svc.CreateDraft(ctx, ns, "web", complete, false)
	require.NoError(t, err)

	type result struct {
		draft models.OrderDraft
		err   error
	}
	done := make(chan result, 1)
	go func() {
		d, err := svc.Dispatch(ctx, ns, draft.ID, "pass")
		done <- result{d, err}
	}()
	<-gate.entered

	_, err = svc.Dispatch(ctx, ns, draft.ID, "pass")
	assert.ErrorIs(t, err, ErrDispatchInProgress)

	close(gate.release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, models.DraftDispatched, first.draft.Status)
	assert.Equal(t, "42", first.draft.ConsignmentID)

	_, err = svc.Dispatch(ctx, ns, draft.ID, "pass")
	assert.ErrorIs(t, err, ErrAlreadyDispatched)
	assert.Equal(t, int32(1), gate.calls.Load())
}

func TestCourierOrder(t *testing.T) {
	pieces, cod := 5, 250.0
	order := CourierOrder(models.OrderDraft{
		ID: "abc",
		Order: models.ParsedOrder{
			Name: "Karim", Phone: "01711223344", Address: "Dhaka", Size: "10/14 White", Pieces: &pieces, CODAmount: &cod,
		},
	})

	assert.Equal(t, models.CourierOrder{
		Invoice:          "PW-ABC",
		RecipientName:    "Karim",
		RecipientPhone:   "01711223344",
		RecipientAddress: "Dhaka",
		CODAmount:        250,
		Note:             "10/14 White, 5 pcs",
	}, order)
}
