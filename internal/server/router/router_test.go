package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/repository/kv"
	"github.com/mamadbah2/packwrap/internal/server/handlers"
	"github.com/mamadbah2/packwrap/internal/service/auth"
	"github.com/mamadbah2/packwrap/internal/service/bookkeeping"
	"github.com/mamadbah2/packwrap/internal/service/courier"
	"github.com/mamadbah2/packwrap/internal/service/orders"
	"github.com/mamadbah2/packwrap/pkg/clients/steadfast"
	"github.com/mamadbah2/packwrap/pkg/vault"
)

type fakeSteadfast struct {
	balanceErr error
	orderErr   error
	orders     []any
}

func (f *fakeSteadfast) GetBalance(_ context.Context, _ models.CourierCredentials) (map[string]any, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return map[string]any{"status": float64(200), "current_balance": float64(1500)}, nil
}

func (f *fakeSteadfast) PlaceOrder(_ context.Context, _ models.CourierCredentials, order any) (map[string]any, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, order)
	return map[string]any{
		"status": float64(200),
		"consignment": map[string]any{
			"consignment_id": float64(1424107),
			"tracking_code":  "15BAEB8A",
		},
	}, nil
}

type testServer struct {
	engine  *gin.Engine
	courier *fakeSteadfast
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := kv.NewMemoryStore()
	client := &fakeSteadfast{}
	courierSvc := courier.NewService(client, vault.New("steadfast"), store, nil)

	engine := New(Handlers{
		Auth:    handlers.NewAuthHandler(auth.NewService(store, "test-secret", time.Hour, nil), nil),
		Books:   handlers.NewBooksHandler(bookkeeping.NewService(store, nil), nil),
		Courier: handlers.NewCourierHandler(courierSvc, nil),
		Orders:  handlers.NewOrdersHandler(orders.NewService(store, nil, courierSvc, nil), nil),
	}, nil)

	return &testServer{engine: engine, courier: client}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()

	creds := map[string]string{"username": username, "password": "secret123"}
	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "Karim")

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "karim", "password": "another1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "karim", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/products", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/products", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func seedProduct(t *testing.T, s *testServer, token string) {
	t.Helper()
	for kind, value := range map[string]string{"types": "Poly", "sizes": "10x12", "colors": "Red"} {
		rec := s.do(t, http.MethodPost, "/api/attributes/"+kind, token, map[string]string{"value": value})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(t, http.MethodPut, "/api/products", token, map[string]any{
		"product": map[string]any{"type": "Poly", "size": "10x12", "color": "Red", "buy1": 1.5, "sell1": 2},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestBooksFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "karim")
	seedProduct(t, s, token)

	rec := s.do(t, http.MethodPost, "/api/investments", token, map[string]any{
		"key": "10x12 | Red", "packs": 5, "batch": 1, "date": "2024-05-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[models.InventoryEntry](t, rec)
	assert.Equal(t, 750.0, entry.Cost)
	assert.NotEmpty(t, entry.ID)

	rec = s.do(t, http.MethodGet, "/api/inventory", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	levels := decode[[]models.InventoryLevel](t, rec)
	require.Len(t, levels, 1)
	assert.Equal(t, 5, levels[0].Remaining)

	rec = s.do(t, http.MethodPost, "/api/investments", token, map[string]any{"key": "10x12 | Red", "packs": 0, "batch": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/attributes/colors?value=Red", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/investments/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/investments/"+entry.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBooksAreIsolatedPerAccount(t *testing.T) {
	s := newTestServer(t)
	karim := s.login(t, "karim")
	rahim := s.login(t, "rahim")
	seedProduct(t, s, karim)

	rec := s.do(t, http.MethodGet, "/api/products", rahim, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Product](t, rec))
}

func TestImportCSV(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "karim")

	csv := "date,type,description,amountTK\n2024-05-01,Transport,Van,300\n2024-05-02,,Tape,50\n"
	rec := s.do(t, http.MethodPost, "/api/import/expenses", token, csv)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"imported":2}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/import/unknown", token, csv)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCourierProxy(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/courier/balance", "", map[string]string{"apiKey": "k"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"apiKey and secretKey are required"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/courier/balance", "", map[string]string{"apiKey": "k", "secretKey": "s"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"current_balance":1500}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/courier/orders", "", map[string]string{"apiKey": "k", "secretKey": "s"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"apiKey, secretKey and order are required"}`, rec.Body.String())

	s.courier.orderErr = &steadfast.UpstreamError{Status: 422, Message: "Invalid recipient phone"}
	rec = s.do(t, http.MethodPost, "/api/courier/orders", "", map[string]any{
		"apiKey": "k", "secretKey": "s", "order": map[string]any{"invoice": "INV-1"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"Invalid recipient phone"}`, rec.Body.String())
}

func TestOrderDraftDispatch(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "karim")

	rec := s.do(t, http.MethodPut, "/api/courier/vault", token, map[string]string{
		"passphrase": "open sesame", "apiKey": "k", "secretKey": "s",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/courier/vault", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[courier.VaultStatus](t, rec).Saved)

	rec = s.do(t, http.MethodPost, "/api/orders", token, map[string]any{"text": "order please"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	draft := decode[models.OrderDraft](t, rec)

	rec = s.do(t, http.MethodPost, "/api/orders/"+draft.ID+"/dispatch", token, map[string]string{"passphrase": "open sesame"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/orders/"+draft.ID, token, map[string]any{
		"name": "Karim", "phone": "01711223344", "address": "House 5, Mirpur 10", "codAmount": 1250,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/orders/"+draft.ID+"/dispatch", token, map[string]string{"passphrase": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/orders/"+draft.ID+"/dispatch", token, map[string]string{"passphrase": "open sesame"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dispatched := decode[models.OrderDraft](t, rec)
	assert.Equal(t, models.DraftDispatched, dispatched.Status)
	assert.Equal(t, "1424107", dispatched.ConsignmentID)
	assert.Equal(t, "15BAEB8A", dispatched.TrackingCode)
	require.Len(t, s.courier.orders, 1)

	rec = s.do(t, http.MethodPost, "/api/orders/"+draft.ID+"/dispatch", token, map[string]string{"passphrase": "open sesame"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/orders?status=dispatched", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.OrderDraft](t, rec), 1)
}

func TestParseDoesNotStoreDrafts(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "karim")

	rec := s.do(t, http.MethodPost, "/api/orders/parse", token, map[string]any{"text": "Phone: 01711223344"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "01711223344"))

	rec = s.do(t, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
