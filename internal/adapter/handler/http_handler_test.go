package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltdat/flashstock/internal/core/domain"
	"github.com/ltdat/flashstock/internal/core/service"
)

type stubReserver struct {
	reservation *domain.Reservation
	bundle      []domain.Reservation
	err         error

	gotUserID    string
	gotProductID int64
	gotQuantity  int64
	gotItems     []domain.BundleItem
}

func (s *stubReserver) Reserve(_ context.Context, userID string, productID, quantity int64) (*domain.Reservation, error) {
	s.gotUserID, s.gotProductID, s.gotQuantity = userID, productID, quantity
	return s.reservation, s.err
}

func (s *stubReserver) ReserveBundle(_ context.Context, userID string, items []domain.BundleItem) ([]domain.Reservation, error) {
	s.gotUserID, s.gotItems = userID, items
	return s.bundle, s.err
}

type stubCatalog struct {
	product   *domain.Product
	products  []domain.Product
	stock     *domain.ProductStock
	purchases []domain.Purchase
	err       error
}

func (s *stubCatalog) CreateProduct(_ context.Context, name, description string, price, initialStock int64) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: 1, Name: name, Description: description, Price: price, Stock: initialStock, InitialStock: initialStock}, nil
}

func (s *stubCatalog) GetProduct(_ context.Context, _ int64) (*domain.Product, error) {
	return s.product, s.err
}

func (s *stubCatalog) ListProducts(_ context.Context, _, _ int) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubCatalog) GetProductStock(_ context.Context, _ int64) (*domain.ProductStock, error) {
	return s.stock, s.err
}

func (s *stubCatalog) ListPurchases(_ context.Context, _ string, _ int) ([]domain.Purchase, error) {
	return s.purchases, s.err
}

func doRequest(t *testing.T, reserver *stubReserver, catalog *stubCatalog, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	NewHTTPHandler(reserver, catalog).Router().ServeHTTP(rec, req)
	return rec
}

func TestPurchase_Success(t *testing.T) {
	reserver := &stubReserver{reservation: &domain.Reservation{
		PurchaseID: "p-123",
		TotalPrice: 2998,
		Remaining:  7,
	}}

	rec := doRequest(t, reserver, &stubCatalog{}, http.MethodPost, "/api/purchase",
		PurchaseHTTPRequest{UserID: "alice", ProductID: 42, Quantity: 2})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp PurchaseHTTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "p-123", resp.PurchaseID)
	assert.Equal(t, int64(2998), resp.TotalPrice)
	assert.Equal(t, int64(7), resp.Remaining)

	assert.Equal(t, "alice", reserver.gotUserID)
	assert.Equal(t, int64(42), reserver.gotProductID)
	assert.Equal(t, int64(2), reserver.gotQuantity)
}

func TestPurchase_Validation(t *testing.T) {
	cases := []struct {
		name string
		req  PurchaseHTTPRequest
	}{
		{"missing user", PurchaseHTTPRequest{ProductID: 1, Quantity: 1}},
		{"bad product", PurchaseHTTPRequest{UserID: "u", ProductID: 0, Quantity: 1}},
		{"bad quantity", PurchaseHTTPRequest{UserID: "u", ProductID: 1, Quantity: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, &stubReserver{}, &stubCatalog{}, http.MethodPost, "/api/purchase", tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPurchase_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrInsufficientStock, http.StatusGone},
		{service.ErrBusy, http.StatusConflict},
		{service.ErrInconsistent, http.StatusServiceUnavailable},
		{service.ErrUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := doRequest(t, &stubReserver{err: tc.err}, &stubCatalog{}, http.MethodPost, "/api/purchase",
				PurchaseHTTPRequest{UserID: "u", ProductID: 1, Quantity: 1})
			assert.Equal(t, tc.status, rec.Code)

			var resp PurchaseHTTPResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestPurchase_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/purchase", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	NewHTTPHandler(&stubReserver{}, &stubCatalog{}).Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurchaseBundle_Success(t *testing.T) {
	reserver := &stubReserver{bundle: []domain.Reservation{
		{PurchaseID: "p-1", TotalPrice: 100, Remaining: 4},
		{PurchaseID: "p-2", TotalPrice: 200, Remaining: 9},
	}}

	body := map[string]any{
		"user_id": "bob",
		"items": []map[string]int64{
			{"product_id": 1, "quantity": 1},
			{"product_id": 2, "quantity": 2},
		},
	}
	rec := doRequest(t, reserver, &stubCatalog{}, http.MethodPost, "/api/purchase/bundle", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BundleHTTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Reservations, 2)
	assert.Equal(t, "p-1", resp.Reservations[0].PurchaseID)

	require.Len(t, reserver.gotItems, 2)
	assert.Equal(t, domain.BundleItem{ProductID: 2, Quantity: 2}, reserver.gotItems[1])
}

func TestPurchaseBundle_RejectsInvalidLine(t *testing.T) {
	body := map[string]any{
		"user_id": "bob",
		"items":   []map[string]int64{{"product_id": 1, "quantity": 0}},
	}
	rec := doRequest(t, &stubReserver{}, &stubCatalog{}, http.MethodPost, "/api/purchase/bundle", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurchaseBundle_AllOrNothingError(t *testing.T) {
	body := map[string]any{
		"user_id": "bob",
		"items":   []map[string]int64{{"product_id": 1, "quantity": 1}},
	}
	rec := doRequest(t, &stubReserver{err: service.ErrInsufficientStock}, &stubCatalog{}, http.MethodPost, "/api/purchase/bundle", body)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestCreateProduct(t *testing.T) {
	rec := doRequest(t, &stubReserver{}, &stubCatalog{}, http.MethodPost, "/api/products",
		CreateProductHTTPRequest{Name: "widget", Price: 999, InitialStock: 50})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp ProductHTTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "widget", resp.Name)
	assert.Equal(t, int64(50), resp.Stock)
}

func TestCreateProduct_RequiresName(t *testing.T) {
	rec := doRequest(t, &stubReserver{}, &stubCatalog{}, http.MethodPost, "/api/products",
		CreateProductHTTPRequest{Price: 999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	rec := doRequest(t, &stubReserver{}, &stubCatalog{err: service.ErrNotFound}, http.MethodGet, "/api/products/7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProduct_BadID(t *testing.T) {
	rec := doRequest(t, &stubReserver{}, &stubCatalog{}, http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProductStock(t *testing.T) {
	catalog := &stubCatalog{stock: &domain.ProductStock{
		Product:    domain.Product{ID: 3, Stock: 5},
		CacheStock: 4,
		Synced:     false,
	}}
	rec := doRequest(t, &stubReserver{}, catalog, http.MethodGet, "/api/products/3/stock", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProductStockHTTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.ProductID)
	assert.Equal(t, int64(5), resp.DurableStock)
	assert.Equal(t, int64(4), resp.CacheStock)
	assert.False(t, resp.Synced)
}

func TestListPurchases(t *testing.T) {
	at := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	catalog := &stubCatalog{purchases: []domain.Purchase{
		{ID: "p-1", ProductID: 9, Quantity: 1, TotalPrice: 500, PurchasedAt: at},
	}}
	rec := doRequest(t, &stubReserver{}, catalog, http.MethodGet, "/api/users/alice/purchases", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []PurchaseHistoryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "p-1", resp[0].PurchaseID)
	assert.Equal(t, "2025-11-03T12:00:00Z", resp[0].PurchasedAt)
}

func TestHealthCheck(t *testing.T) {
	rec := doRequest(t, &stubReserver{}, &stubCatalog{}, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
