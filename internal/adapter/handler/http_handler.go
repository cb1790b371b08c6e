package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ltdat/flashstock/internal/core/domain"
	"github.com/ltdat/flashstock/internal/core/service"
)

// Reserver is the purchase side of the service layer.
type Reserver interface {
	Reserve(ctx context.Context, userID string, productID, quantity int64) (*domain.Reservation, error)
	ReserveBundle(ctx context.Context, userID string, items []domain.BundleItem) ([]domain.Reservation, error)
}

// Catalog is the product side.
type Catalog interface {
	CreateProduct(ctx context.Context, name, description string, price, initialStock int64) (*domain.Product, error)
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error)
	GetProductStock(ctx context.Context, productID int64) (*domain.ProductStock, error)
	ListPurchases(ctx context.Context, userID string, limit int) ([]domain.Purchase, error)
}

type HTTPHandler struct {
	reserver Reserver
	catalog  Catalog
}

func NewHTTPHandler(reserver Reserver, catalog Catalog) *HTTPHandler {
	return &HTTPHandler{reserver: reserver, catalog: catalog}
}

func (h *HTTPHandler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Post("/purchase", h.Purchase)
		r.Post("/purchase/bundle", h.PurchaseBundle)
		r.Post("/products", h.CreateProduct)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/products/{id}/stock", h.GetProductStock)
		r.Get("/users/{userID}/purchases", h.ListPurchases)
	})
	return r
}

type PurchaseHTTPRequest struct {
	UserID    string `json:"user_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type PurchaseHTTPResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	PurchaseID string `json:"purchase_id,omitempty"`
	TotalPrice int64  `json:"total_price,omitempty"`
	Remaining  int64  `json:"remaining"`
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, PurchaseHTTPResponse{Message: "invalid request body"})
		return
	}
	if req.UserID == "" || req.ProductID <= 0 || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, PurchaseHTTPResponse{Message: "missing required fields"})
		return
	}

	reservation, err := h.reserver.Reserve(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		status, message := mapReserveError(err)
		writeJSON(w, status, PurchaseHTTPResponse{Message: message})
		return
	}

	writeJSON(w, http.StatusOK, PurchaseHTTPResponse{
		Success:    true,
		Message:    "purchase reserved",
		PurchaseID: reservation.PurchaseID,
		TotalPrice: reservation.TotalPrice,
		Remaining:  reservation.Remaining,
	})
}

type BundleHTTPRequest struct {
	UserID string `json:"user_id"`
	Items  []struct {
		ProductID int64 `json:"product_id"`
		Quantity  int64 `json:"quantity"`
	} `json:"items"`
}

type BundleHTTPResponse struct {
	Success      bool                   `json:"success"`
	Message      string                 `json:"message"`
	Reservations []PurchaseHTTPResponse `json:"reservations,omitempty"`
}

func (h *HTTPHandler) PurchaseBundle(w http.ResponseWriter, r *http.Request) {
	var req BundleHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, BundleHTTPResponse{Message: "invalid request body"})
		return
	}
	if req.UserID == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, BundleHTTPResponse{Message: "missing required fields"})
		return
	}

	items := make([]domain.BundleItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, BundleHTTPResponse{Message: "invalid bundle line"})
			return
		}
		items = append(items, domain.BundleItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	reservations, err := h.reserver.ReserveBundle(r.Context(), req.UserID, items)
	if err != nil {
		status, message := mapReserveError(err)
		writeJSON(w, status, BundleHTTPResponse{Message: message})
		return
	}

	out := make([]PurchaseHTTPResponse, len(reservations))
	for i, res := range reservations {
		out[i] = PurchaseHTTPResponse{
			Success:    true,
			PurchaseID: res.PurchaseID,
			TotalPrice: res.TotalPrice,
			Remaining:  res.Remaining,
		}
	}
	writeJSON(w, http.StatusOK, BundleHTTPResponse{
		Success:      true,
		Message:      "bundle reserved",
		Reservations: out,
	})
}

type CreateProductHTTPRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	InitialStock int64  `json:"initial_stock"`
}

type ProductHTTPResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	Stock        int64  `json:"stock"`
	InitialStock int64  `json:"initial_stock"`
}

func productResponse(p domain.Product) ProductHTTPResponse {
	return ProductHTTPResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Stock:        p.Stock,
		InitialStock: p.InitialStock,
	}
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if req.Name == "" || req.Price < 0 || req.InitialStock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing required fields"})
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req.Name, req.Description, req.Price, req.InitialStock)
	if err != nil {
		status, message := mapReserveError(err)
		writeJSON(w, status, map[string]string{"message": message})
		return
	}
	writeJSON(w, http.StatusCreated, productResponse(*product))
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	products, err := h.catalog.ListProducts(r.Context(), offset, limit)
	if err != nil {
		status, message := mapReserveError(err)
		writeJSON(w, status, map[string]string{"message": message})
		return
	}

	out := make([]ProductHTTPResponse, len(products))
	for i, p := range products {
		out[i] = productResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid product id"})
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		status, message := mapReserveError(err)
		writeJSON(w, status, map[string]string{"message": message})
		return
	}
	writeJSON(w, http.StatusOK, productResponse(*product))
}

type ProductStockHTTPResponse struct {
	ProductID    int64 `json:"product_id"`
	DurableStock int64 `json:"durable_stock"`
	CacheStock   int64 `json:"cache_stock"`
	Synced       bool  `json:"synced"`
}

func (h *HTTPHandler) GetProductStock(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid product id"})
		return
	}

	view, err := h.catalog.GetProductStock(r.Context(), id)
	if err != nil {
		status, message := mapReserveError(err)
		writeJSON(w, status, map[string]string{"message": message})
		return
	}
	writeJSON(w, http.StatusOK, ProductStockHTTPResponse{
		ProductID:    view.Product.ID,
		DurableStock: view.Product.Stock,
		CacheStock:   view.CacheStock,
		Synced:       view.Synced,
	})
}

type PurchaseHistoryItem struct {
	PurchaseID  string `json:"purchase_id"`
	ProductID   int64  `json:"product_id"`
	Quantity    int64  `json:"quantity"`
	TotalPrice  int64  `json:"total_price"`
	PurchasedAt string `json:"purchased_at"`
}

func (h *HTTPHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	purchases, err := h.catalog.ListPurchases(r.Context(), userID, limit)
	if err != nil {
		status, message := mapReserveError(err)
		writeJSON(w, status, map[string]string{"message": message})
		return
	}

	out := make([]PurchaseHistoryItem, len(purchases))
	for i, p := range purchases {
		out[i] = PurchaseHistoryItem{
			PurchaseID:  p.ID,
			ProductID:   p.ProductID,
			Quantity:    p.Quantity,
			TotalPrice:  p.TotalPrice,
			PurchasedAt: p.PurchasedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func productID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func mapReserveError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusGone, "sold out"
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict, "stock contended, retry later"
	case errors.Is(err, service.ErrInconsistent):
		return http.StatusServiceUnavailable, "stock state inconsistent, retry later"
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
