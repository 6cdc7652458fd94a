// Package handler exposes the POS API over plain net/http. Handlers decode
// requests, delegate to the domain layer, and map domain errors onto the JSON
// error envelope; they hold no business logic of their own.
package handler

import (
	"net/http"

	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
	"github.com/foodworks-dev/counter-pos/internal/domain/order"
	"github.com/foodworks-dev/counter-pos/internal/domain/promotion"
)

// Handler serves the catalog, promotion, and order endpoints.
type Handler struct {
	items      catalog.ItemRepository
	promotions promotion.Repository
	orders     *order.Service
}

// New constructs a Handler with the required domain dependencies.
func New(
	items catalog.ItemRepository,
	promotions promotion.Repository,
	orders *order.Service,
) *Handler {
	return &Handler{
		items:      items,
		promotions: promotions,
		orders:     orders,
	}
}

// Register mounts all routes on the mux. Endpoints that create money
// movement (creating, editing, or paying orders) are wrapped with protect;
// read endpoints are public.
func (h *Handler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}

	mux.HandleFunc("GET /items", h.listItems)
	mux.HandleFunc("GET /items/{id}", h.getItem)
	mux.HandleFunc("GET /promotions", h.listPromotions)
	mux.HandleFunc("GET /promotions/{id}", h.getPromotion)

	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("GET /orders/progress/{id}", h.checkProgress)
	mux.Handle("POST /orders", protect(http.HandlerFunc(h.createOrder)))
	mux.Handle("PUT /orders/{id}", protect(http.HandlerFunc(h.replaceOrder)))
	mux.Handle("DELETE /orders/{id}", protect(http.HandlerFunc(h.deleteOrder)))
	mux.Handle("POST /orders/pay/{id}", protect(http.HandlerFunc(h.payOrder)))
}
