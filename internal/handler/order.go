package handler

import (
	"encoding/json"
	"net/http"

	"github.com/foodworks-dev/counter-pos/internal/domain/order"
)

// orderRequest is the payload for creating or replacing an order.
type orderRequest struct {
	CustomerID string   `json:"customerId"`
	Items      []string `json:"items"`
}

// orderResponse is the client view of an order. The payment timestamp is
// internal bookkeeping and stays hidden.
type orderResponse struct {
	ID                string   `json:"id"`
	CustomerID        string   `json:"customerId"`
	Items             []string `json:"items"`
	Promotions        []string `json:"promotions"`
	Total             float64  `json:"total"`
	TaxTotal          float64  `json:"taxTotal"`
	PreparationTime   int      `json:"preparationTime"`
	PaymentStatus     string   `json:"paymentStatus"`
	PreparationStatus string   `json:"preparationStatus"`
}

// progressResponse tells the client the order state and when to poll next.
type progressResponse struct {
	PaymentStatus     string  `json:"paymentStatus"`
	PreparationStatus string  `json:"preparationStatus"`
	NextPollSecs      float64 `json:"nextPollSecs"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOrderRequest(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Create(r.Context(), req.CustomerID, req.Items)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) replaceOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOrderRequest(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Replace(r.Context(), r.PathValue("id"), req.CustomerID, req.Items)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	progress, err := h.orders.Pay(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProgressResponse(progress))
}

func (h *Handler) checkProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.orders.CheckProgress(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProgressResponse(progress))
}

func decodeOrderRequest(w http.ResponseWriter, r *http.Request) (orderRequest, bool) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return orderRequest{}, false
	}
	if req.CustomerID == "" {
		respondError(w, http.StatusBadRequest, "customerId required")
		return orderRequest{}, false
	}
	return req, true
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:                o.ID,
		CustomerID:        o.CustomerID,
		Items:             o.Items,
		Promotions:        o.Promotions,
		Total:             o.Total.InexactFloat64(),
		TaxTotal:          o.TaxTotal.InexactFloat64(),
		PreparationTime:   o.PreparationTime,
		PaymentStatus:     string(o.PaymentStatus),
		PreparationStatus: string(o.PreparationStatus),
	}
}

func toProgressResponse(p *order.Progress) progressResponse {
	return progressResponse{
		PaymentStatus:     string(p.PaymentStatus),
		PreparationStatus: string(p.PreparationStatus),
		NextPollSecs:      p.NextPollSecs,
	}
}
