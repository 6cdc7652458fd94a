package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
	"github.com/foodworks-dev/counter-pos/internal/domain/order"
	"github.com/foodworks-dev/counter-pos/internal/domain/promotion"
)

// errorResponse is the JSON error envelope shared by every endpoint.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Best effort: the status is already written, failures here mean the
	// client went away.
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps domain errors onto HTTP statuses. Unrecognized
// errors are logged and surfaced as opaque 500s.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var infErr *order.ItemNotFoundError

	switch {
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrConflict):
		respondError(w, http.StatusConflict, "order has already been paid for or is being prepared")
	case errors.Is(err, order.ErrPaymentRequired):
		respondError(w, http.StatusPaymentRequired, "order has not been paid")
	case errors.Is(err, order.ErrEmptyItems):
		respondError(w, http.StatusBadRequest, "items required")
	case errors.As(err, &infErr):
		respondError(w, http.StatusUnprocessableEntity, infErr.Error())
	case errors.Is(err, catalog.ErrCustomerNotFound):
		respondError(w, http.StatusUnprocessableEntity, "customer not found")
	case errors.Is(err, catalog.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, promotion.ErrNotFound):
		respondError(w, http.StatusNotFound, "promotion not found")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
