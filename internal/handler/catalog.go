package handler

import (
	"net/http"

	"github.com/foodworks-dev/counter-pos/internal/domain/catalog"
	"github.com/foodworks-dev/counter-pos/internal/domain/promotion"
)

type itemResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	PrepTime int     `json:"prepTime"`
	TaxRate  float64 `json:"taxRate"`
}

type promotionResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Description     string   `json:"description,omitempty"`
	ItemsRequired   []string `json:"itemsRequired"`
	ItemsDiscounted []string `json:"itemsDiscounted"`
	Amount          float64  `json:"amount,omitempty"`
	Percentage      float64  `json:"percentage,omitempty"`
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]itemResponse, len(items))
	for i, it := range items {
		out[i] = toItemResponse(it)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.items.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toItemResponse(*it))
}

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	promos, err := h.promotions.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]promotionResponse, len(promos))
	for i, p := range promos {
		out[i] = toPromotionResponse(p)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.promotions.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPromotionResponse(*p))
}

func toItemResponse(it catalog.Item) itemResponse {
	return itemResponse{
		ID:       it.ID,
		Name:     it.Name,
		Price:    it.Price.InexactFloat64(),
		PrepTime: it.PrepTime,
		TaxRate:  it.TaxRate.InexactFloat64(),
	}
}

// toPromotionResponse hides the active flag, mirroring the catalog's view of
// promotions as published rules.
func toPromotionResponse(p promotion.Promotion) promotionResponse {
	return promotionResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		ItemsRequired:   p.ItemsRequired,
		ItemsDiscounted: p.ItemsDiscounted,
		Amount:          p.Amount.InexactFloat64(),
		Percentage:      p.Percentage.InexactFloat64(),
	}
}
