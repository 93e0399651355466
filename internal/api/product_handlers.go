package api

import (
	"encoding/json"
	"net/http"

	"github.com/vendmach/vending-service/internal/models"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.ListProducts(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	product, err := h.inventory.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Price *int32 `json:"price"`
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Price == nil {
		h.writeError(w, http.StatusBadRequest, missingFields("name", "price"))
		return
	}

	product := &models.Product{Name: req.Name, Price: *req.Price, Image: req.Image}
	if err := h.inventory.CreateProduct(r.Context(), product); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	existing, err := h.inventory.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// Partial update: absent fields keep their current values.
	var req struct {
		Name  *string `json:"name"`
		Price *int32  `json:"price"`
		Image *string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Price != nil {
		existing.Price = *req.Price
	}
	if req.Image != nil {
		existing.Image = *req.Image
	}

	if err := h.inventory.UpdateProduct(r.Context(), existing); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, existing)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	product, err := h.inventory.DeleteProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, product)
}
