package api

import (
	"encoding/json"
	"net/http"

	"github.com/vendmach/vending-service/internal/models"
)

func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.inventory.ListSlots(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, slots)
}

func (h *Handler) GetSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	slot, err := h.inventory.GetSlot(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, slot)
}

func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index            *int32 `json:"index"`
		Stock            int32  `json:"stock"`
		ProductID        *int32 `json:"productId"`
		VendingMachineID int32  `json:"vendingMachineId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Index == nil || req.VendingMachineID == 0 {
		h.writeError(w, http.StatusBadRequest, missingFields("index", "vendingMachineId"))
		return
	}

	slot := &models.Slot{
		Index:            *req.Index,
		Stock:            req.Stock,
		ProductID:        req.ProductID,
		VendingMachineID: req.VendingMachineID,
	}
	if err := h.inventory.CreateSlot(r.Context(), slot); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, slot)
}

// ListSlotsByMachine answers the stocked layout of one machine, each slot
// joined with its product. An optional productName narrows the listing.
func (h *Handler) ListSlotsByMachine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VendingMachineID int32  `json:"vendingMachineId"`
		ProductName      string `json:"productName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VendingMachineID == 0 {
		h.writeError(w, http.StatusBadRequest, missingFields("vendingMachineId"))
		return
	}

	slots, err := h.inventory.ListSlotsByMachine(r.Context(), req.VendingMachineID, req.ProductName)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, slots)
}

func (h *Handler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	existing, err := h.inventory.GetSlot(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var req struct {
		Index *int32 `json:"index"`
		Stock *int32 `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Index != nil {
		existing.Index = *req.Index
	}
	if req.Stock != nil {
		existing.Stock = *req.Stock
	}

	if err := h.inventory.UpdateSlot(r.Context(), existing); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, existing)
}

// AssignProduct stocks a slot with a product, or empties it when
// productId is null.
func (h *Handler) AssignProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	var req struct {
		ProductID *int32 `json:"productId"`
		Stock     int32  `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	slot, err := h.inventory.AssignProduct(r.Context(), id, req.ProductID, req.Stock)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, slot)
}

func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	slot, err := h.inventory.DeleteSlot(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, slot)
}
