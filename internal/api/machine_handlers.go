package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func (h *Handler) ListMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := h.inventory.ListMachines(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, machines)
}

func (h *Handler) GetMachine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	machine, err := h.inventory.GetMachine(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, machine)
}

// CreateMachine provisions a machine together with its empty slots. The
// slot count comes from the ?slotCount query parameter and defaults to
// zero, in which case slots are added individually later.
func (h *Handler) CreateMachine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, missingFields("name"))
		return
	}

	var slotCount int32
	if raw := r.URL.Query().Get("slotCount"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "slotCount must be a non-negative integer")
			return
		}
		slotCount = int32(n)
	}

	machine, err := h.inventory.CreateMachine(r.Context(), req.Name, slotCount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, machine)
}

func (h *Handler) UpdateMachine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, missingFields("name"))
		return
	}

	machine, err := h.inventory.RenameMachine(r.Context(), id, req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, machine)
}

func (h *Handler) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	machine, err := h.inventory.DeleteMachine(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, machine)
}
