package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vendmach/vending-service/internal/infrastructure/auth"
	"github.com/vendmach/vending-service/internal/models"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
)

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.ledger.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transactions)
}

// GetTransactionByCode mirrors the lookup the client polls while waiting at
// the machine. A missing code answers 200 with a null body rather than 404.
func (h *Handler) GetTransactionByCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		h.writeError(w, http.StatusBadRequest, missingFields("code"))
		return
	}

	tx, err := h.ledger.LookupByCode(r.Context(), req.Code)
	if errors.Is(err, pkgerrors.ErrTransactionNotFound) {
		h.writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int32 `json:"userId"`
		SlotID int32 `json:"slotId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 || req.SlotID == 0 {
		h.writeError(w, http.StatusBadRequest, missingFields("userId", "slotId"))
		return
	}

	// A user-role caller may only purchase for itself.
	actorID, _ := auth.UserIDFromContext(r.Context())
	actorRole, _ := auth.RoleFromContext(r.Context())
	if actorRole != models.RoleAdmin && req.UserID != actorID {
		h.writeError(w, http.StatusForbidden, pkgerrors.ErrForbidden.Error())
		return
	}

	tx, err := h.ledger.Create(r.Context(), req.UserID, req.SlotID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// ConfirmTransaction reports the confirmation state for a code; the client
// uses it to find out whether the machine has dispensed yet.
func (h *Handler) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		h.writeError(w, http.StatusBadRequest, missingFields("code"))
		return
	}

	tx, err := h.ledger.LookupByCode(r.Context(), req.Code)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":               tx.ID,
		"hasConfirmed":     tx.HasConfirmed,
		"vendingMachineId": tx.VendingMachineID,
	})
}

func (h *Handler) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code             string `json:"code"`
		VendingMachineID int32  `json:"vendingMachineId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.VendingMachineID == 0 {
		h.writeError(w, http.StatusBadRequest, missingFields("code", "vendingMachineId"))
		return
	}

	// A machine-role token may only approve at the machine it is bound to.
	actorRole, _ := auth.RoleFromContext(r.Context())
	if actorRole == models.RoleMachine {
		boundMachine, ok := auth.MachineIDFromContext(r.Context())
		if !ok || boundMachine != req.VendingMachineID {
			h.writeError(w, http.StatusForbidden, pkgerrors.ErrForbidden.Error())
			return
		}
	}

	result, err := h.ledger.Approve(r.Context(), req.Code, req.VendingMachineID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Transaction ID is required")
		return
	}

	actorID, _ := auth.UserIDFromContext(r.Context())
	actorRole, _ := auth.RoleFromContext(r.Context())

	tx, err := h.ledger.Cancel(r.Context(), id, actorID, actorRole)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}
