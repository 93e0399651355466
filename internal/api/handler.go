package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	service "github.com/vendmach/vending-service/internal/services"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
)

type Handler struct {
	ledger    service.LedgerService
	accounts  service.AccountService
	inventory service.InventoryService
	debug     bool
}

func NewHandler(ledger service.LedgerService, accounts service.AccountService, inventory service.InventoryService, debug bool) *Handler {
	return &Handler{ledger: ledger, accounts: accounts, inventory: inventory, debug: debug}
}

// errorResponse is the wire shape of every failure: a human-readable
// message, plus the underlying error text when debug is enabled.
type errorResponse struct {
	Message string      `json:"message"`
	Stack   interface{} `json:"stack,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Message: message})
}

// writeServiceError maps the sentinel error taxonomy onto HTTP statuses.
// Storage failures surface as a generic 500; the underlying error text is
// attached only in debug mode.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrUserNotFound),
		errors.Is(err, pkgerrors.ErrSlotNotFound),
		errors.Is(err, pkgerrors.ErrProductNotFound),
		errors.Is(err, pkgerrors.ErrMachineNotFound),
		errors.Is(err, pkgerrors.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidCredentials):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, pkgerrors.ErrForbidden),
		errors.Is(err, pkgerrors.ErrAdminProtected):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, pkgerrors.ErrOutOfStock),
		errors.Is(err, pkgerrors.ErrInsufficientFunds),
		errors.Is(err, pkgerrors.ErrAlreadyConfirmed),
		errors.Is(err, pkgerrors.ErrWrongMachine),
		errors.Is(err, pkgerrors.ErrUsernameExists),
		errors.Is(err, pkgerrors.ErrInvalidRole),
		errors.Is(err, pkgerrors.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		resp := errorResponse{Message: "internal server error"}
		if h.debug {
			resp.Stack = err.Error()
		}
		h.writeJSON(w, http.StatusInternalServerError, resp)
	}
}

func missingFields(fields ...string) string {
	msg := "Missing required fields: "
	for i, f := range fields {
		if i > 0 {
			msg += ", "
		}
		msg += f
	}
	return msg
}

// pathID extracts the numeric {id} path variable.
func pathID(r *http.Request) (int32, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}
