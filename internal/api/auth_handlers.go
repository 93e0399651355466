package api

import (
	"encoding/json"
	"net/http"

	"github.com/vendmach/vending-service/internal/models"
)

type authedUser struct {
	ID        int32       `json:"id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	MachineID *int32      `json:"machineId,omitempty"`
	Token     string      `json:"token"`
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name             string `json:"name"`
		Username         string `json:"username"`
		Password         string `json:"password"`
		Role             string `json:"role"`
		VendingMachineID *int32 `json:"vendingMachineId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Username == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, missingFields("name", "username", "password"))
		return
	}

	user, token, err := h.accounts.SignUp(r.Context(), req.Name, req.Username, req.Password, req.Role, req.VendingMachineID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]authedUser{"user": {
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		MachineID: user.MachineID,
		Token:     token,
	}})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, missingFields("username", "password"))
		return
	}

	user, token, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]authedUser{"user": {
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		Token:    token,
	}})
}
