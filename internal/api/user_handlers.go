package api

import (
	"encoding/json"
	"net/http"

	"github.com/vendmach/vending-service/internal/models"
)

// userResponse hides the password hash from all user-facing payloads.
type userResponse struct {
	ID       int32       `json:"id"`
	Name     string      `json:"name"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	Balance  int32       `json:"balance"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Username: u.Username, Role: u.Role, Balance: u.Balance}
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	resp := make([]userResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	user, err := h.accounts.GetUser(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) QueryUsers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query models.Query `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	users, count, err := h.accounts.QueryUsers(r.Context(), req.Query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	resp := make([]userResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": resp,
		"count": count,
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	user, err := h.accounts.DeleteUser(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

// SetUserBalance is the admin top-up/reset endpoint; it is the only
// balance mutation outside of transaction approval.
func (h *Handler) SetUserBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, missingFields("id"))
		return
	}
	var req struct {
		Balance *int32 `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Balance == nil {
		h.writeError(w, http.StatusBadRequest, missingFields("balance"))
		return
	}

	newBalance, err := h.accounts.SetBalance(r.Context(), id, *req.Balance)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int32{"id": id, "balance": newBalance})
}
