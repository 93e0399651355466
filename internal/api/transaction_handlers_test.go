package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/vendmach/vending-service/internal/api"
	"github.com/vendmach/vending-service/internal/infrastructure/auth"
	"github.com/vendmach/vending-service/internal/models"
	pkgerrors "github.com/vendmach/vending-service/pkg/errors"
)

type fakeLedger struct {
	createResult *models.Transaction
	createErr    error
	lookupResult *models.Transaction
	lookupErr    error
	approveErr   error
	cancelResult *models.Transaction
	cancelErr    error
	cancelActor  int32
	cancelRole   models.Role
}

func (f *fakeLedger) Create(ctx context.Context, userID, slotID int32) (*models.Transaction, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeLedger) LookupByCode(ctx context.Context, code string) (*models.Transaction, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.lookupResult, nil
}

func (f *fakeLedger) Approve(ctx context.Context, code string, machineID int32) (*models.ApprovalResult, error) {
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	return &models.ApprovalResult{}, nil
}

func (f *fakeLedger) Cancel(ctx context.Context, id, actorID int32, actorRole models.Role) (*models.Transaction, error) {
	f.cancelActor = actorID
	f.cancelRole = actorRole
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.cancelResult, nil
}

func (f *fakeLedger) List(ctx context.Context) ([]models.Transaction, error) {
	return []models.Transaction{}, nil
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	assert.NoError(t, err)
	return httptest.NewRequest(method, target, bytes.NewReader(buf))
}

func asUser(r *http.Request, userID int32, role models.Role) *http.Request {
	return r.WithContext(auth.ContextWithUser(r.Context(), userID, "tester", role, nil))
}

func asMachine(r *http.Request, userID int32, machineID *int32) *http.Request {
	return r.WithContext(auth.ContextWithUser(r.Context(), userID, "machine", models.RoleMachine, machineID))
}

func TestGetTransactionByCode(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		ledger := &fakeLedger{lookupResult: &models.Transaction{ID: 1, Code: "12345678"}}
		h := api.NewHandler(ledger, nil, nil, false)

		rec := httptest.NewRecorder()
		req := jsonRequest(t, http.MethodPost, "/transactions/by-code", map[string]string{"code": "12345678"})
		h.GetTransactionByCode(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var tx models.Transaction
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
		assert.Equal(t, int32(1), tx.ID)
	})

	t.Run("MissingCodeAnswersNull", func(t *testing.T) {
		ledger := &fakeLedger{lookupErr: pkgerrors.ErrTransactionNotFound}
		h := api.NewHandler(ledger, nil, nil, false)

		rec := httptest.NewRecorder()
		req := jsonRequest(t, http.MethodPost, "/transactions/by-code", map[string]string{"code": "00000000"})
		h.GetTransactionByCode(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "null", rec.Body.String())
	})

	t.Run("EmptyCode", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := jsonRequest(t, http.MethodPost, "/transactions/by-code", map[string]string{})
		h.GetTransactionByCode(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateTransaction(t *testing.T) {
	body := map[string]int32{"userId": 4, "slotId": 7}

	t.Run("OwnPurchase", func(t *testing.T) {
		ledger := &fakeLedger{createResult: &models.Transaction{ID: 1, Code: "12345678", UserID: 4}}
		h := api.NewHandler(ledger, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asUser(jsonRequest(t, http.MethodPost, "/transactions", body), 4, models.RoleUser)
		h.CreateTransaction(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ForeignPurchaseForbidden", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asUser(jsonRequest(t, http.MethodPost, "/transactions", body), 9, models.RoleUser)
		h.CreateTransaction(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("AdminPurchasesForAnyone", func(t *testing.T) {
		ledger := &fakeLedger{createResult: &models.Transaction{ID: 1, Code: "12345678", UserID: 4}}
		h := api.NewHandler(ledger, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asUser(jsonRequest(t, http.MethodPost, "/transactions", body), 9, models.RoleAdmin)
		h.CreateTransaction(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("OutOfStock", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{createErr: pkgerrors.ErrOutOfStock}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asUser(jsonRequest(t, http.MethodPost, "/transactions", body), 4, models.RoleUser)
		h.CreateTransaction(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MissingFields", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asUser(jsonRequest(t, http.MethodPost, "/transactions", map[string]int32{"userId": 4}), 4, models.RoleUser)
		h.CreateTransaction(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestApproveTransaction(t *testing.T) {
	body := map[string]interface{}{"code": "12345678", "vendingMachineId": 2}
	boundMachine := int32(2)

	t.Run("BoundMachineApproves", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asMachine(jsonRequest(t, http.MethodPut, "/transactions/approve", body), 50, &boundMachine)
		h.ApproveTransaction(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MachineCannotApproveElsewhere", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{}, nil, nil, false)

		rec := httptest.NewRecorder()
		foreign := map[string]interface{}{"code": "12345678", "vendingMachineId": 999}
		req := asMachine(jsonRequest(t, http.MethodPut, "/transactions/approve", foreign), 50, &boundMachine)
		h.ApproveTransaction(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("MachineWithoutBindingRejected", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asMachine(jsonRequest(t, http.MethodPut, "/transactions/approve", body), 50, nil)
		h.ApproveTransaction(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("AdminApprovesAnyMachine", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{}, nil, nil, false)

		rec := httptest.NewRecorder()
		foreign := map[string]interface{}{"code": "12345678", "vendingMachineId": 999}
		req := asUser(jsonRequest(t, http.MethodPut, "/transactions/approve", foreign), 1, models.RoleAdmin)
		h.ApproveTransaction(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("WrongMachine", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{approveErr: pkgerrors.ErrWrongMachine}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asMachine(jsonRequest(t, http.MethodPut, "/transactions/approve", body), 50, &boundMachine)
		h.ApproveTransaction(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{approveErr: pkgerrors.ErrTransactionNotFound}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asMachine(jsonRequest(t, http.MethodPut, "/transactions/approve", body), 50, &boundMachine)
		h.ApproveTransaction(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("MissingMachine", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{}, nil, nil, false)

		rec := httptest.NewRecorder()
		h.ApproveTransaction(rec, jsonRequest(t, http.MethodPut, "/transactions/approve", map[string]string{"code": "12345678"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCancelTransaction(t *testing.T) {
	t.Run("PassesActorThrough", func(t *testing.T) {
		ledger := &fakeLedger{cancelResult: &models.Transaction{ID: 1}}
		h := api.NewHandler(ledger, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asUser(httptest.NewRequest(http.MethodDelete, "/transactions/cancel/1", nil), 4, models.RoleUser)
		req = mux.SetURLVars(req, map[string]string{"id": "1"})
		h.CancelTransaction(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int32(4), ledger.cancelActor)
		assert.Equal(t, models.RoleUser, ledger.cancelRole)
	})

	t.Run("Forbidden", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{cancelErr: pkgerrors.ErrForbidden}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asUser(httptest.NewRequest(http.MethodDelete, "/transactions/cancel/1", nil), 9, models.RoleUser)
		req = mux.SetURLVars(req, map[string]string{"id": "1"})
		h.CancelTransaction(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("BadID", func(t *testing.T) {
		h := api.NewHandler(&fakeLedger{}, nil, nil, false)

		rec := httptest.NewRecorder()
		req := asUser(httptest.NewRequest(http.MethodDelete, "/transactions/cancel/abc", nil), 4, models.RoleUser)
		req = mux.SetURLVars(req, map[string]string{"id": "abc"})
		h.CancelTransaction(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
