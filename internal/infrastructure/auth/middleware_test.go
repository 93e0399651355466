package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vendmach/vending-service/internal/infrastructure/auth"
	"github.com/vendmach/vending-service/internal/infrastructure/redis"
	"github.com/vendmach/vending-service/internal/models"
)

type fakeRedis struct {
	store map[string]string
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.store[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.store[key] = value.(string)
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, key string) error {
	delete(f.store, key)
	return nil
}

func (f *fakeRedis) Close() error { return nil }

func TestAuthMiddleware(t *testing.T) {
	secret := "test-secret"
	user := &models.User{ID: 4, Username: "alice", Role: models.RoleUser}

	issue := func(t *testing.T, rc *fakeRedis) string {
		t.Helper()
		token, err := auth.GenerateToken(secret, time.Minute, user)
		assert.NoError(t, err)
		rc.store[redis.TokenKey(user.ID)] = token
		return token
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.UserIDFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, int32(4), id)
		role, ok := auth.RoleFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, models.RoleUser, role)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("ValidToken", func(t *testing.T) {
		rc := &fakeRedis{store: map[string]string{}}
		token := issue(t, rc)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		auth.Middleware(rc, secret)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MachineClaimPropagated", func(t *testing.T) {
		machineID := int32(2)
		machine := &models.User{ID: 7, Username: "machine-2", Role: models.RoleMachine, MachineID: &machineID}
		token, err := auth.GenerateToken(secret, time.Minute, machine)
		assert.NoError(t, err)
		rc := &fakeRedis{store: map[string]string{redis.TokenKey(machine.ID): token}}

		checkClaim := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bound, ok := auth.MachineIDFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, machineID, bound)
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		auth.Middleware(rc, secret)(checkClaim).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		rc := &fakeRedis{store: map[string]string{}}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		auth.Middleware(rc, secret)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		rc := &fakeRedis{store: map[string]string{}}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", "token abc")
		auth.Middleware(rc, secret)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RevokedToken", func(t *testing.T) {
		rc := &fakeRedis{store: map[string]string{}}
		token := issue(t, rc)
		delete(rc.store, redis.TokenKey(user.ID))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		auth.Middleware(rc, secret)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("SupersededToken", func(t *testing.T) {
		rc := &fakeRedis{store: map[string]string{}}
		old := issue(t, rc)
		rc.store[redis.TokenKey(user.ID)] = "newer-token"

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+old)
		auth.Middleware(rc, secret)(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req = req.WithContext(auth.ContextWithUser(req.Context(), 4, "alice", models.RoleAdmin, nil))
		auth.RequireRole(next, models.RoleAdmin).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("WrongRole", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req = req.WithContext(auth.ContextWithUser(req.Context(), 4, "alice", models.RoleUser, nil))
		auth.RequireRole(next, models.RoleAdmin).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("NotAuthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		auth.RequireRole(next, models.RoleAdmin).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
