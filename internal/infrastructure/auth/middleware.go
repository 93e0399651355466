package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vendmach/vending-service/internal/infrastructure/redis"
	"github.com/vendmach/vending-service/internal/models"
)

type ctxKey string

const (
	ctxUserID    ctxKey = "user_id"
	ctxUsername  ctxKey = "username"
	ctxRole      ctxKey = "role"
	ctxMachineID ctxKey = "machine_id"
)

// ContextWithUser attaches the authenticated identity to the context.
// machineID is nil for non-machine roles.
func ContextWithUser(ctx context.Context, userID int32, username string, role models.Role, machineID *int32) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxUsername, username)
	ctx = context.WithValue(ctx, ctxRole, role)
	if machineID != nil {
		ctx = context.WithValue(ctx, ctxMachineID, *machineID)
	}
	return ctx
}

func UserIDFromContext(ctx context.Context) (int32, bool) {
	id, ok := ctx.Value(ctxUserID).(int32)
	return id, ok
}

func RoleFromContext(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(ctxRole).(models.Role)
	return role, ok
}

// MachineIDFromContext reports the vending machine a machine-role token is
// bound to; ok is false for tokens without a machine identity.
func MachineIDFromContext(ctx context.Context) (int32, bool) {
	id, ok := ctx.Value(ctxMachineID).(int32)
	return id, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// Middleware validates the Bearer token and checks it against the
// Redis-stored token for the user, so logging in again or wiping the key
// revokes older tokens.
func Middleware(redisClient redis.RedisClient, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "authorization header missing")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeAuthError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := ParseToken(jwtSecret, parts[1])
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			storedToken, err := redisClient.Get(r.Context(), redis.TokenKey(claims.UserID))
			if err != nil || storedToken != parts[1] {
				slog.Warn("invalid or revoked token", "user_id", claims.UserID, "error", err)
				writeAuthError(w, http.StatusUnauthorized, "invalid or revoked token")
				return
			}

			ctx := ContextWithUser(r.Context(), claims.UserID, claims.Username, claims.Role, claims.MachineID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler behind the given set of roles. It replaces
// per-route role-string arrays with a single check against the closed Role
// enumeration.
func RequireRole(next http.Handler, allowed ...models.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := RoleFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !role.HasAny(allowed...) {
			slog.Warn("role not allowed", "role", role, "path", r.URL.Path)
			writeAuthError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
