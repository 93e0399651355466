package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vendmach/vending-service/internal/infrastructure/auth"
	"github.com/vendmach/vending-service/internal/models"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	user := &models.User{ID: 4, Username: "alice", Role: models.RoleUser}

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := auth.GenerateToken(secret, time.Minute, user)
		assert.NoError(t, err)

		claims, err := auth.ParseToken(secret, token)
		assert.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, user.Username, claims.Username)
		assert.Equal(t, models.RoleUser, claims.Role)
		assert.Nil(t, claims.MachineID)
	})

	t.Run("MachineBinding", func(t *testing.T) {
		machineID := int32(2)
		machine := &models.User{ID: 7, Username: "machine-2", Role: models.RoleMachine, MachineID: &machineID}
		token, err := auth.GenerateToken(secret, time.Minute, machine)
		assert.NoError(t, err)

		claims, err := auth.ParseToken(secret, token)
		assert.NoError(t, err)
		assert.NotNil(t, claims.MachineID)
		assert.Equal(t, machineID, *claims.MachineID)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := auth.GenerateToken(secret, time.Minute, user)
		assert.NoError(t, err)

		claims, err := auth.ParseToken("other-secret", token)
		assert.Nil(t, claims)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := auth.GenerateToken(secret, -time.Minute, user)
		assert.NoError(t, err)

		claims, err := auth.ParseToken(secret, token)
		assert.Nil(t, claims)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		claims, err := auth.ParseToken(secret, "not-a-token")
		assert.Nil(t, claims)
		assert.Error(t, err)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		bad := &models.User{ID: 4, Username: "alice", Role: models.Role("superuser")}
		token, err := auth.GenerateToken(secret, time.Minute, bad)
		assert.NoError(t, err)

		claims, err := auth.ParseToken(secret, token)
		assert.Nil(t, claims)
		assert.Error(t, err)
	})
}

func TestRoleHasAny(t *testing.T) {
	assert.True(t, models.RoleAdmin.HasAny(models.RoleAdmin, models.RoleUser))
	assert.True(t, models.RoleMachine.HasAny(models.RoleMachine))
	assert.False(t, models.RoleUser.HasAny(models.RoleAdmin, models.RoleMachine))
	assert.False(t, models.RoleUser.HasAny())
}
