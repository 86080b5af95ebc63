package identity

import (
	"testing"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("creates active user with hashed password", func(t *testing.T) {
		user, err := NewUser("  Ana@Example.com ", "secret1", "Ana", RoleClient)
		require.NoError(t, err)

		assert.Equal(t, "ana@example.com", user.Email)
		assert.Equal(t, "Ana", user.Name)
		assert.Equal(t, RoleClient, user.Role)
		assert.True(t, user.Active)
		assert.NotEqual(t, "secret1", user.PasswordHash)
		assert.True(t, user.VerifyPassword("secret1"))
		assert.False(t, user.VerifyPassword("wrong"))
		assert.True(t, user.IsClient())

		events := user.PendingEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeUserRegistered, events[0].EventType())
	})

	tests := []struct {
		name     string
		email    string
		password string
		userName string
		role     Role
		code     string
	}{
		{"bad email", "not-an-email", "secret1", "Ana", RoleClient, "INVALID_EMAIL"},
		{"empty email", "", "secret1", "Ana", RoleClient, "INVALID_EMAIL"},
		{"short password", "a@b.com", "12345", "Ana", RoleClient, "INVALID_PASSWORD"},
		{"empty name", "a@b.com", "secret1", " ", RoleClient, "INVALID_NAME"},
		{"unknown role", "a@b.com", "secret1", "Ana", Role("ADMIN"), "INVALID_ROLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.email, tt.password, tt.userName, tt.role)
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}

func TestUser_Deactivate(t *testing.T) {
	user, err := NewUser("seller@example.com", "secret1", "Loja", RoleSeller)
	require.NoError(t, err)
	user.ClearEvents()

	require.NoError(t, user.Deactivate())
	assert.False(t, user.Active)
	assert.False(t, user.CanLogin())
	require.Len(t, user.PendingEvents(), 1)
	assert.Equal(t, EventTypeUserDeactivated, user.PendingEvents()[0].EventType())

	assert.ErrorIs(t, user.Deactivate(), shared.ErrInvalidState)
}

func TestUser_RecordLogin(t *testing.T) {
	user, err := NewUser("c@example.com", "secret1", "C", RoleClient)
	require.NoError(t, err)
	assert.Nil(t, user.LastLoginAt)
	user.RecordLogin()
	assert.NotNil(t, user.LastLoginAt)
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleClient.IsValid())
	assert.True(t, RoleSeller.IsValid())
	assert.False(t, Role("client").IsValid())
}
