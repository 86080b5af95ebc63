package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimsAt(userID string, issuedAt time.Time) *auth.Claims {
	c := &auth.Claims{UserID: userID}
	c.ID = uuid.NewString()
	c.IssuedAt = jwt.NewNumericDate(issuedAt)
	return c
}

func TestInMemoryTokenBlacklist_RevokeToken(t *testing.T) {
	ctx := context.Background()
	bl := auth.NewInMemoryTokenBlacklist()
	revoked := claimsAt("u1", time.Now())
	other := claimsAt("u1", time.Now())

	require.NoError(t, bl.RevokeToken(ctx, revoked.ID, time.Hour))

	got, err := bl.IsRevoked(ctx, revoked)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = bl.IsRevoked(ctx, other)
	require.NoError(t, err)
	assert.False(t, got, "revocation is per token id")
}

func TestInMemoryTokenBlacklist_TokenEntryExpires(t *testing.T) {
	ctx := context.Background()
	bl := auth.NewInMemoryTokenBlacklist()
	c := claimsAt("u1", time.Now())

	require.NoError(t, bl.RevokeToken(ctx, c.ID, 5*time.Millisecond))
	assert.Eventually(t, func() bool {
		got, err := bl.IsRevoked(ctx, c)
		return err == nil && !got
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryTokenBlacklist_NonPositiveTTLIsIgnored(t *testing.T) {
	ctx := context.Background()
	bl := auth.NewInMemoryTokenBlacklist()
	c := claimsAt("u1", time.Now())

	require.NoError(t, bl.RevokeToken(ctx, c.ID, 0))

	got, err := bl.IsRevoked(ctx, c)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestInMemoryTokenBlacklist_RevokeUser(t *testing.T) {
	ctx := context.Background()
	bl := auth.NewInMemoryTokenBlacklist()
	before := claimsAt("u1", time.Now().Add(-time.Minute))

	got, err := bl.IsRevoked(ctx, before)
	require.NoError(t, err)
	assert.False(t, got)

	require.NoError(t, bl.RevokeUser(ctx, "u1", time.Hour))

	tests := []struct {
		name   string
		claims *auth.Claims
		want   bool
	}{
		{"issued before revocation", before, true},
		{"issued after revocation", claimsAt("u1", time.Now().Add(time.Minute)), false},
		{"other user", claimsAt("u2", time.Now().Add(-time.Minute)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bl.IsRevoked(ctx, tt.claims)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInMemoryTokenBlacklist_Concurrent(t *testing.T) {
	ctx := context.Background()
	bl := auth.NewInMemoryTokenBlacklist()

	claims := make([]*auth.Claims, 50)
	for i := range claims {
		claims[i] = claimsAt(uuid.NewString(), time.Now())
	}

	done := make(chan struct{})
	for _, c := range claims {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = bl.RevokeToken(ctx, c.ID, time.Hour)
			_, _ = bl.IsRevoked(ctx, c)
		}()
	}
	for range claims {
		<-done
	}

	for _, c := range claims {
		got, err := bl.IsRevoked(ctx, c)
		require.NoError(t, err)
		assert.True(t, got)
	}
}
