package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/infrastructure/auth"
)

// RegisterRequest is the payload of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=200"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Name     string `json:"name" binding:"required,min=1,max=200"`
	Role     string `json:"role" binding:"required,oneof=CLIENT SELLER"`
}

// LoginRequest is the payload of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest is the payload of POST /auth/refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserResponse is the public view of an account
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	User                  *UserResponse `json:"user,omitempty"`
	AccessToken           string        `json:"access_token"`
	RefreshToken          string        `json:"refresh_token"`
	TokenType             string        `json:"token_type"`
	ExpiresAt             time.Time     `json:"expires_at"`
	RefreshTokenExpiresAt time.Time     `json:"refresh_token_expires_at"`
}

// DeactivateSellerResponse reports the outcome of a seller deactivation
type DeactivateSellerResponse struct {
	ProductsDeactivated int64 `json:"products_deactivated"`
}

// ToUserResponse converts a domain User to UserResponse
func ToUserResponse(u *identity.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role.String(),
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func toAuthResponse(u *identity.User, pair *auth.TokenPair) *AuthResponse {
	resp := &AuthResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		TokenType:             pair.TokenType,
		ExpiresAt:             pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
	}
	if u != nil {
		resp.User = ToUserResponse(u)
	}
	return resp
}
