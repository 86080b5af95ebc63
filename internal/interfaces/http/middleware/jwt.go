package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	JWTRoleKey    = "jwt_role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// PrincipalLoader loads the account behind a token
type PrincipalLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// Principals re-reads the user on every request; unknown or inactive
	// accounts are rejected even while their token is still valid
	Principals PrincipalLoader
	// TokenBlacklist is optional; lookups fail open
	TokenBlacklist auth.TokenBlacklist
	Logger         *zap.Logger
}

// JWTAuth authenticates the bearer token and stores the principal in the
// context. Every failure is a 401 ERR_UNAUTHORIZED.
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			abortUnauthorized(c, log, err, authErrorMessage(err))
			return
		}

		ctx := c.Request.Context()
		if revoked := isRevoked(ctx, cfg.TokenBlacklist, claims, log); revoked {
			abortUnauthorized(c, log, auth.ErrTokenRevoked, "Token has been revoked")
			return
		}

		role := claims.Role
		if cfg.Principals != nil {
			user, err := loadPrincipal(ctx, cfg.Principals, claims)
			if err != nil {
				if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, errInactivePrincipal) {
					log.Error("Failed to load principal", zap.String("user_id", claims.UserID), zap.Error(err))
				}
				abortUnauthorized(c, log, err, "Account not found or inactive")
				return
			}
			role = user.Role.String()
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTRoleKey, role)

		ctx = logger.WithFields(ctx, zap.String("user_id", claims.UserID), zap.String("role", role))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

var errInactivePrincipal = errors.New("principal is inactive")

func loadPrincipal(ctx context.Context, principals PrincipalLoader, claims *auth.Claims) (*identity.User, error) {
	userID, err := claims.UserUUID()
	if err != nil {
		return nil, auth.ErrInvalidClaims
	}
	user, err := principals.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.CanLogin() {
		return nil, errInactivePrincipal
	}
	return user, nil
}

// isRevoked fails open: a blacklist outage must not lock everyone out
func isRevoked(ctx context.Context, blacklist auth.TokenBlacklist, claims *auth.Claims, log *zap.Logger) bool {
	if blacklist == nil {
		return false
	}
	revoked, err := blacklist.IsRevoked(ctx, claims)
	if err != nil {
		log.Error("Failed to check token revocation",
			zap.String("user_id", claims.UserID),
			zap.String("jti", claims.ID),
			zap.Error(err),
		)
		return false
	}
	return revoked
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "Token is not yet valid"
	case errors.Is(err, auth.ErrInvalidTokenType):
		return "Invalid token type"
	default:
		return "Invalid token"
	}
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Debug("JWT authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.Fail(dto.ErrCodeUnauthorized, message, GetRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetRole returns the authenticated caller's role, or "" when anonymous
func GetRole(c *gin.Context) string {
	return c.GetString(JWTRoleKey)
}
