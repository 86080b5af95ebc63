package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthService handles registration, login and token lifecycle
type AuthService struct {
	userRepo       identity.UserRepository
	jwtService     *auth.JWTService
	blacklist      auth.TokenBlacklist
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAuthService creates a new authentication service.
// blacklist may be nil, in which case logout only logs.
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// SetEventPublisher sets the publisher for UserRegistered events
func (s *AuthService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register creates a CLIENT or SELLER account and signs it in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrAlreadyExists.WithMessage("Email already registered")
	}

	user, err := identity.NewUser(req.Email, req.Password, req.Name, identity.Role(req.Role))
	if err != nil {
		return nil, err
	}

	// the unique index still decides concurrent registrations
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	events := user.PendingEvents()
	user.ClearEvents()
	if s.eventPublisher != nil && len(events) > 0 {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish user events", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role.String()))

	return toAuthResponse(user, pair), nil
}

// Login authenticates by email and password. Unknown email, wrong password
// and inactive accounts all fail with the same INVALID_CREDENTIALS error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown email")
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CanLogin() {
		s.logger.Warn("Login attempt for deactivated account", zap.String("user_id", user.ID.String()))
		return nil, identity.ErrInvalidCredentials
	}
	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, identity.ErrInvalidCredentials
	}

	user.RecordLogin()
	if err := s.userRepo.Save(ctx, user); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))

	return toAuthResponse(user, pair), nil
}

// Refresh exchanges a valid refresh token for a new pair. The account is
// re-read so a deactivated user cannot keep refreshing.
func (s *AuthService) Refresh(ctx context.Context, req RefreshTokenRequest) (*AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}

	userID, err := claims.UserUUID()
	if err != nil {
		return nil, shared.ErrUnauthorized.WithMessage("Invalid user ID in token")
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims)
		if err != nil {
			s.logger.Warn("Token blacklist lookup failed", zap.Error(err))
		} else if revoked {
			return nil, shared.ErrUnauthorized.WithMessage("Refresh token has been revoked")
		}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized.WithMessage("User not found")
		}
		return nil, err
	}
	if !user.CanLogin() {
		s.logger.Warn("Token refresh for inactive user", zap.String("user_id", userID.String()))
		return nil, shared.ErrUnauthorized.WithMessage("Account is no longer active")
	}

	pair, err := s.jwtService.RefreshTokenPair(claims, tokenInput(user))
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, tokenError(err)
	}

	s.logger.Info("Token refreshed successfully", zap.String("user_id", userID.String()))

	return toAuthResponse(user, pair), nil
}

// Logout revokes the presented access token until it would have expired
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil {
		s.logger.Info("User logout without token blacklist", zap.String("user_id", claims.UserID))
		return nil
	}

	ttl := claims.RemainingTTL()
	if ttl <= 0 {
		return nil
	}
	if err := s.blacklist.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return err
	}

	s.logger.Info("User logout", zap.String("user_id", claims.UserID), zap.String("jti", claims.ID))
	return nil
}

// Me returns the current account
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToUserResponse(user), nil
}

func (s *AuthService) issueTokens(user *identity.User) (*auth.TokenPair, error) {
	pair, err := s.jwtService.GenerateTokenPair(tokenInput(user))
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens").WithCause(err)
	}
	return pair, nil
}

func tokenInput(user *identity.User) auth.GenerateTokenInput {
	return auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role.String(),
	}
}

// tokenError maps JWT errors onto UNAUTHORIZED with a readable message
func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.ErrUnauthorized.WithMessage("Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.ErrUnauthorized.WithMessage("Maximum token refresh count exceeded. Please log in again")
	default:
		return shared.ErrUnauthorized.WithMessage("Invalid refresh token")
	}
}
