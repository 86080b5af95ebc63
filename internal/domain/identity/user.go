package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/marketplace/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Role is the marketplace side a user acts on
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleSeller Role = "SELLER"
)

// IsValid checks if the role is a known Role
func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleSeller
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

const (
	bcryptCost        = bcrypt.DefaultCost
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt input limit
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ErrInvalidCredentials is returned for unknown email, wrong password or inactive account
var ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// User is a marketplace account, either a client or a seller.
// It is the aggregate root for identity operations.
type User struct {
	shared.BaseAggregateRoot
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Active       bool
	LastLoginAt  *time.Time
}

// NewUser validates the input, hashes the password and returns an active user
func NewUser(email, password, name string, role Role) (*User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot exceed 200 characters")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be CLIENT or SELLER")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password").WithCause(err)
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		Name:              name,
		PasswordHash:      passwordHash,
		Role:              role,
		Active:            true,
	}

	user.RecordEvent(NewUserRegisteredEvent(user))

	return user, nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// CanLogin returns true if the account is active
func (u *User) CanLogin() bool {
	return u.Active
}

// RecordLogin stamps the last successful login
func (u *User) RecordLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// Deactivate disables the account. Orders and products keep referencing it.
func (u *User) Deactivate() error {
	if !u.Active {
		return shared.ErrInvalidState.WithMessage("User is already deactivated")
	}

	u.Active = false
	u.UpdatedAt = time.Now()
	u.BumpVersion()

	u.RecordEvent(NewUserDeactivatedEvent(u))

	return nil
}

// IsClient returns true for CLIENT accounts
func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// IsSeller returns true for SELLER accounts
func (u *User) IsSeller() bool {
	return u.Role == RoleSeller
}

// NormalizeEmail lowercases and trims an email for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 6 characters")
	}
	if len(password) > maxPasswordLength {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
