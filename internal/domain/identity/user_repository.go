package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists accounts. Lookups that find nothing return
// shared.ErrNotFound.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail expects the email already normalized with NormalizeEmail
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Save upserts by ID. A duplicate email maps to shared.ErrAlreadyExists.
	Save(ctx context.Context, user *User) error
}
