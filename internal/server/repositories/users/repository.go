package users

import (
	"context"

	"github.com/quizzyapp/quizzy-backend/internal/server/models"
)

// Repository is the credential store: it persists user records and is the
// only component allowed to see password hashes.
type Repository interface {
	// Create inserts a new user. A duplicate email yields
	// common.ErrorAlreadyExists (backed by the unique constraint, so
	// concurrent registrations for the same email cannot both succeed).
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user with the given email (exact match, no
	// case folding) or common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user with the given id or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// ExistsByEmail reports whether a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// SetVerified flips the verified flag and returns the updated record,
	// or common.ErrorNotFound when no such user exists.
	SetVerified(ctx context.Context, id string) (*models.User, error)
}
