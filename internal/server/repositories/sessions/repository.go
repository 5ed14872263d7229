package sessions

import (
	"context"
	"time"

	"github.com/quizzyapp/quizzy-backend/internal/server/models"
)

// Repository stores login sessions. A session row is the server-side
// authority for a refresh token: deleting the row revokes the token.
type Repository interface {
	// Create inserts a new session and returns it with the generated id.
	Create(ctx context.Context, session *models.Session) (*models.Session, error)

	// Get returns the session with the given id or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Session, error)

	// UpdateExpiry moves the session's expiry and returns the updated row,
	// or common.ErrorNotFound when no such session exists.
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) (*models.Session, error)

	// Delete removes the session. Deleting an absent session is not an
	// error; revocation is idempotent.
	Delete(ctx context.Context, id string) error
}
