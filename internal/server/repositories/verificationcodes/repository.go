package verificationcodes

import (
	"context"
	"time"

	"github.com/quizzyapp/quizzy-backend/internal/server/models"
)

// Repository stores one-time verification codes. The code's id doubles as
// the opaque token placed in emailed links.
type Repository interface {
	// Create inserts a new code and returns it with the generated id.
	Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error)

	// FindValid returns the code with the given id only when it has the
	// expected type and has not expired as of now. Anything else is
	// common.ErrorNotFound; callers cannot distinguish absent, expired and
	// wrong-type codes.
	FindValid(ctx context.Context, id string, codeType models.VerificationCodeType, now time.Time) (*models.VerificationCode, error)

	// Delete consumes the code. A missing row yields common.ErrorNotFound
	// so concurrent consumers cannot both succeed.
	Delete(ctx context.Context, id string) error
}
