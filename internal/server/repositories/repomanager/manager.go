package repomanager

import (
	"context"
	"database/sql"

	"github.com/quizzyapp/quizzy-backend/internal/dbx"
	"github.com/quizzyapp/quizzy-backend/internal/server/repositories/sessions"
	"github.com/quizzyapp/quizzy-backend/internal/server/repositories/users"
	"github.com/quizzyapp/quizzy-backend/internal/server/repositories/verificationcodes"
)

// RepositoryManager vends repositories bound to a DBTX, letting the service
// layer run several stores inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	VerificationCodes(db dbx.DBTX) verificationcodes.Repository
}
