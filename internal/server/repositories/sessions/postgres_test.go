package sessions

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizzyapp/quizzy-backend/internal/common"
	"github.com/quizzyapp/quizzy-backend/internal/server/models"
)

func sessionColumns() []string {
	return []string{"id", "user_id", "user_agent", "created_at", "expires_at"}
}

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	expires := now.Add(30 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(sqlmock.AnyArg(), "user-1", "curl/8.0", expires).
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow("session-1", "user-1", "curl/8.0", now, expires))

	repo := NewPostgresRepository(db)
	created, err := repo.Create(context.Background(), &models.Session{
		UserID: "user-1", UserAgent: "curl/8.0", ExpiresAt: expires,
	})
	require.NoError(t, err)

	assert.Equal(t, "session-1", created.ID)
	assert.Equal(t, "user-1", created.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, user_agent, created_at, expires_at")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewPostgresRepository(db)
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateExpiry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	newExpiry := now.Add(30 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sessions")).
		WithArgs("session-1", newExpiry).
		WillReturnRows(sqlmock.NewRows(sessionColumns()).
			AddRow("session-1", "user-1", "curl/8.0", now, newExpiry))

	repo := NewPostgresRepository(db)
	updated, err := repo.UpdateExpiry(context.Background(), "session-1", newExpiry)
	require.NoError(t, err)
	assert.WithinDuration(t, newExpiry, updated.ExpiresAt, time.Second)
}

func TestDelete_Idempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepository(db)
	assert.NoError(t, repo.Delete(context.Background(), "missing"))
}
