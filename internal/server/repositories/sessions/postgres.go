// Package sessions provides the PostgreSQL-backed session store.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quizzyapp/quizzy-backend/internal/common"
	"github.com/quizzyapp/quizzy-backend/internal/dbx"
	"github.com/quizzyapp/quizzy-backend/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, user_agent, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, user_agent, created_at, expires_at
	`
	return r.scanSession(r.db.QueryRowContext(ctx, query,
		uuid.NewString(), session.UserID, session.UserAgent, session.ExpiresAt))
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, user_agent, created_at, expires_at
		FROM sessions
		WHERE id = $1
	`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET expires_at = $2
		WHERE id = $1
		RETURNING id, user_id, user_agent, created_at, expires_at
	`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id, expiresAt))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM sessions WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanSession(row *sql.Row) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(&session.ID, &session.UserID, &session.UserAgent, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}
