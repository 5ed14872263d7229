// Package verificationcodes provides the PostgreSQL-backed store for
// one-time verification codes.
package verificationcodes

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

func (r *PostgresRepository) Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error) {
	query := `
		INSERT INTO verification_codes (id, user_id, type, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, type, created_at, expires_at
	`
	return r.scanCode(r.db.QueryRowContext(ctx, query,
		uuid.NewString(), code.UserID, code.Type, code.ExpiresAt))
}

func (r *PostgresRepository) FindValid(ctx context.Context, id string, codeType models.VerificationCodeType, now time.Time) (*models.VerificationCode, error) {
	query := `
		SELECT id, user_id, type, created_at, expires_at
		FROM verification_codes
		WHERE id = $1 AND type = $2 AND expires_at > $3
	`
	return r.scanCode(r.db.QueryRowContext(ctx, query, id, codeType, now))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM verification_codes WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanCode(row *sql.Row) (*models.VerificationCode, error) {
	code := &models.VerificationCode{}
	err := row.Scan(&code.ID, &code.UserID, &code.Type, &code.CreatedAt, &code.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return code, nil
}
