package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
)

type tokenRepository struct {
	BaseRepository
}

func NewTokenRepository(base BaseRepository) repository.TokenRepository {
	return &tokenRepository{base}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.Token) error {
	query := `
		INSERT INTO tokens (id, user_id, token_type, value, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	token.ID = uuid.New()
	token.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.TokenType,
		token.Value,
		token.ExpiresAt,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

func (r *tokenRepository) GetByValue(ctx context.Context, tokenType, value string) (*model.Token, error) {
	var token model.Token
	query := `SELECT * FROM tokens WHERE token_type = $1 AND value = $2`
	err := r.db.GetContext(ctx, &token, query, tokenType, value)
	if err != nil {
		return nil, notFound(err, "token")
	}
	return &token, nil
}

func (r *tokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a revocation record exists for the value.
// Refresh tokens are valid unless a matching record is present.
func (r *tokenRepository) IsRevoked(ctx context.Context, tokenType, value string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tokens WHERE token_type = $1 AND value = $2)`
	err := r.db.GetContext(ctx, &exists, query, tokenType, value)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return exists, nil
}

func (r *tokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
