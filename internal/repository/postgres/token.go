package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
)

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (id, client_id, jwt_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.ClientID,
		token.JWTToken,
		token.ExpiresAt,
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (r *tokenRepository) ExistsValid(ctx context.Context, jwtToken string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM auth_tokens
			WHERE jwt_token = $1 AND expires_at > NOW()
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, jwtToken); err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return exists, nil
}

func (r *tokenRepository) GetLatestValid(ctx context.Context, clientID string) (*model.AuthToken, error) {
	query := `
		SELECT * FROM auth_tokens
		WHERE client_id = $1 AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`
	var token model.AuthToken
	err := r.db.GetContext(ctx, &token, query, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get valid token: %w", err)
	}
	return &token, nil
}

func (r *tokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM auth_tokens WHERE expires_at <= NOW()`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
