package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthToken is one issued service token. Rows are never mutated after
// creation; expired rows are removed by the cleanup sweep. A client may
// hold several concurrently valid tokens.
type AuthToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ClientID  string    `json:"client_id" db:"client_id"`
	JWTToken  string    `json:"jwt_token" db:"jwt_token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type IssueTokenRequest struct {
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

type IssueTokenResponse struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"client_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
