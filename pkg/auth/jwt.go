package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 32

// ErrSecretTooShort is returned at construction when the signing secret
// does not meet the minimum length. Callers are expected to treat this
// as fatal and refuse to start.
var ErrSecretTooShort = fmt.Errorf("JWT secret must be at least %d bytes", minSecretLength)

// Claims carried in every service token.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 service tokens.
type JWTService interface {
	Sign(clientID string, expiresAt time.Time) (string, error)
	Verify(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
}

func NewJWTService(secret string) (JWTService, error) {
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}
	return &jwtService{secret: []byte(secret)}, nil
}

func (s *jwtService) Sign(clientID string, expiresAt time.Time) (string, error) {
	claims := &Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
