package token

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/lts-health/exams-api/internal/config"
	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
	"github.com/lts-health/exams-api/pkg/apperror"
	"github.com/lts-health/exams-api/pkg/auth"
	"github.com/lts-health/exams-api/pkg/metrics"
)

const bcryptPrefix = "$2"

// Service issues and validates short-lived service tokens for the
// client-credentials flow.
type Service struct {
	repo        repository.TokenRepository
	jwt         auth.JWTService
	credentials map[string]string
	tokenTTL    time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewService(repo repository.TokenRepository, jwt auth.JWTService, creds []config.ClientCredential, tokenTTL time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Service {
	credentials := make(map[string]string, len(creds))
	for _, c := range creds {
		credentials[c.ClientID] = c.Secret
	}
	return &Service{
		repo:        repo,
		jwt:         jwt,
		credentials: credentials,
		tokenTTL:    tokenTTL,
		metrics:     m,
		logger:      logger.With().Str("component", "token_service").Logger(),
	}
}

// Issue checks the client credentials and returns a freshly signed
// token, persisted so validation can fail closed on tokens this service
// never issued. Invalid client and invalid secret are indistinguishable
// to the caller.
func (s *Service) Issue(ctx context.Context, req model.IssueTokenRequest) (*model.IssueTokenResponse, error) {
	if !s.checkCredentials(req.ClientID, req.ClientSecret) {
		s.metrics.TokensRejected.Inc()
		s.logger.Warn().Str("client_id", req.ClientID).Msg("credential check failed")
		return nil, apperror.Authentication("invalid client credentials")
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	signed, err := s.jwt.Sign(req.ClientID, expiresAt)
	if err != nil {
		return nil, apperror.Storage(fmt.Errorf("failed to sign token: %w", err))
	}

	now := time.Now()
	record := &model.AuthToken{
		ID:        uuid.New(),
		ClientID:  req.ClientID,
		JWTToken:  signed,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, apperror.Storage(err)
	}

	s.metrics.TokensIssued.Inc()
	s.logger.Info().Str("client_id", req.ClientID).Time("expires_at", expiresAt).Msg("token issued")
	return &model.IssueTokenResponse{
		Token:     signed,
		ClientID:  req.ClientID,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate accepts a token only when it verifies cryptographically AND
// a matching unexpired row exists. A signature-valid token this service
// never stored is rejected.
func (s *Service) Validate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwt.Verify(token)
	if err != nil {
		return nil, apperror.Authentication("invalid or expired token")
	}

	valid, err := s.repo.ExistsValid(ctx, token)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if !valid {
		return nil, apperror.Authentication("token not recognized or expired")
	}
	return claims, nil
}

// GetValid returns the newest unexpired token for a client, or a
// not-found error when none exists.
func (s *Service) GetValid(ctx context.Context, clientID string) (*model.AuthToken, error) {
	record, err := s.repo.GetLatestValid(ctx, clientID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if record == nil {
		return nil, apperror.NotFound("no valid token for client")
	}
	return record, nil
}

// Cleanup removes expired token rows and returns how many went. Errors
// propagate so the caller can alert instead of silently retaining rows.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	if removed > 0 {
		s.metrics.TokensCleaned.Add(float64(removed))
		s.logger.Info().Int64("removed", removed).Msg("expired tokens removed")
	}
	return removed, nil
}

// checkCredentials compares in constant time. Secrets configured with a
// bcrypt prefix are treated as hashes, anything else as plaintext.
func (s *Service) checkCredentials(clientID, secret string) bool {
	stored, ok := s.credentials[clientID]
	if !ok {
		// Burn comparable time so absent clients are not distinguishable.
		subtle.ConstantTimeCompare([]byte(secret), []byte(secret))
		return false
	}
	if strings.HasPrefix(stored, bcryptPrefix) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) == 1
}
