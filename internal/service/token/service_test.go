package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lts-health/exams-api/internal/config"
	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/pkg/apperror"
	"github.com/lts-health/exams-api/pkg/auth"
	"github.com/lts-health/exams-api/pkg/metrics"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var testMetrics = metrics.New("token_test")

type fakeTokenRepo struct {
	tokens  map[string]*model.AuthToken
	loadErr error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*model.AuthToken)}
}

func (r *fakeTokenRepo) Create(_ context.Context, token *model.AuthToken) error {
	if r.loadErr != nil {
		return r.loadErr
	}
	r.tokens[token.JWTToken] = token
	return nil
}

func (r *fakeTokenRepo) ExistsValid(_ context.Context, jwtToken string) (bool, error) {
	if r.loadErr != nil {
		return false, r.loadErr
	}
	record, ok := r.tokens[jwtToken]
	return ok && record.ExpiresAt.After(time.Now()), nil
}

func (r *fakeTokenRepo) GetLatestValid(_ context.Context, clientID string) (*model.AuthToken, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	var latest *model.AuthToken
	for _, record := range r.tokens {
		if record.ClientID != clientID || !record.ExpiresAt.After(time.Now()) {
			continue
		}
		if latest == nil || record.CreatedAt.After(latest.CreatedAt) {
			latest = record
		}
	}
	return latest, nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	if r.loadErr != nil {
		return 0, r.loadErr
	}
	var removed int64
	for key, record := range r.tokens {
		if !record.ExpiresAt.After(time.Now()) {
			delete(r.tokens, key)
			removed++
		}
	}
	return removed, nil
}

func newTestService(t *testing.T, repo *fakeTokenRepo, ttl time.Duration) *Service {
	t.Helper()
	jwtSvc, err := auth.NewJWTService(testSecret)
	require.NoError(t, err)
	creds := []config.ClientCredential{{ClientID: "svc-a", Secret: "topsecret"}}
	return NewService(repo, jwtSvc, creds, ttl, testMetrics, zerolog.Nop())
}

func TestIssueAndValidate(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := newTestService(t, repo, 2*time.Minute)

	resp, err := svc.Issue(context.Background(), model.IssueTokenRequest{
		ClientID:     "svc-a",
		ClientSecret: "topsecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "svc-a", resp.ClientID)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), resp.ExpiresAt, 5*time.Second)

	claims, err := svc.Validate(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "svc-a", claims.ClientID)
}

func TestIssueRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, newFakeTokenRepo(), time.Minute)

	_, err := svc.Issue(context.Background(), model.IssueTokenRequest{
		ClientID: "svc-a", ClientSecret: "wrong",
	})
	assert.Equal(t, apperror.CodeAuthentication, apperror.CodeOf(err))

	_, err = svc.Issue(context.Background(), model.IssueTokenRequest{
		ClientID: "nobody", ClientSecret: "topsecret",
	})
	assert.Equal(t, apperror.CodeAuthentication, apperror.CodeOf(err))
}

func TestIssueAcceptsBcryptHashedSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("topsecret"), bcrypt.MinCost)
	require.NoError(t, err)

	jwtSvc, err := auth.NewJWTService(testSecret)
	require.NoError(t, err)
	svc := NewService(newFakeTokenRepo(), jwtSvc,
		[]config.ClientCredential{{ClientID: "svc-b", Secret: string(hash)}},
		time.Minute, testMetrics, zerolog.Nop())

	_, err = svc.Issue(context.Background(), model.IssueTokenRequest{
		ClientID: "svc-b", ClientSecret: "topsecret",
	})
	assert.NoError(t, err)

	_, err = svc.Issue(context.Background(), model.IssueTokenRequest{
		ClientID: "svc-b", ClientSecret: "nope",
	})
	assert.Equal(t, apperror.CodeAuthentication, apperror.CodeOf(err))
}

func TestValidateRejectsUnstoredToken(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := newTestService(t, repo, time.Minute)

	// Sign a token out of band; it never touches the repository.
	jwtSvc, err := auth.NewJWTService(testSecret)
	require.NoError(t, err)
	rogue, err := jwtSvc.Sign("svc-a", time.Now().Add(time.Minute))
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), rogue)
	assert.Equal(t, apperror.CodeAuthentication, apperror.CodeOf(err))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := newTestService(t, repo, -time.Minute)

	resp, err := svc.Issue(context.Background(), model.IssueTokenRequest{
		ClientID: "svc-a", ClientSecret: "topsecret",
	})
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), resp.Token)
	assert.Equal(t, apperror.CodeAuthentication, apperror.CodeOf(err))
}

func TestGetValidReturnsNewest(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := newTestService(t, repo, time.Minute)

	_, err := svc.Issue(context.Background(), model.IssueTokenRequest{ClientID: "svc-a", ClientSecret: "topsecret"})
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), model.IssueTokenRequest{ClientID: "svc-a", ClientSecret: "topsecret"})
	require.NoError(t, err)

	// Make the second token strictly newer.
	repo.tokens[second.Token].CreatedAt = time.Now().Add(time.Second)

	record, err := svc.GetValid(context.Background(), "svc-a")
	require.NoError(t, err)
	assert.Equal(t, second.Token, record.JWTToken)
}

func TestGetValidNotFound(t *testing.T) {
	svc := newTestService(t, newFakeTokenRepo(), time.Minute)
	_, err := svc.GetValid(context.Background(), "svc-a")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestCleanupRemovesOnlyExpired(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := newTestService(t, repo, time.Minute)

	live, err := svc.Issue(context.Background(), model.IssueTokenRequest{ClientID: "svc-a", ClientSecret: "topsecret"})
	require.NoError(t, err)
	repo.tokens["stale"] = &model.AuthToken{
		ClientID: "svc-a", JWTToken: "stale", ExpiresAt: time.Now().Add(-time.Hour),
	}

	removed, err := svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Contains(t, repo.tokens, live.Token)
	assert.NotContains(t, repo.tokens, "stale")
}

func TestCleanupPropagatesStorageErrors(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := newTestService(t, repo, time.Minute)
	repo.loadErr = errors.New("connection reset")

	_, err := svc.Cleanup(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeStorage, apperror.CodeOf(err))
}
