package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lts-health/exams-api/internal/config"
	"github.com/lts-health/exams-api/internal/middleware"
	"github.com/lts-health/exams-api/internal/model"
	tokenService "github.com/lts-health/exams-api/internal/service/token"
	jwtauth "github.com/lts-health/exams-api/pkg/auth"
	"github.com/lts-health/exams-api/pkg/metrics"
)

var testMetrics = metrics.New("auth_handler_test")

type fakeTokenRepo struct {
	tokens map[string]*model.AuthToken
}

func (r *fakeTokenRepo) Create(_ context.Context, token *model.AuthToken) error {
	r.tokens[token.JWTToken] = token
	return nil
}

func (r *fakeTokenRepo) ExistsValid(_ context.Context, jwtToken string) (bool, error) {
	record, ok := r.tokens[jwtToken]
	return ok && record.ExpiresAt.After(time.Now()), nil
}

func (r *fakeTokenRepo) GetLatestValid(_ context.Context, clientID string) (*model.AuthToken, error) {
	for _, record := range r.tokens {
		if record.ClientID == clientID && record.ExpiresAt.After(time.Now()) {
			return record, nil
		}
	}
	return nil, nil
}

func (r *fakeTokenRepo) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc, err := jwtauth.NewJWTService("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	repo := &fakeTokenRepo{tokens: make(map[string]*model.AuthToken)}
	tokens := tokenService.NewService(repo, jwtSvc,
		[]config.ClientCredential{{ClientID: "svc-a", Secret: "topsecret"}},
		2*time.Minute, testMetrics, zerolog.Nop())

	engine := gin.New()
	h := NewHandler(tokens)
	open := engine.Group("/")
	h.RegisterRoutes(open)

	protected := engine.Group("/")
	protected.Use(middleware.Auth(tokens))
	h.RegisterProtectedRoutes(protected)
	protected.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"client_id": c.GetString(middleware.ContextClientID)})
	})
	return engine
}

func issueToken(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	w := doJSON(t, engine, http.MethodPost, "/auth/token",
		`{"client_id": "svc-a", "client_secret": "topsecret"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.IssueTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestIssueTokenFlow(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/auth/token",
		`{"client_id": "svc-a", "client_secret": "topsecret"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.IssueTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "svc-a", resp.ClientID)

	// The issued token opens the protected surface.
	whoami := doJSON(t, engine, http.MethodGet, "/whoami", "", resp.Token)
	require.Equal(t, http.StatusOK, whoami.Code)
	assert.Contains(t, whoami.Body.String(), "svc-a")
}

func TestIssueTokenBadCredentials(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/auth/token",
		`{"client_id": "svc-a", "client_secret": "wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "detail")
}

func TestIssueTokenMissingFields(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/auth/token", `{"client_id": "svc-a"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	bearer := issueToken(t, engine)

	valid := doJSON(t, engine, http.MethodPost, "/auth/validate",
		`{"token": "`+bearer+`"}`, bearer)
	require.Equal(t, http.StatusOK, valid.Code)
	assert.Contains(t, valid.Body.String(), `"valid":true`)

	invalid := doJSON(t, engine, http.MethodPost, "/auth/validate",
		`{"token": "not-a-token"}`, bearer)
	assert.Equal(t, http.StatusUnauthorized, invalid.Code)
}

func TestValidateAndCleanupRequireBearer(t *testing.T) {
	engine := newTestRouter(t)
	bearer := issueToken(t, engine)

	noAuth := doJSON(t, engine, http.MethodPost, "/auth/validate",
		`{"token": "`+bearer+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, noAuth.Code)

	cleanup := doJSON(t, engine, http.MethodDelete, "/auth/cleanup", "", "")
	assert.Equal(t, http.StatusUnauthorized, cleanup.Code)
	assert.Contains(t, cleanup.Body.String(), "detail")

	authed := doJSON(t, engine, http.MethodDelete, "/auth/cleanup", "", bearer)
	require.Equal(t, http.StatusOK, authed.Code)
	assert.Contains(t, authed.Body.String(), "removed")
}

func TestProtectedRouteRequiresBearer(t *testing.T) {
	engine := newTestRouter(t)

	missing := doJSON(t, engine, http.MethodGet, "/whoami", "", "")
	assert.Equal(t, http.StatusUnauthorized, missing.Code)
	assert.Contains(t, missing.Body.String(), "detail")

	bogus := doJSON(t, engine, http.MethodGet, "/whoami", "", "bogus")
	assert.Equal(t, http.StatusUnauthorized, bogus.Code)
}

func TestGetValidTokenByClient(t *testing.T) {
	engine := newTestRouter(t)

	none := doJSON(t, engine, http.MethodGet, "/auth/token/svc-a", "", "")
	assert.Equal(t, http.StatusNotFound, none.Code)

	issued := doJSON(t, engine, http.MethodPost, "/auth/token",
		`{"client_id": "svc-a", "client_secret": "topsecret"}`, "")
	require.Equal(t, http.StatusOK, issued.Code)

	found := doJSON(t, engine, http.MethodGet, "/auth/token/svc-a", "", "")
	require.Equal(t, http.StatusOK, found.Code)
	assert.Contains(t, found.Body.String(), "token")
}
