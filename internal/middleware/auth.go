package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lts-health/exams-api/internal/service/token"
)

const (
	// ContextClientID is the gin context key carrying the authenticated
	// client after the auth middleware runs.
	ContextClientID = "client_id"

	bearerPrefix = "Bearer "
)

// Auth validates the bearer token on every request. A token passes only
// when the signature verifies and the token service still holds an
// unexpired record of it.
func Auth(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing authorization header"})
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "authorization header must use the Bearer scheme"})
			return
		}

		claims, err := tokens.Validate(c.Request.Context(), strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid or expired token"})
			return
		}

		c.Set(ContextClientID, claims.ClientID)
		c.Next()
	}
}
