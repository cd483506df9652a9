package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lts-health/exams-api/internal/handler"
	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/service/token"
)

type Handler struct {
	tokens *token.Service
}

func NewHandler(tokens *token.Service) *Handler {
	return &Handler{tokens: tokens}
}

// RegisterRoutes wires the endpoints a caller can reach without a
// bearer token: issuance is the way in, and the by-client lookup
// returns nothing usable without the credentials to mint a token.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/token", h.IssueToken)
		auth.GET("/token/:client_id", h.GetValidToken)
	}
}

// RegisterProtectedRoutes wires the endpoints that require a bearer
// token: validation of another token and the cleanup sweep.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/validate", h.ValidateToken)
		auth.DELETE("/cleanup", h.Cleanup)
	}
}

func (h *Handler) IssueToken(c *gin.Context) {
	var req model.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "client_id and client_secret are required")
		return
	}
	resp, err := h.tokens.Issue(c.Request.Context(), req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type validateRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *Handler) ValidateToken(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "token is required")
		return
	}
	claims, err := h.tokens.Validate(c.Request.Context(), req.Token)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"client_id": claims.ClientID,
	})
}

func (h *Handler) GetValidToken(c *gin.Context) {
	record, err := h.tokens.GetValid(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      record.JWTToken,
		"client_id":  record.ClientID,
		"expires_at": record.ExpiresAt,
	})
}

func (h *Handler) Cleanup(c *gin.Context) {
	removed, err := h.tokens.Cleanup(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
