package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lts-health/exams-api/internal/handler"
	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/service/audit"
	"github.com/lts-health/exams-api/internal/service/resolver"
)

const dateLayout = "2006-01-02"

type Handler struct {
	audits   *audit.Service
	resolver *resolver.Service
}

func NewHandler(audits *audit.Service, res *resolver.Service) *Handler {
	return &Handler{audits: audits, resolver: res}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audits := r.Group("/audit")
	{
		audits.GET("/analysis/:analysis_id", h.ListForAnalysis)
		audits.GET("/organization/:organization_name", h.ListByOrganization)
		audits.GET("/user/:db_user", h.ListByUser)
		audits.GET("/date-range", h.ListByDateRange)
	}
}

func (h *Handler) ListForAnalysis(c *gin.Context) {
	analysisID, err := uuid.Parse(c.Param("analysis_id"))
	if err != nil {
		handler.BadRequest(c, "analysis_id must be a valid UUID")
		return
	}
	limit, offset, ok := limitOffset(c)
	if !ok {
		return
	}
	rows, err := h.audits.History(c.Request.Context(), analysisID, limit, offset)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
}

func (h *Handler) ListByOrganization(c *gin.Context) {
	orgID, err := h.resolver.ResolveOrganization(c.Request.Context(), c.Param("organization_name"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	page, ok := handler.QueryPage(c)
	if !ok {
		return
	}
	changed, ok := handler.QueryDateRange(c)
	if !ok {
		return
	}

	filter := model.AuditFilter{OrganizationID: orgID, Changed: changed}
	if action := c.Query("action_type"); action != "" {
		filter.ActionType = &action
	}

	result, err := h.audits.ListByOrganization(c.Request.Context(), filter, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListByUser(c *gin.Context) {
	limit, offset, ok := limitOffset(c)
	if !ok {
		return
	}
	rows, err := h.audits.ListByUser(c.Request.Context(), c.Param("db_user"), limit, offset)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "count": len(rows)})
}

// ListByDateRange requires both bounds; an open-ended scan of the whole
// trail is not offered.
func (h *Handler) ListByDateRange(c *gin.Context) {
	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		handler.BadRequest(c, "from is required and must be a YYYY-MM-DD date")
		return
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		handler.BadRequest(c, "to is required and must be a YYYY-MM-DD date")
		return
	}
	page, ok := handler.QueryPage(c)
	if !ok {
		return
	}
	// Make the upper bound inclusive of the whole day.
	to = to.Add(24*time.Hour - time.Nanosecond)

	result, err := h.audits.ListByDateRange(c.Request.Context(), from, to, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func limitOffset(c *gin.Context) (int, int, bool) {
	limit, offset := 0, 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			handler.BadRequest(c, "limit must be an integer")
			return 0, 0, false
		}
		limit = parsed
	}
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			handler.BadRequest(c, "offset must be an integer")
			return 0, 0, false
		}
		offset = parsed
	}
	return limit, offset, true
}
