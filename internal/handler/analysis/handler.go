package analysis

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lts-health/exams-api/internal/handler"
	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/service/analysis"
)

type Handler struct {
	analyses *analysis.Service
}

func NewHandler(analyses *analysis.Service) *Handler {
	return &Handler{analyses: analyses}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	analyses := r.Group("/exam-analyses")
	{
		analyses.POST("/create", h.Create)
		analyses.GET("/organization/:organization_name", h.ListByOrganization)
		analyses.GET("/without-result", h.ListWithoutResult)
		analyses.GET("/by-type", h.ListByType)
		analyses.GET("/statistics", h.Statistics)
		analyses.GET("/:id", h.Get)
		analyses.PATCH("/:id", h.Update)
		analyses.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "organization_name, exam_type and original_results are required")
		return
	}
	created, err := h.analyses.Create(c.Request.Context(), req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	found, err := h.analyses.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.UpdateAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "request body must be valid JSON")
		return
	}
	updated, err := h.analyses.Update(c.Request.Context(), id, req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.analyses.Delete(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) ListByOrganization(c *gin.Context) {
	filter, page, ok := h.bindListQuery(c)
	if !ok {
		return
	}
	result, err := h.analyses.List(c.Request.Context(), c.Param("organization_name"), filter, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListWithoutResult(c *gin.Context) {
	orgName := c.Query("organization_name")
	if orgName == "" {
		handler.BadRequest(c, "organization_name query parameter is required")
		return
	}
	filter, page, ok := h.bindListQuery(c)
	if !ok {
		return
	}
	filter.WithoutResult = true
	result, err := h.analyses.List(c.Request.Context(), orgName, filter, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListByType(c *gin.Context) {
	orgName := c.Query("organization_name")
	if orgName == "" {
		handler.BadRequest(c, "organization_name query parameter is required")
		return
	}
	examType := c.Query("exam_type")
	if examType == "" {
		handler.BadRequest(c, "exam_type query parameter is required")
		return
	}
	filter, page, ok := h.bindListQuery(c)
	if !ok {
		return
	}
	filter.ExamType = &examType
	result, err := h.analyses.List(c.Request.Context(), orgName, filter, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Statistics(c *gin.Context) {
	orgName := c.Query("organization_name")
	if orgName == "" {
		handler.BadRequest(c, "organization_name query parameter is required")
		return
	}
	examDate, ok := handler.QueryDateRange(c)
	if !ok {
		return
	}
	stats, err := h.analyses.Statistics(c.Request.Context(), orgName, examDate)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) bindListQuery(c *gin.Context) (model.AnalysisFilter, model.PageRequest, bool) {
	var filter model.AnalysisFilter
	page, ok := handler.QueryPage(c)
	if !ok {
		return filter, page, false
	}
	examDate, ok := handler.QueryDateRange(c)
	if !ok {
		return filter, page, false
	}
	filter.ExamDate = examDate
	if examType := c.Query("exam_type"); examType != "" {
		filter.ExamType = &examType
	}
	return filter, page, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
