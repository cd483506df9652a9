package scheduling

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lts-health/exams-api/internal/handler"
	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/service/scheduling"
)

// Handler serves the scheduler API. Every entity response goes through
// sanitization: internal UUIDs never leave this surface, callers hold
// only the (exam_name, organization name) pair.
type Handler struct {
	schedulings *scheduling.Service
}

func NewHandler(schedulings *scheduling.Service) *Handler {
	return &Handler{schedulings: schedulings}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	exams := r.Group("/exams")
	{
		exams.GET("/", h.List)
		exams.GET("/upcoming/", h.ListUpcoming)
		exams.GET("/statistics/", h.Statistics)
		exams.POST("/verify-access/", h.VerifyAccess)
		exams.POST("/:exam_name", h.Create)
		exams.GET("/:exam_name", h.Get)
		exams.PUT("/:exam_name", h.Update)
		exams.DELETE("/:exam_name", h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateSchedulingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "organization_id, exam_name and scheduled_date are required")
		return
	}
	// The path segment is authoritative for the name.
	req.ExamName = c.Param("exam_name")

	created, err := h.schedulings.Create(c.Request.Context(), req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, created.Sanitize())
}

func (h *Handler) Get(c *gin.Context) {
	orgName, ok := orgNameQuery(c)
	if !ok {
		return
	}
	found, err := h.schedulings.Get(c.Request.Context(), c.Param("exam_name"), orgName)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, found.Sanitize())
}

func (h *Handler) Update(c *gin.Context) {
	orgName, ok := orgNameQuery(c)
	if !ok {
		return
	}
	var req model.UpdateSchedulingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "request body must be valid JSON")
		return
	}
	updated, err := h.schedulings.Update(c.Request.Context(), c.Param("exam_name"), orgName, req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, updated.Sanitize())
}

func (h *Handler) Delete(c *gin.Context) {
	orgName, ok := orgNameQuery(c)
	if !ok {
		return
	}
	if err := h.schedulings.Delete(c.Request.Context(), c.Param("exam_name"), orgName); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) List(c *gin.Context) {
	orgName, ok := orgNameQuery(c)
	if !ok {
		return
	}
	page, ok := handler.QueryPage(c)
	if !ok {
		return
	}
	var status *string
	if raw := c.Query("status"); raw != "" {
		status = &raw
	}
	result, err := h.schedulings.List(c.Request.Context(), orgName, status, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListUpcoming(c *gin.Context) {
	orgName, ok := orgNameQuery(c)
	if !ok {
		return
	}
	hours := 0
	if raw := c.Query("hours_ahead"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			handler.BadRequest(c, "hours_ahead must be an integer")
			return
		}
		hours = parsed
	}
	upcoming, err := h.schedulings.ListUpcoming(c.Request.Context(), orgName, hours)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": upcoming, "count": len(upcoming)})
}

func (h *Handler) Statistics(c *gin.Context) {
	orgName, ok := orgNameQuery(c)
	if !ok {
		return
	}
	stats, err := h.schedulings.Statistics(c.Request.Context(), orgName)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type verifyAccessRequest struct {
	ExamName         string `json:"exam_name" binding:"required"`
	OrganizationName string `json:"organization_name" binding:"required"`
	PatientName      string `json:"patient_name"`
}

func (h *Handler) VerifyAccess(c *gin.Context) {
	var req verifyAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "exam_name and organization_name are required")
		return
	}
	allowed, err := h.schedulings.VerifyAccess(c.Request.Context(), req.ExamName, req.OrganizationName, req.PatientName)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_granted": allowed})
}

func orgNameQuery(c *gin.Context) (string, bool) {
	orgName := c.Query("organization_name")
	if orgName == "" {
		handler.BadRequest(c, "organization_name query parameter is required")
		return "", false
	}
	return orgName, true
}
