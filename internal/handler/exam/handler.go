package exam

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lts-health/exams-api/internal/handler"
	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/service/exam"
)

const defaultUpcomingDays = 7

type Handler struct {
	exams *exam.Service
}

func NewHandler(exams *exam.Service) *Handler {
	return &Handler{exams: exams}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	exams := r.Group("/exams")
	{
		exams.POST("/create", h.Create)
		exams.GET("/get", h.Get)
		exams.PUT("/update", h.Update)
		exams.DELETE("/delete", h.Delete)
		exams.POST("/restore", h.Restore)
		exams.GET("/organization/:organization_name", h.ListByOrganization)
		exams.GET("/patient", h.ListByPatient)
		exams.GET("/patient-name", h.PatientName)
		exams.PUT("/status", h.UpdateStatus)
		exams.PUT("/bulk-status", h.BulkUpdateStatus)
		exams.GET("/counts-by-status", h.CountsByStatus)
		exams.GET("/upcoming", h.ListUpcoming)
		exams.GET("/without-patient", h.ListWithoutPatient)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "organization_name and exam_type are required")
		return
	}
	created, err := h.exams.Create(c.Request.Context(), req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.QueryUUID(c, "exam_id")
	if !ok {
		return
	}
	found, err := h.exams.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "exam_id is required")
		return
	}
	updated, err := h.exams.Update(c.Request.Context(), req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.QueryUUID(c, "exam_id")
	if !ok {
		return
	}
	if err := h.exams.Delete(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type restoreRequest struct {
	ExamID string `json:"exam_id" binding:"required,uuid"`
}

func (h *Handler) Restore(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "exam_id is required and must be a UUID")
		return
	}
	id, err := uuid.Parse(req.ExamID)
	if err != nil {
		handler.BadRequest(c, "exam_id must be a valid UUID")
		return
	}
	restored, err := h.exams.Restore(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, restored)
}

func (h *Handler) ListByOrganization(c *gin.Context) {
	filter, page, ok := bindFilter(c)
	if !ok {
		return
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, ok := handler.QueryUUID(c, "patient_id")
		if !ok {
			return
		}
		filter.PatientID = &id
	}

	result, err := h.exams.List(c.Request.Context(), c.Param("organization_name"), filter, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListByPatient lists a patient's exams addressed by name, the
// human-identifier counterpart of the patient_id filter.
func (h *Handler) ListByPatient(c *gin.Context) {
	orgName := c.Query("organization_name")
	if orgName == "" {
		handler.BadRequest(c, "organization_name query parameter is required")
		return
	}
	patientName := c.Query("patient_name")
	if patientName == "" {
		handler.BadRequest(c, "patient_name query parameter is required")
		return
	}
	filter, page, ok := bindFilter(c)
	if !ok {
		return
	}

	result, err := h.exams.ListByPatientName(c.Request.Context(), orgName, patientName, filter, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bindFilter(c *gin.Context) (model.ExamFilter, model.PageRequest, bool) {
	var filter model.ExamFilter
	page, ok := handler.QueryPage(c)
	if !ok {
		return filter, page, false
	}
	requested, ok := handler.QueryDateRange(c)
	if !ok {
		return filter, page, false
	}
	filter.Requested = requested
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if examType := c.Query("exam_type"); examType != "" {
		filter.ExamType = &examType
	}
	return filter, page, true
}

func (h *Handler) PatientName(c *gin.Context) {
	id, ok := handler.QueryUUID(c, "exam_id")
	if !ok {
		return
	}
	name, err := h.exams.PatientName(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient_name": name})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req model.UpdateExamStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "exam_id and status are required")
		return
	}
	updated, err := h.exams.UpdateStatus(c.Request.Context(), req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) BulkUpdateStatus(c *gin.Context) {
	var req model.BulkUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "exam_ids and status are required")
		return
	}
	count, err := h.exams.BulkUpdateStatus(c.Request.Context(), req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated_count": count, "status": req.Status})
}

func (h *Handler) CountsByStatus(c *gin.Context) {
	orgName := c.Query("organization_name")
	if orgName == "" {
		handler.BadRequest(c, "organization_name query parameter is required")
		return
	}
	requested, ok := handler.QueryDateRange(c)
	if !ok {
		return
	}
	report, err := h.exams.StatusReport(c.Request.Context(), orgName, requested)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) ListUpcoming(c *gin.Context) {
	orgName := c.Query("organization_name")
	if orgName == "" {
		handler.BadRequest(c, "organization_name query parameter is required")
		return
	}
	page, ok := handler.QueryPage(c)
	if !ok {
		return
	}
	days := defaultUpcomingDays
	if raw := c.Query("days_ahead"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			handler.BadRequest(c, "days_ahead must be an integer")
			return
		}
		days = parsed
	}
	result, err := h.exams.ListUpcoming(c.Request.Context(), orgName, days, page)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListWithoutPatient(c *gin.Context) {
	orgName := c.Query("organization_name")
	if orgName == "" {
		handler.BadRequest(c, "organization_name query parameter is required")
		return
	}
	exams, err := h.exams.ListWithoutPatient(c.Request.Context(), orgName)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": exams, "count": len(exams)})
}
