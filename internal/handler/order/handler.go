package order

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lts-health/exams-api/internal/handler"
	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/service/order"
)

type Handler struct {
	orders *order.Service
}

func NewHandler(orders *order.Service) *Handler {
	return &Handler{orders: orders}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/exam-orders")
	{
		orders.POST("/create", h.Create)
		orders.GET("/number/:exam_number", h.GetByExamNumber)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateExamOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "doctor_identifier, patient_identifier, organization_name, exam_name and emission_date are required")
		return
	}
	created, err := h.orders.Create(c.Request.Context(), req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetByExamNumber(c *gin.Context) {
	found, err := h.orders.GetByExamNumber(c.Request.Context(), c.Param("exam_number"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}
