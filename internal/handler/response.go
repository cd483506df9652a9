package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/pkg/apperror"
)

const dateLayout = "2006-01-02"

// Error writes the error body for any failure. Application errors map
// to their HTTP status; anything else is a 500 with a generic message
// so internals never leak.
func Error(c *gin.Context, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode(), gin.H{"detail": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": message})
}

// QueryUUID parses a required UUID query parameter.
func QueryUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		BadRequest(c, name+" query parameter is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		BadRequest(c, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// QueryDateRange parses optional from/to date query parameters.
func QueryDateRange(c *gin.Context) (model.DateRange, bool) {
	var dr model.DateRange
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			BadRequest(c, "from must be a YYYY-MM-DD date")
			return dr, false
		}
		dr.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			BadRequest(c, "to must be a YYYY-MM-DD date")
			return dr, false
		}
		dr.To = &to
	}
	return dr, true
}

// QueryPage binds page/page_size query parameters. Validation happens
// in the service via Normalize.
func QueryPage(c *gin.Context) (model.PageRequest, bool) {
	var page model.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		BadRequest(c, "page and page_size must be integers")
		return page, false
	}
	return page, true
}
