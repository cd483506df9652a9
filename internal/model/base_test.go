package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequestNormalizeDefaults(t *testing.T) {
	var page PageRequest
	require.NoError(t, page.Normalize())
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Equal(t, 0, page.Offset())
}

func TestPageRequestNormalizeBounds(t *testing.T) {
	tests := []struct {
		name string
		page PageRequest
		ok   bool
	}{
		{"valid", PageRequest{Page: 3, PageSize: 20}, true},
		{"max size", PageRequest{Page: 1, PageSize: MaxPageSize}, true},
		{"zero page defaults", PageRequest{PageSize: 10}, true},
		{"negative page", PageRequest{Page: -1, PageSize: 10}, false},
		{"negative size", PageRequest{Page: 1, PageSize: -5}, false},
		{"oversized", PageRequest{Page: 1, PageSize: MaxPageSize + 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.page.Normalize()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPageRequestOffset(t *testing.T) {
	page := PageRequest{Page: 3, PageSize: 25}
	assert.Equal(t, 50, page.Offset())
}

func TestNewPaginatedCeilsTotalPages(t *testing.T) {
	page := PageRequest{Page: 1, PageSize: 50}

	result := NewPaginated([]int{1, 2, 3}, 101, page)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, int64(101), result.TotalCount)

	exact := NewPaginated([]int{1}, 100, page)
	assert.Equal(t, 2, exact.TotalPages)

	empty := NewPaginated[int](nil, 0, page)
	assert.Equal(t, 0, empty.TotalPages)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestDateRangeValidate(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	assert.NoError(t, DateRange{From: &from, To: &to}.Validate())
	assert.NoError(t, DateRange{From: &from}.Validate())
	assert.NoError(t, DateRange{}.Validate())
	assert.Error(t, DateRange{From: &to, To: &from}.Validate())
}

func TestValidateExamStatus(t *testing.T) {
	for _, status := range ExamStatuses {
		assert.NoError(t, ValidateExamStatus(status))
	}
	assert.Error(t, ValidateExamStatus("finished"))
	assert.Error(t, ValidateExamStatus(""))
}

func TestValidateSchedulingStatusSpelling(t *testing.T) {
	// The scheduling table uses the hyphenated spelling.
	assert.NoError(t, ValidateSchedulingStatus("in-progress"))
	assert.Error(t, ValidateSchedulingStatus("in_progress"))
}

func TestSchedulingSanitizeStripsInternalIDs(t *testing.T) {
	patientID := uuid.New()
	s := &ExamScheduling{
		OrganizationID: uuid.New(),
		PatientID:      &patientID,
		ExamName:       "MRI Brain",
		ScheduledDate:  time.Now().Add(time.Hour),
		Status:         SchedulingStatusScheduled,
	}
	s.ID = uuid.New()

	resp := s.Sanitize()
	assert.Equal(t, "MRI Brain", resp.SecureIdentifier)
	assert.Equal(t, "MRI Brain", resp.ExamName)
	assert.Equal(t, s.Status, resp.Status)
}
