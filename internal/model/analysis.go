package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExamAnalysis is one analysis row. The document fields are stored as
// raw JSON: their shape varies per exam type and is validated only at
// the API boundary. No soft delete; deletion is final and the audit
// trail becomes the only surviving record.
type ExamAnalysis struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OrganizationsID uuid.UUID       `json:"organizations_id" db:"organizations_id"`
	ExamType        string          `json:"exam_type" db:"exam_type"`
	ExamDate        time.Time       `json:"exam_date" db:"exam_date"`
	OriginalResults json.RawMessage `json:"original_results" db:"original_results"`
	ExamResult      json.RawMessage `json:"exam_result,omitempty" db:"exam_result"`
	Observations    json.RawMessage `json:"observations,omitempty" db:"observations"`
	AnalysisDate    time.Time       `json:"analysis_date" db:"analysis_date"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

type CreateAnalysisRequest struct {
	OrganizationName string          `json:"organization_name" binding:"required"`
	ExamType         string          `json:"exam_type" binding:"required"`
	OriginalResults  json.RawMessage `json:"original_results" binding:"required"`
	ExamDate         *time.Time      `json:"exam_date"`
	ExamResult       json.RawMessage `json:"exam_result"`
	Observations     json.RawMessage `json:"observations"`
}

type UpdateAnalysisRequest struct {
	ExamType        *string         `json:"exam_type"`
	ExamDate        *time.Time      `json:"exam_date"`
	OriginalResults json.RawMessage `json:"original_results"`
	ExamResult      json.RawMessage `json:"exam_result"`
	Observations    json.RawMessage `json:"observations"`
}

// AnalysisUpdate is the partial-update set applied by the service.
type AnalysisUpdate struct {
	ExamType        *string
	ExamDate        *time.Time
	OriginalResults json.RawMessage
	ExamResult      json.RawMessage
	Observations    json.RawMessage
}

func (u AnalysisUpdate) Empty() bool {
	return u.ExamType == nil && u.ExamDate == nil && u.OriginalResults == nil &&
		u.ExamResult == nil && u.Observations == nil
}

// AnalysisFilter narrows tenant-scoped analysis listings.
type AnalysisFilter struct {
	OrganizationID uuid.UUID
	ExamType       *string
	ExamDate       DateRange
	WithoutResult  bool
}

// AnalysisStatistics summarizes an organization's analyses.
type AnalysisStatistics struct {
	TotalAnalyses         int64           `json:"total_analyses"`
	AnalysesWithResult    int64           `json:"analyses_with_result"`
	AnalysesWithoutResult int64           `json:"analyses_without_result"`
	TopExamTypes          []ExamTypeCount `json:"top_exam_types"`
}

type ExamTypeCount struct {
	ExamType string `json:"exam_type" db:"exam_type"`
	Count    int64  `json:"count" db:"count"`
}
