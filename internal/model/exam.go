package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/lts-health/exams-api/pkg/apperror"
)

// Exam statuses.
const (
	ExamStatusPending    = "pending"
	ExamStatusScheduled  = "scheduled"
	ExamStatusCompleted  = "completed"
	ExamStatusCancelled  = "cancelled"
	ExamStatusInProgress = "in_progress"
)

// ExamStatuses lists every valid status, in the order reports use.
var ExamStatuses = []string{
	ExamStatusPending,
	ExamStatusScheduled,
	ExamStatusCompleted,
	ExamStatusCancelled,
	ExamStatusInProgress,
}

func ValidateExamStatus(status string) error {
	for _, s := range ExamStatuses {
		if status == s {
			return nil
		}
	}
	return apperror.Validation("invalid status %q, must be one of: %v", status, ExamStatuses)
}

// Exam is one medical exam row. Soft-deleted and restorable.
type Exam struct {
	Base
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	PatientID      *uuid.UUID `json:"patient_id,omitempty" db:"patient_id"`
	ExamType       string     `json:"exam_type" db:"exam_type"`
	Status         string     `json:"status" db:"status"`
	RequestedAt    *time.Time `json:"requested_at,omitempty" db:"requested_at"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
}

type CreateExamRequest struct {
	OrganizationName string  `json:"organization_name" binding:"required"`
	ExamType         string  `json:"exam_type" binding:"required"`
	PatientName      *string `json:"patient_name"`
	Status           string  `json:"status"`
	RequestedAt      *string `json:"requested_at"`
	Notes            *string `json:"notes"`
}

type UpdateExamRequest struct {
	ExamID      uuid.UUID `json:"exam_id" binding:"required"`
	ExamType    *string   `json:"exam_type"`
	Status      *string   `json:"status"`
	RequestedAt *string   `json:"requested_at"`
	Notes       *string   `json:"notes"`
	PatientName *string   `json:"patient_name"`
}

// ExamUpdate is the partial-update set applied by the service. Only
// non-nil fields reach the SET clause.
type ExamUpdate struct {
	ExamType    *string
	Status      *string
	RequestedAt *time.Time
	Notes       *string
	PatientID   *uuid.UUID
}

func (u ExamUpdate) Empty() bool {
	return u.ExamType == nil && u.Status == nil && u.RequestedAt == nil &&
		u.Notes == nil && u.PatientID == nil
}

// ExamFilter narrows tenant-scoped exam listings.
type ExamFilter struct {
	OrganizationID uuid.UUID
	PatientID      *uuid.UUID
	Status         *string
	ExamType       *string
	Requested      DateRange
}

type UpdateExamStatusRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
	Status string    `json:"status" binding:"required,exam_status"`
}

type BulkUpdateStatusRequest struct {
	ExamIDs []uuid.UUID `json:"exam_ids" binding:"required,min=1"`
	Status  string      `json:"status" binding:"required,exam_status"`
}
