package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/lts-health/exams-api/pkg/apperror"
)

// Exam scheduling statuses. Note the hyphenated in-progress: the
// scheduling table predates the exams table and kept its own spelling.
const (
	SchedulingStatusScheduled  = "scheduled"
	SchedulingStatusInProgress = "in-progress"
	SchedulingStatusCompleted  = "completed"
	SchedulingStatusCancelled  = "cancelled"
	SchedulingStatusPostponed  = "postponed"
)

var SchedulingStatuses = []string{
	SchedulingStatusScheduled,
	SchedulingStatusInProgress,
	SchedulingStatusCompleted,
	SchedulingStatusCancelled,
	SchedulingStatusPostponed,
}

func ValidateSchedulingStatus(status string) error {
	for _, s := range SchedulingStatuses {
		if status == s {
			return nil
		}
	}
	return apperror.Validation("invalid status %q, must be one of: %v", status, SchedulingStatuses)
}

// ExamScheduling lives in the secondary database, keyed at the API
// boundary by (exam_name, organization name) instead of the row UUID.
type ExamScheduling struct {
	Base
	OrganizationID   uuid.UUID  `json:"organization_id" db:"organization_id"`
	PatientID        *uuid.UUID `json:"patient_id,omitempty" db:"patient_id"`
	ExamName         string     `json:"exam_name" db:"exam_name"`
	ScheduledDate    time.Time  `json:"scheduled_date" db:"scheduled_date"`
	ScheduledEndDate *time.Time `json:"scheduled_end_date,omitempty" db:"scheduled_end_date"`
	DurationMinutes  *int       `json:"duration_minutes,omitempty" db:"duration_minutes"`
	Status           string     `json:"status" db:"status"`
	MaxParticipants  *int       `json:"max_participants,omitempty" db:"max_participants"`
	Location         *string    `json:"location,omitempty" db:"location"`
	Instructions     *string    `json:"instructions,omitempty" db:"instructions"`
}

// SchedulingResponse is the sanitized wire form: internal UUID columns
// are stripped and secure_identifier carries the exam name. Internal
// keys never cross the API boundary for this entity.
type SchedulingResponse struct {
	SecureIdentifier string     `json:"secure_identifier"`
	ExamName         string     `json:"exam_name"`
	ScheduledDate    time.Time  `json:"scheduled_date"`
	ScheduledEndDate *time.Time `json:"scheduled_end_date,omitempty"`
	DurationMinutes  *int       `json:"duration_minutes,omitempty"`
	Status           string     `json:"status"`
	MaxParticipants  *int       `json:"max_participants,omitempty"`
	Location         *string    `json:"location,omitempty"`
	Instructions     *string    `json:"instructions,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Sanitize converts a stored row to the wire form.
func (s *ExamScheduling) Sanitize() *SchedulingResponse {
	return &SchedulingResponse{
		SecureIdentifier: s.ExamName,
		ExamName:         s.ExamName,
		ScheduledDate:    s.ScheduledDate,
		ScheduledEndDate: s.ScheduledEndDate,
		DurationMinutes:  s.DurationMinutes,
		Status:           s.Status,
		MaxParticipants:  s.MaxParticipants,
		Location:         s.Location,
		Instructions:     s.Instructions,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

type CreateSchedulingRequest struct {
	OrganizationID   uuid.UUID  `json:"organization_id" binding:"required"`
	PatientID        *uuid.UUID `json:"patient_id"`
	ExamName         string     `json:"exam_name" binding:"required"`
	ScheduledDate    time.Time  `json:"scheduled_date" binding:"required"`
	ScheduledEndDate *time.Time `json:"scheduled_end_date"`
	DurationMinutes  *int       `json:"duration_minutes"`
	Status           string     `json:"status" binding:"omitempty,scheduling_status"`
	MaxParticipants  *int       `json:"max_participants"`
	Location         *string    `json:"location"`
	Instructions     *string    `json:"instructions"`
}

type UpdateSchedulingRequest struct {
	ScheduledDate    *time.Time `json:"scheduled_date"`
	ScheduledEndDate *time.Time `json:"scheduled_end_date"`
	DurationMinutes  *int       `json:"duration_minutes"`
	Status           *string    `json:"status"`
	MaxParticipants  *int       `json:"max_participants"`
	Location         *string    `json:"location"`
	Instructions     *string    `json:"instructions"`
}

func (u UpdateSchedulingRequest) Empty() bool {
	return u.ScheduledDate == nil && u.ScheduledEndDate == nil &&
		u.DurationMinutes == nil && u.Status == nil && u.MaxParticipants == nil &&
		u.Location == nil && u.Instructions == nil
}

// SchedulingStatistics summarizes an organization's scheduled exams.
type SchedulingStatistics struct {
	TotalExams    int64            `json:"total_exams"`
	ByStatus      map[string]int64 `json:"by_status"`
	UpcomingCount int64            `json:"upcoming_count"`
}
