package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/lts-health/exams-api/pkg/apperror"
)

// Exam order priorities.
const (
	PriorityRoutine   = "ROUTINE"
	PriorityUrgent    = "URGENT"
	PriorityEmergency = "EMERGENCY"
)

var OrderPriorities = []string{PriorityRoutine, PriorityUrgent, PriorityEmergency}

func ValidateOrderPriority(priority string) error {
	for _, p := range OrderPriorities {
		if priority == p {
			return nil
		}
	}
	return apperror.Validation("invalid priority %q, must be one of: %v", priority, OrderPriorities)
}

// ExamOrder lives in the secondary database. The exam number is the
// 20-character [A-Z0-9] key callers use instead of the row UUID.
type ExamOrder struct {
	Base
	OrganizationID    uuid.UUID `json:"organization_id" db:"organization_id"`
	DoctorID          uuid.UUID `json:"doctor_id" db:"doctor_id"`
	PatientID         uuid.UUID `json:"patient_id" db:"patient_id"`
	ExamName          string    `json:"exam_name" db:"exam_name"`
	ExamDescription   *string   `json:"exam_description,omitempty" db:"exam_description"`
	EmissionDate      time.Time `json:"emission_date" db:"emission_date"`
	AdditionalDetails *string   `json:"additional_details,omitempty" db:"additional_details"`
	Status            string    `json:"status" db:"status"`
	Priority          string    `json:"priority" db:"priority"`
	ExamNumber        string    `json:"exam_number_identification" db:"exam_number_identification"`
}

type CreateExamOrderRequest struct {
	DoctorIdentifier  string  `json:"doctor_identifier" binding:"required"`
	PatientIdentifier string  `json:"patient_identifier" binding:"required"`
	OrganizationName  string  `json:"organization_name" binding:"required"`
	ExamName          string  `json:"exam_name" binding:"required"`
	EmissionDate      string  `json:"emission_date" binding:"required"`
	AdditionalDetails *string `json:"additional_details"`
	ExamDescription   *string `json:"exam_description"`
	Priority          string  `json:"priority"`
	ExamNumber        *string `json:"exam_number_identification" binding:"omitempty,exam_number"`
}
