package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lts-health/exams-api/pkg/apperror"
)

// Audit action types.
const (
	AuditActionInsert = "INSERT"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
)

var AuditActions = []string{AuditActionInsert, AuditActionUpdate, AuditActionDelete}

func ValidateAuditAction(action string) error {
	for _, a := range AuditActions {
		if action == a {
			return nil
		}
	}
	return apperror.Validation("invalid action_type %q, must be one of: %v", action, AuditActions)
}

// ChangedField is one (field, old, new) triple of an UPDATE audit row.
// Values are stringified regardless of original type so the trail diffs
// uniformly.
type ChangedField [3]string

// AnalysisAudit is one append-only audit row. The application never
// updates or deletes these; after an analysis is hard-deleted they are
// its only surviving record.
type AnalysisAudit struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	ExamAnalysesID  uuid.UUID       `json:"exam_analyses_id" db:"exam_analyses_id"`
	ActionType      string          `json:"action_type" db:"action_type"`
	OldData         json.RawMessage `json:"old_data,omitempty" db:"old_data"`
	NewData         json.RawMessage `json:"new_data,omitempty" db:"new_data"`
	ChangedFields   json.RawMessage `json:"changed_fields,omitempty" db:"changed_fields"`
	ApplicationName *string         `json:"application_name,omitempty" db:"application_name"`
	DBUser          *string         `json:"db_user,omitempty" db:"db_user"`
	ChangedAt       time.Time       `json:"changed_at" db:"changed_at"`

	// Populated only by the organization reader's join.
	ExamType        *string    `json:"exam_type,omitempty" db:"exam_type"`
	OrganizationsID *uuid.UUID `json:"organizations_id,omitempty" db:"organizations_id"`
}

// AuditFilter narrows organization-scoped audit listings.
type AuditFilter struct {
	OrganizationID uuid.UUID
	ActionType     *string
	Changed        DateRange
}
