package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lts-health/exams-api/internal/model"
)

// Lookup methods return (nil, nil) when no row matches; an error means
// the database itself failed. Services translate missing rows into
// not-found application errors.

type TokenRepository interface {
	Create(ctx context.Context, token *model.AuthToken) error
	ExistsValid(ctx context.Context, jwtToken string) (bool, error)
	GetLatestValid(ctx context.Context, clientID string) (*model.AuthToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// DirectoryRepository answers identifier-resolution queries against the
// primary database: organizations, doctors and patients.
type DirectoryRepository interface {
	FindOrganizationIDsByName(ctx context.Context, name string) ([]uuid.UUID, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	FindDoctorByCRM(ctx context.Context, identifier string, orgID uuid.UUID) (*model.Doctor, error)
	FindDoctorByDEA(ctx context.Context, identifier string, orgID uuid.UUID) (*model.Doctor, error)
	FindPatientByCPF(ctx context.Context, identifier string, orgID uuid.UUID) (*model.Patient, error)
	FindPatientBySSN(ctx context.Context, identifier string, orgID uuid.UUID) (*model.Patient, error)
	FindPatientsByName(ctx context.Context, name string, orgID uuid.UUID) ([]*model.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
}

type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) (*model.Exam, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	Update(ctx context.Context, id uuid.UUID, update model.ExamUpdate) (*model.Exam, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)
	Restore(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	List(ctx context.Context, filter model.ExamFilter, page model.PageRequest) ([]*model.Exam, int64, error)
	ListUpcoming(ctx context.Context, orgID uuid.UUID, from, to time.Time, page model.PageRequest) ([]*model.Exam, int64, error)
	ListWithoutPatient(ctx context.Context, orgID uuid.UUID) ([]*model.Exam, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error)
	BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status string) (int64, error)
	CountsByStatus(ctx context.Context, orgID uuid.UUID, requested model.DateRange) (map[string]int64, error)
	PatientNameByExamID(ctx context.Context, examID uuid.UUID) (*string, error)
}

type AnalysisRepository interface {
	Create(ctx context.Context, analysis *model.ExamAnalysis) (*model.ExamAnalysis, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAnalysis, error)
	Update(ctx context.Context, id uuid.UUID, update model.AnalysisUpdate) (*model.ExamAnalysis, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter model.AnalysisFilter, page model.PageRequest) ([]*model.ExamAnalysis, int64, error)
	Statistics(ctx context.Context, orgID uuid.UUID, examDate model.DateRange) (*model.AnalysisStatistics, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.ExamOrder) error
	GetByExamNumber(ctx context.Context, examNumber string) (*model.ExamOrder, error)
	ExamNumberExists(ctx context.Context, examNumber string) (bool, error)
}

type SchedulingRepository interface {
	Create(ctx context.Context, scheduling *model.ExamScheduling) (*model.ExamScheduling, error)
	GetBySecureIdentifier(ctx context.Context, examName string, orgID uuid.UUID) (*model.ExamScheduling, error)
	Update(ctx context.Context, examName string, orgID uuid.UUID, update model.UpdateSchedulingRequest) (*model.ExamScheduling, error)
	SoftDelete(ctx context.Context, examName string, orgID uuid.UUID) (bool, error)
	List(ctx context.Context, orgID uuid.UUID, status *string, page model.PageRequest) ([]*model.ExamScheduling, int64, error)
	ListUpcoming(ctx context.Context, orgID uuid.UUID, hoursAhead int) ([]*model.ExamScheduling, error)
	Statistics(ctx context.Context, orgID uuid.UUID) (*model.SchedulingStatistics, error)
}

// AuditRepository writes and reads the append-only exam-analysis audit
// trail. There is deliberately no update or delete method.
type AuditRepository interface {
	Insert(ctx context.Context, audit *model.AnalysisAudit) error
	ListForAnalysis(ctx context.Context, analysisID uuid.UUID, limit, offset int) ([]*model.AnalysisAudit, error)
	ListByOrganization(ctx context.Context, filter model.AuditFilter, page model.PageRequest) ([]*model.AnalysisAudit, int64, error)
	ListByUser(ctx context.Context, dbUser string, limit, offset int) ([]*model.AnalysisAudit, error)
	ListByDateRange(ctx context.Context, from, to time.Time, page model.PageRequest) ([]*model.AnalysisAudit, int64, error)
}
