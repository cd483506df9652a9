package exam

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
	"github.com/lts-health/exams-api/internal/service/resolver"
	"github.com/lts-health/exams-api/pkg/apperror"
)

const dateLayout = "2006-01-02"

// Service owns the exam entity: creation with identifier resolution,
// partial updates, soft delete with restore, listings and status
// reporting.
type Service struct {
	repo     repository.ExamRepository
	resolver *resolver.Service
	logger   zerolog.Logger
}

func NewService(repo repository.ExamRepository, res *resolver.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: res,
		logger:   logger.With().Str("component", "exam_service").Logger(),
	}
}

// Create resolves the organization name, and the patient name when one
// is given, then inserts the exam. The patient link is optional: exams
// can be registered before the patient record exists.
func (s *Service) Create(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, req.OrganizationName)
	if err != nil {
		return nil, err
	}

	examType := strings.TrimSpace(req.ExamType)
	if examType == "" {
		return nil, apperror.Validation("exam_type must not be blank")
	}

	status := req.Status
	if status == "" {
		status = model.ExamStatusPending
	}
	if err := model.ValidateExamStatus(status); err != nil {
		return nil, err
	}

	exam := &model.Exam{
		OrganizationID: orgID,
		ExamType:       examType,
		Status:         status,
		Notes:          req.Notes,
	}
	exam.ID = uuid.New()

	if req.PatientName != nil && *req.PatientName != "" {
		patient, err := s.resolver.ResolvePatientByName(ctx, *req.PatientName, orgID)
		if err != nil {
			return nil, err
		}
		exam.PatientID = &patient.ID
	}

	if req.RequestedAt != nil && *req.RequestedAt != "" {
		requested, err := time.Parse(dateLayout, *req.RequestedAt)
		if err != nil {
			return nil, apperror.Validation("requested_at must be a YYYY-MM-DD date")
		}
		exam.RequestedAt = &requested
	}

	created, err := s.repo.Create(ctx, exam)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	s.logger.Info().Str("exam_id", created.ID.String()).
		Str("organization_id", orgID.String()).Msg("exam created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if exam == nil {
		return nil, apperror.NotFound("exam not found")
	}
	return exam, nil
}

// Update applies a partial update. An empty update is not an error; it
// returns the row as it stands.
func (s *Service) Update(ctx context.Context, req model.UpdateExamRequest) (*model.Exam, error) {
	update := model.ExamUpdate{
		ExamType: req.ExamType,
		Notes:    req.Notes,
	}

	if req.Status != nil {
		if err := model.ValidateExamStatus(*req.Status); err != nil {
			return nil, err
		}
		update.Status = req.Status
	}
	if req.RequestedAt != nil && *req.RequestedAt != "" {
		requested, err := time.Parse(dateLayout, *req.RequestedAt)
		if err != nil {
			return nil, apperror.Validation("requested_at must be a YYYY-MM-DD date")
		}
		update.RequestedAt = &requested
	}
	if req.PatientName != nil && *req.PatientName != "" {
		current, err := s.Get(ctx, req.ExamID)
		if err != nil {
			return nil, err
		}
		patient, err := s.resolver.ResolvePatientByName(ctx, *req.PatientName, current.OrganizationID)
		if err != nil {
			return nil, err
		}
		update.PatientID = &patient.ID
	}

	exam, err := s.repo.Update(ctx, req.ExamID, update)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if exam == nil {
		return nil, apperror.NotFound("exam not found")
	}
	return exam, nil
}

// Delete soft-deletes the exam. Deleted exams vanish from every listing
// and lookup but remain restorable.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return apperror.Storage(err)
	}
	if !deleted {
		return apperror.NotFound("exam not found")
	}
	s.logger.Info().Str("exam_id", id.String()).Msg("exam deleted")
	return nil
}

// Restore reverses a soft delete. Restoring an exam that is not deleted
// is a conflict, not a no-op, so callers notice double restores.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if exam == nil {
		live, liveErr := s.repo.GetByID(ctx, id)
		if liveErr != nil {
			return nil, apperror.Storage(liveErr)
		}
		if live != nil {
			return nil, apperror.Conflict("exam is not deleted")
		}
		return nil, apperror.NotFound("exam not found")
	}
	s.logger.Info().Str("exam_id", id.String()).Msg("exam restored")
	return exam, nil
}

// List returns one page of an organization's exams, newest requested
// first.
func (s *Service) List(ctx context.Context, orgName string, filter model.ExamFilter, page model.PageRequest) (*model.Paginated[*model.Exam], error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	filter.OrganizationID = orgID
	return s.list(ctx, filter, page)
}

// ListByPatientName lists a patient's exams addressed by human name.
// An ambiguous name fails distinctly so the caller can retry with a
// CPF or SSN instead.
func (s *Service) ListByPatientName(ctx context.Context, orgName, patientName string, filter model.ExamFilter, page model.PageRequest) (*model.Paginated[*model.Exam], error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	patient, err := s.resolver.ResolvePatientByName(ctx, patientName, orgID)
	if err != nil {
		return nil, err
	}
	filter.OrganizationID = orgID
	filter.PatientID = &patient.ID
	return s.list(ctx, filter, page)
}

func (s *Service) list(ctx context.Context, filter model.ExamFilter, page model.PageRequest) (*model.Paginated[*model.Exam], error) {
	if err := page.Normalize(); err != nil {
		return nil, err
	}
	if filter.Status != nil {
		if err := model.ValidateExamStatus(*filter.Status); err != nil {
			return nil, err
		}
	}
	if err := filter.Requested.Validate(); err != nil {
		return nil, err
	}

	exams, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	result := model.NewPaginated(exams, total, page)
	return &result, nil
}

// ListUpcoming returns exams requested within the next daysAhead days,
// soonest first.
func (s *Service) ListUpcoming(ctx context.Context, orgName string, daysAhead int, page model.PageRequest) (*model.Paginated[*model.Exam], error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	if daysAhead < 1 {
		return nil, apperror.Validation("days_ahead must be >= 1")
	}
	if err := page.Normalize(); err != nil {
		return nil, err
	}

	now := time.Now()
	exams, total, err := s.repo.ListUpcoming(ctx, orgID, now, now.AddDate(0, 0, daysAhead), page)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	result := model.NewPaginated(exams, total, page)
	return &result, nil
}

// ListWithoutPatient returns exams not yet linked to a patient record.
func (s *Service) ListWithoutPatient(ctx context.Context, orgName string) ([]*model.Exam, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	exams, err := s.repo.ListWithoutPatient(ctx, orgID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if exams == nil {
		exams = []*model.Exam{}
	}
	return exams, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req model.UpdateExamStatusRequest) (*model.Exam, error) {
	if err := model.ValidateExamStatus(req.Status); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateStatus(ctx, req.ExamID, req.Status)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if !updated {
		return nil, apperror.NotFound("exam not found")
	}
	return s.Get(ctx, req.ExamID)
}

// BulkUpdateStatus moves a batch of exams to one status and reports how
// many now carry it. Unknown IDs are skipped silently, which makes the
// call idempotent.
func (s *Service) BulkUpdateStatus(ctx context.Context, req model.BulkUpdateStatusRequest) (int64, error) {
	if err := model.ValidateExamStatus(req.Status); err != nil {
		return 0, err
	}
	if len(req.ExamIDs) == 0 {
		return 0, apperror.Validation("exam_ids must not be empty")
	}
	count, err := s.repo.BulkUpdateStatus(ctx, req.ExamIDs, req.Status)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	s.logger.Info().Int("requested", len(req.ExamIDs)).Int64("updated", count).
		Str("status", req.Status).Msg("bulk status update")
	return count, nil
}

// StatusReport counts an organization's live exams per status. Every
// known status appears in the result, zero or not.
func (s *Service) StatusReport(ctx context.Context, orgName string, requested model.DateRange) (map[string]int64, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	if err := requested.Validate(); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountsByStatus(ctx, orgID, requested)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	report := make(map[string]int64, len(model.ExamStatuses))
	for _, status := range model.ExamStatuses {
		report[status] = counts[status]
	}
	return report, nil
}

// PatientName returns the linked patient's name for an exam, or a not
// found error when the exam is missing or unlinked.
func (s *Service) PatientName(ctx context.Context, examID uuid.UUID) (string, error) {
	name, err := s.repo.PatientNameByExamID(ctx, examID)
	if err != nil {
		return "", apperror.Storage(err)
	}
	if name == nil {
		return "", apperror.NotFound("exam has no linked patient")
	}
	return *name, nil
}
