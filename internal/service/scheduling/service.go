package scheduling

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

const defaultUpcomingHours = 24

// Service owns exam schedulings. The entity is addressed at the API
// boundary by (exam_name, organization name); row UUIDs stay inside.
// Reads cross databases: schedulings live in the secondary database
// while patients and organizations live in the primary one.
type Service struct {
	repo     repository.SchedulingRepository
	resolver *resolver.Service
	logger   zerolog.Logger
}

func NewService(repo repository.SchedulingRepository, res *resolver.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: res,
		logger:   logger.With().Str("component", "scheduling_service").Logger(),
	}
}

// Create inserts a scheduling. The scheduled date must be in the
// future; the end date, when present, must follow the start.
func (s *Service) Create(ctx context.Context, req model.CreateSchedulingRequest) (*model.ExamScheduling, error) {
	if _, err := s.resolver.Organization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}

	if !req.ScheduledDate.After(time.Now()) {
		return nil, apperror.Validation("scheduled_date must be in the future")
	}
	if req.ScheduledEndDate != nil && !req.ScheduledEndDate.After(req.ScheduledDate) {
		return nil, apperror.Validation("scheduled_end_date must be after scheduled_date")
	}

	status := req.Status
	if status == "" {
		status = model.SchedulingStatusScheduled
	}
	if err := model.ValidateSchedulingStatus(status); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetBySecureIdentifier(ctx, req.ExamName, req.OrganizationID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if existing != nil {
		return nil, apperror.Conflict("scheduling %q already exists for this organization", req.ExamName)
	}

	scheduling := &model.ExamScheduling{
		OrganizationID:   req.OrganizationID,
		PatientID:        req.PatientID,
		ExamName:         req.ExamName,
		ScheduledDate:    req.ScheduledDate,
		ScheduledEndDate: req.ScheduledEndDate,
		DurationMinutes:  req.DurationMinutes,
		Status:           status,
		MaxParticipants:  req.MaxParticipants,
		Location:         req.Location,
		Instructions:     req.Instructions,
	}
	scheduling.ID = uuid.New()

	created, err := s.repo.Create(ctx, scheduling)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	s.logger.Info().Str("exam_name", created.ExamName).
		Str("organization_id", created.OrganizationID.String()).Msg("scheduling created")
	return created, nil
}

// Get resolves the organization name and fetches the scheduling behind
// the secure identifier.
func (s *Service) Get(ctx context.Context, examName, orgName string) (*model.ExamScheduling, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	scheduling, err := s.repo.GetBySecureIdentifier(ctx, examName, orgID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if scheduling == nil {
		return nil, apperror.NotFound("scheduling not found")
	}
	return scheduling, nil
}

// Update applies a partial update addressed by secure identifier. An
// empty update returns the row as it stands.
func (s *Service) Update(ctx context.Context, examName, orgName string, req model.UpdateSchedulingRequest) (*model.ExamScheduling, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	if req.Status != nil {
		if err := model.ValidateSchedulingStatus(*req.Status); err != nil {
			return nil, err
		}
	}
	if req.ScheduledDate != nil && req.ScheduledEndDate != nil &&
		!req.ScheduledEndDate.After(*req.ScheduledDate) {
		return nil, apperror.Validation("scheduled_end_date must be after scheduled_date")
	}

	scheduling, err := s.repo.Update(ctx, examName, orgID, req)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if scheduling == nil {
		return nil, apperror.NotFound("scheduling not found")
	}
	return scheduling, nil
}

// Delete soft-deletes the scheduling behind the secure identifier.
func (s *Service) Delete(ctx context.Context, examName, orgName string) error {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return err
	}
	deleted, err := s.repo.SoftDelete(ctx, examName, orgID)
	if err != nil {
		return apperror.Storage(err)
	}
	if !deleted {
		return apperror.NotFound("scheduling not found")
	}
	s.logger.Info().Str("exam_name", examName).Msg("scheduling deleted")
	return nil
}

// List pages an organization's schedulings, soonest first.
func (s *Service) List(ctx context.Context, orgName string, status *string, page model.PageRequest) (*model.Paginated[*model.SchedulingResponse], error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	if err := page.Normalize(); err != nil {
		return nil, err
	}
	if status != nil {
		if err := model.ValidateSchedulingStatus(*status); err != nil {
			return nil, err
		}
	}

	schedulings, total, err := s.repo.List(ctx, orgID, status, page)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	result := model.NewPaginated(sanitizeAll(schedulings), total, page)
	return &result, nil
}

// ListUpcoming returns schedulings still in the scheduled state within
// the next hoursAhead hours.
func (s *Service) ListUpcoming(ctx context.Context, orgName string, hoursAhead int) ([]*model.SchedulingResponse, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	if hoursAhead <= 0 {
		hoursAhead = defaultUpcomingHours
	}
	schedulings, err := s.repo.ListUpcoming(ctx, orgID, hoursAhead)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return sanitizeAll(schedulings), nil
}

// Statistics summarizes an organization's schedulings.
func (s *Service) Statistics(ctx context.Context, orgName string) (*model.SchedulingStatistics, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.Statistics(ctx, orgID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return stats, nil
}

// VerifyAccess checks whether a caller may see a scheduling. Existence
// of the (exam name, organization) pair grants access; the patient-name
// check applies only when the request names a patient and the row has
// one linked. The comparison is by exact name after trimming, against
// the patient record in the primary database.
func (s *Service) VerifyAccess(ctx context.Context, examName, orgName, patientName string) (bool, error) {
	scheduling, err := s.Get(ctx, examName, orgName)
	if err != nil {
		return false, err
	}
	patientName = strings.TrimSpace(patientName)
	if patientName == "" || scheduling.PatientID == nil {
		return true, nil
	}
	patient, err := s.resolver.Patient(ctx, *scheduling.PatientID)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(patient.Name), patientName), nil
}

func sanitizeAll(schedulings []*model.ExamScheduling) []*model.SchedulingResponse {
	responses := make([]*model.SchedulingResponse, 0, len(schedulings))
	for _, scheduling := range schedulings {
		responses = append(responses, scheduling.Sanitize())
	}
	return responses
}
