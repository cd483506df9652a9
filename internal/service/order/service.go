package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
	"github.com/lts-health/exams-api/internal/service/resolver"
	"github.com/lts-health/exams-api/pkg/apperror"
)

const (
	examNumberLength  = 20
	examNumberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxGenAttempts    = 10

	defaultStatus = "PENDING"
	dateLayout    = "2006-01-02"
)

// Service owns exam orders. Orders live in the secondary database and
// are addressed by their generated exam number, never by row UUID.
type Service struct {
	repo     repository.OrderRepository
	resolver *resolver.Service
	logger   zerolog.Logger
}

func NewService(repo repository.OrderRepository, res *resolver.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: res,
		logger:   logger.With().Str("component", "order_service").Logger(),
	}
}

// Create resolves every external identifier, assigns an exam number and
// inserts the order. Which registry scheme matched the doctor and
// patient is recorded in additional_details so the order is
// self-describing.
func (s *Service) Create(ctx context.Context, req model.CreateExamOrderRequest) (*model.ExamOrder, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, req.OrganizationName)
	if err != nil {
		return nil, err
	}
	doctorMatch, err := s.resolver.ResolveDoctor(ctx, req.DoctorIdentifier, orgID)
	if err != nil {
		return nil, err
	}
	patientMatch, err := s.resolver.ResolvePatient(ctx, req.PatientIdentifier, orgID)
	if err != nil {
		return nil, err
	}

	emissionDate, err := time.Parse(dateLayout, req.EmissionDate)
	if err != nil {
		return nil, apperror.Validation("emission_date must be a YYYY-MM-DD date")
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityRoutine
	}
	if err := model.ValidateOrderPriority(priority); err != nil {
		return nil, err
	}

	examNumber, err := s.assignExamNumber(ctx, req.ExamNumber)
	if err != nil {
		return nil, err
	}

	registryNote := fmt.Sprintf("doctor matched by %s, patient matched by %s",
		doctorMatch.RegistryType, patientMatch.IdentifierType)
	details := registryNote
	if req.AdditionalDetails != nil && *req.AdditionalDetails != "" {
		details = registryNote + "; " + *req.AdditionalDetails
	}

	order := &model.ExamOrder{
		OrganizationID:    orgID,
		DoctorID:          doctorMatch.Doctor.ID,
		PatientID:         patientMatch.Patient.ID,
		ExamName:          req.ExamName,
		ExamDescription:   req.ExamDescription,
		EmissionDate:      emissionDate,
		AdditionalDetails: &details,
		Status:            defaultStatus,
		Priority:          priority,
		ExamNumber:        examNumber,
	}
	order.ID = uuid.New()

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, apperror.Storage(err)
	}
	s.logger.Info().Str("exam_number", examNumber).
		Str("organization_id", orgID.String()).Msg("exam order created")
	return order, nil
}

// GetByExamNumber returns the order behind an exam number.
func (s *Service) GetByExamNumber(ctx context.Context, examNumber string) (*model.ExamOrder, error) {
	if err := validateExamNumber(examNumber); err != nil {
		return nil, err
	}
	order, err := s.repo.GetByExamNumber(ctx, examNumber)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if order == nil {
		return nil, apperror.NotFound("exam order not found")
	}
	return order, nil
}

// assignExamNumber validates a caller-supplied number or generates a
// fresh one. Supplying a number already in use is a conflict.
func (s *Service) assignExamNumber(ctx context.Context, supplied *string) (string, error) {
	if supplied != nil && *supplied != "" {
		if err := validateExamNumber(*supplied); err != nil {
			return "", err
		}
		exists, err := s.repo.ExamNumberExists(ctx, *supplied)
		if err != nil {
			return "", apperror.Storage(err)
		}
		if exists {
			return "", apperror.Conflict("exam number %q already exists", *supplied)
		}
		return *supplied, nil
	}
	return s.generateExamNumber(ctx)
}

// generateExamNumber draws random candidates until one is unused. The
// attempt count is bounded; exhausting it means the keyspace region is
// effectively saturated or the database is misbehaving, and either way
// the caller gets an error instead of a hung request.
func (s *Service) generateExamNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenAttempts; attempt++ {
		candidate, err := randomExamNumber()
		if err != nil {
			return "", apperror.Storage(err)
		}
		exists, err := s.repo.ExamNumberExists(ctx, candidate)
		if err != nil {
			return "", apperror.Storage(err)
		}
		if !exists {
			return candidate, nil
		}
	}
	s.logger.Error().Int("attempts", maxGenAttempts).Msg("exam number generation exhausted")
	return "", apperror.Conflict("could not generate a unique exam number after %d attempts", maxGenAttempts)
}

// randomExamNumber draws each character uniformly from the charset.
// Bytes of 252 and above are rejected: 252 is the largest multiple of
// 36 that fits in a byte, so reducing past it would skew the draw.
func randomExamNumber() (string, error) {
	const limit = byte(252)
	out := make([]byte, 0, examNumberLength)
	buf := make([]byte, examNumberLength)
	for len(out) < examNumberLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, examNumberCharset[int(b)%len(examNumberCharset)])
			if len(out) == examNumberLength {
				break
			}
		}
	}
	return string(out), nil
}

func validateExamNumber(examNumber string) error {
	if len(examNumber) != examNumberLength {
		return apperror.Validation("exam number must be exactly %d characters", examNumberLength)
	}
	for _, c := range examNumber {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return apperror.Validation("exam number may contain only A-Z and 0-9")
		}
	}
	return nil
}
