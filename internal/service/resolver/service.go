package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
	"github.com/lts-health/exams-api/pkg/apperror"
)

const (
	orgCacheTTL     = 5 * time.Minute
	orgCacheCleanup = 10 * time.Minute
)

// Service translates the identifiers callers actually hold, such as
// organization names and doctor registry numbers, into internal UUIDs.
// No endpoint ever accepts or leaks a raw primary key for these lookups.
type Service struct {
	repo     repository.DirectoryRepository
	orgCache *cache.Cache
	logger   zerolog.Logger
}

func NewService(repo repository.DirectoryRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		orgCache: cache.New(orgCacheTTL, orgCacheCleanup),
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// ResolveOrganization maps a display name to the organization UUID.
// Matching ignores case and surrounding whitespace. Two live
// organizations with the same normalized name is a data problem the
// caller must hear about, not a coin flip.
func (s *Service) ResolveOrganization(ctx context.Context, name string) (uuid.UUID, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return uuid.Nil, apperror.Validation("organization name is required")
	}
	if cached, ok := s.orgCache.Get(key); ok {
		return cached.(uuid.UUID), nil
	}

	ids, err := s.repo.FindOrganizationIDsByName(ctx, name)
	if err != nil {
		return uuid.Nil, apperror.Storage(err)
	}
	switch len(ids) {
	case 0:
		return uuid.Nil, apperror.NotFound("organization %q not found", name)
	case 1:
		s.orgCache.Set(key, ids[0], cache.DefaultExpiration)
		return ids[0], nil
	default:
		s.logger.Error().Str("name", name).Int("matches", len(ids)).
			Msg("multiple organizations share a normalized name")
		return uuid.Nil, apperror.Ambiguous("organization name %q matches %d organizations", name, len(ids))
	}
}

// ResolveDoctor tries the CRM registry first, then DEA. The order is a
// contract: a value present in both registries resolves as CRM.
func (s *Service) ResolveDoctor(ctx context.Context, identifier string, orgID uuid.UUID) (*model.DoctorMatch, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperror.Validation("doctor identifier is required")
	}

	doctor, err := s.repo.FindDoctorByCRM(ctx, identifier, orgID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if doctor != nil {
		return &model.DoctorMatch{Doctor: doctor, RegistryType: model.RegistryCRM}, nil
	}

	doctor, err = s.repo.FindDoctorByDEA(ctx, identifier, orgID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if doctor != nil {
		return &model.DoctorMatch{Doctor: doctor, RegistryType: model.RegistryDEA}, nil
	}
	return nil, apperror.NotFound("doctor with identifier %q not found", identifier)
}

// ResolvePatient tries CPF first, then SSN. Same ordering contract as
// doctors.
func (s *Service) ResolvePatient(ctx context.Context, identifier string, orgID uuid.UUID) (*model.PatientMatch, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperror.Validation("patient identifier is required")
	}

	patient, err := s.repo.FindPatientByCPF(ctx, identifier, orgID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if patient != nil {
		return &model.PatientMatch{Patient: patient, IdentifierType: model.IdentifierCPF}, nil
	}

	patient, err = s.repo.FindPatientBySSN(ctx, identifier, orgID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if patient != nil {
		return &model.PatientMatch{Patient: patient, IdentifierType: model.IdentifierSSN}, nil
	}
	return nil, apperror.NotFound("patient with identifier %q not found", identifier)
}

// ResolvePatientByName maps an exact name to a patient. Zero matches is
// not found; more than one is an ambiguity error distinct from not
// found, because the caller can fix it by switching to CPF or SSN.
func (s *Service) ResolvePatientByName(ctx context.Context, name string, orgID uuid.UUID) (*model.Patient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("patient name is required")
	}

	patients, err := s.repo.FindPatientsByName(ctx, name, orgID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	switch len(patients) {
	case 0:
		return nil, apperror.NotFound("patient %q not found", name)
	case 1:
		return patients[0], nil
	default:
		return nil, apperror.Ambiguous("patient name %q matches %d patients, use CPF or SSN", name, len(patients))
	}
}

// Organization returns the full organization row for a resolved ID.
func (s *Service) Organization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	org, err := s.repo.GetOrganization(ctx, id)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if org == nil {
		return nil, apperror.NotFound("organization not found")
	}
	return org, nil
}

// Patient returns the full patient row for a resolved ID.
func (s *Service) Patient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.GetPatient(ctx, id)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if patient == nil {
		return nil, apperror.NotFound("patient not found")
	}
	return patient, nil
}
