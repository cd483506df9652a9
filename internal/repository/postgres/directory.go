package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
)

type directoryRepository struct {
	db *sqlx.DB
}

func NewDirectoryRepository(db *sqlx.DB) repository.DirectoryRepository {
	return &directoryRepository{db: db}
}

// FindOrganizationIDsByName returns every non-deleted organization whose
// name matches case-insensitively after trimming. More than one result
// is a data-integrity violation the resolver reports loudly.
func (r *directoryRepository) FindOrganizationIDsByName(ctx context.Context, name string) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM organizations
		WHERE LOWER(TRIM(name)) = LOWER(TRIM($1)) AND deleted_at IS NULL
	`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, name); err != nil {
		return nil, fmt.Errorf("failed to find organization by name: %w", err)
	}
	return ids, nil
}

func (r *directoryRepository) GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	query := `SELECT * FROM organizations WHERE id = $1 AND deleted_at IS NULL`
	var org model.Organization
	err := r.db.GetContext(ctx, &org, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

func (r *directoryRepository) FindDoctorByCRM(ctx context.Context, identifier string, orgID uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT * FROM doctors
		WHERE crm_registry = $1 AND organization_id = $2 AND deleted_at IS NULL
	`
	return r.getDoctor(ctx, query, identifier, orgID)
}

func (r *directoryRepository) FindDoctorByDEA(ctx context.Context, identifier string, orgID uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT * FROM doctors
		WHERE dea_registration = $1 AND organization_id = $2 AND deleted_at IS NULL
	`
	return r.getDoctor(ctx, query, identifier, orgID)
}

func (r *directoryRepository) getDoctor(ctx context.Context, query, identifier string, orgID uuid.UUID) (*model.Doctor, error) {
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, identifier, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find doctor: %w", err)
	}
	return &doctor, nil
}

func (r *directoryRepository) FindPatientByCPF(ctx context.Context, identifier string, orgID uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT * FROM patients
		WHERE cpf = $1 AND organization_id = $2 AND deleted_at IS NULL
	`
	return r.getPatient(ctx, query, identifier, orgID)
}

func (r *directoryRepository) FindPatientBySSN(ctx context.Context, identifier string, orgID uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT * FROM patients
		WHERE ssn = $1 AND organization_id = $2 AND deleted_at IS NULL
	`
	return r.getPatient(ctx, query, identifier, orgID)
}

func (r *directoryRepository) getPatient(ctx context.Context, query, identifier string, orgID uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, identifier, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find patient: %w", err)
	}
	return &patient, nil
}

func (r *directoryRepository) FindPatientsByName(ctx context.Context, name string, orgID uuid.UUID) ([]*model.Patient, error) {
	query := `
		SELECT * FROM patients
		WHERE name = $1 AND organization_id = $2 AND deleted_at IS NULL
	`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, name, orgID); err != nil {
		return nil, fmt.Errorf("failed to find patients by name: %w", err)
	}
	return patients, nil
}

func (r *directoryRepository) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1 AND deleted_at IS NULL`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}
