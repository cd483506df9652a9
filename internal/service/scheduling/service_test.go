package scheduling

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/service/resolver"
	"github.com/lts-health/exams-api/pkg/apperror"
)

type fakeDirectoryRepo struct {
	org      *model.Organization
	patients []*model.Patient
}

func (r *fakeDirectoryRepo) FindOrganizationIDsByName(_ context.Context, name string) ([]uuid.UUID, error) {
	if strings.EqualFold(strings.TrimSpace(name), r.org.Name) {
		return []uuid.UUID{r.org.ID}, nil
	}
	return nil, nil
}

func (r *fakeDirectoryRepo) GetOrganization(_ context.Context, id uuid.UUID) (*model.Organization, error) {
	if r.org.ID == id {
		return r.org, nil
	}
	return nil, nil
}

func (r *fakeDirectoryRepo) FindDoctorByCRM(context.Context, string, uuid.UUID) (*model.Doctor, error) {
	return nil, nil
}

func (r *fakeDirectoryRepo) FindDoctorByDEA(context.Context, string, uuid.UUID) (*model.Doctor, error) {
	return nil, nil
}

func (r *fakeDirectoryRepo) FindPatientByCPF(context.Context, string, uuid.UUID) (*model.Patient, error) {
	return nil, nil
}

func (r *fakeDirectoryRepo) FindPatientBySSN(context.Context, string, uuid.UUID) (*model.Patient, error) {
	return nil, nil
}

func (r *fakeDirectoryRepo) FindPatientsByName(context.Context, string, uuid.UUID) ([]*model.Patient, error) {
	return nil, nil
}

func (r *fakeDirectoryRepo) GetPatient(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

type fakeSchedulingRepo struct {
	schedulings []*model.ExamScheduling
}

func (r *fakeSchedulingRepo) find(examName string, orgID uuid.UUID) *model.ExamScheduling {
	for _, s := range r.schedulings {
		if s.ExamName == examName && s.OrganizationID == orgID && s.DeletedAt == nil {
			return s
		}
	}
	return nil
}

func (r *fakeSchedulingRepo) Create(_ context.Context, scheduling *model.ExamScheduling) (*model.ExamScheduling, error) {
	stored := *scheduling
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.schedulings = append(r.schedulings, &stored)
	return &stored, nil
}

func (r *fakeSchedulingRepo) GetBySecureIdentifier(_ context.Context, examName string, orgID uuid.UUID) (*model.ExamScheduling, error) {
	return r.find(examName, orgID), nil
}

func (r *fakeSchedulingRepo) Update(_ context.Context, examName string, orgID uuid.UUID, update model.UpdateSchedulingRequest) (*model.ExamScheduling, error) {
	s := r.find(examName, orgID)
	if s == nil {
		return nil, nil
	}
	if update.ScheduledDate != nil {
		s.ScheduledDate = *update.ScheduledDate
	}
	if update.Status != nil {
		s.Status = *update.Status
	}
	if update.Location != nil {
		s.Location = update.Location
	}
	s.UpdatedAt = time.Now()
	return s, nil
}

func (r *fakeSchedulingRepo) SoftDelete(_ context.Context, examName string, orgID uuid.UUID) (bool, error) {
	s := r.find(examName, orgID)
	if s == nil {
		return false, nil
	}
	now := time.Now()
	s.DeletedAt = &now
	return true, nil
}

func (r *fakeSchedulingRepo) List(_ context.Context, orgID uuid.UUID, status *string, page model.PageRequest) ([]*model.ExamScheduling, int64, error) {
	var matched []*model.ExamScheduling
	for _, s := range r.schedulings {
		if s.OrganizationID != orgID || s.DeletedAt != nil {
			continue
		}
		if status != nil && s.Status != *status {
			continue
		}
		matched = append(matched, s)
	}
	total := int64(len(matched))
	start := page.Offset()
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + page.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeSchedulingRepo) ListUpcoming(_ context.Context, orgID uuid.UUID, hoursAhead int) ([]*model.ExamScheduling, error) {
	cutoff := time.Now().Add(time.Duration(hoursAhead) * time.Hour)
	var matched []*model.ExamScheduling
	for _, s := range r.schedulings {
		if s.OrganizationID != orgID || s.DeletedAt != nil || s.Status != model.SchedulingStatusScheduled {
			continue
		}
		if s.ScheduledDate.After(time.Now()) && s.ScheduledDate.Before(cutoff) {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

func (r *fakeSchedulingRepo) Statistics(_ context.Context, orgID uuid.UUID) (*model.SchedulingStatistics, error) {
	stats := &model.SchedulingStatistics{ByStatus: make(map[string]int64)}
	for _, s := range r.schedulings {
		if s.OrganizationID != orgID || s.DeletedAt != nil {
			continue
		}
		stats.TotalExams++
		stats.ByStatus[s.Status]++
	}
	return stats, nil
}

func setup() (*Service, *fakeSchedulingRepo, *fakeDirectoryRepo) {
	org := &model.Organization{Name: "Saint Mary Clinic"}
	org.ID = uuid.New()
	dir := &fakeDirectoryRepo{org: org}
	repo := &fakeSchedulingRepo{}
	svc := NewService(repo, resolver.NewService(dir, zerolog.Nop()), zerolog.Nop())
	return svc, repo, dir
}

func validCreateRequest(orgID uuid.UUID) model.CreateSchedulingRequest {
	return model.CreateSchedulingRequest{
		OrganizationID: orgID,
		ExamName:       "MRI Brain",
		ScheduledDate:  time.Now().Add(48 * time.Hour),
	}
}

func TestCreateDefaultsToScheduled(t *testing.T) {
	svc, _, dir := setup()

	created, err := svc.Create(context.Background(), validCreateRequest(dir.org.ID))
	require.NoError(t, err)
	assert.Equal(t, model.SchedulingStatusScheduled, created.Status)
}

func TestCreateRejectsPastDate(t *testing.T) {
	svc, _, dir := setup()

	req := validCreateRequest(dir.org.ID)
	req.ScheduledDate = time.Now().Add(-time.Hour)
	_, err := svc.Create(context.Background(), req)
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
}

func TestCreateRejectsEndBeforeStart(t *testing.T) {
	svc, _, dir := setup()

	req := validCreateRequest(dir.org.ID)
	end := req.ScheduledDate.Add(-time.Hour)
	req.ScheduledEndDate = &end
	_, err := svc.Create(context.Background(), req)
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
}

func TestCreateDuplicateSecureIdentifierConflicts(t *testing.T) {
	svc, _, dir := setup()

	_, err := svc.Create(context.Background(), validCreateRequest(dir.org.ID))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validCreateRequest(dir.org.ID))
	assert.Equal(t, apperror.CodeConflict, apperror.CodeOf(err))
}

func TestCreateUnknownOrganization(t *testing.T) {
	svc, _, _ := setup()
	_, err := svc.Create(context.Background(), validCreateRequest(uuid.New()))
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestGetBySecureIdentifier(t *testing.T) {
	svc, _, dir := setup()

	created, err := svc.Create(context.Background(), validCreateRequest(dir.org.ID))
	require.NoError(t, err)

	found, err := svc.Get(context.Background(), "MRI Brain", "saint mary clinic")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.Get(context.Background(), "CT Scan", "Saint Mary Clinic")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestSanitizedListOmitsInternalIDs(t *testing.T) {
	svc, _, dir := setup()

	_, err := svc.Create(context.Background(), validCreateRequest(dir.org.ID))
	require.NoError(t, err)

	result, err := svc.List(context.Background(), "Saint Mary Clinic", nil, model.PageRequest{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "MRI Brain", result.Items[0].SecureIdentifier)
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	svc, _, dir := setup()

	_, err := svc.Create(context.Background(), validCreateRequest(dir.org.ID))
	require.NoError(t, err)

	bad := "in_progress"
	_, err = svc.Update(context.Background(), "MRI Brain", "Saint Mary Clinic", model.UpdateSchedulingRequest{Status: &bad})
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))

	good := model.SchedulingStatusInProgress
	updated, err := svc.Update(context.Background(), "MRI Brain", "Saint Mary Clinic", model.UpdateSchedulingRequest{Status: &good})
	require.NoError(t, err)
	assert.Equal(t, model.SchedulingStatusInProgress, updated.Status)
}

func TestDeleteThenGetNotFound(t *testing.T) {
	svc, _, dir := setup()

	_, err := svc.Create(context.Background(), validCreateRequest(dir.org.ID))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "MRI Brain", "Saint Mary Clinic"))

	_, err = svc.Get(context.Background(), "MRI Brain", "Saint Mary Clinic")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestVerifyAccess(t *testing.T) {
	svc, _, dir := setup()

	patient := &model.Patient{Name: "Ana Souza", OrganizationID: dir.org.ID}
	patient.ID = uuid.New()
	dir.patients = []*model.Patient{patient}

	req := validCreateRequest(dir.org.ID)
	req.PatientID = &patient.ID
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	granted, err := svc.VerifyAccess(context.Background(), "MRI Brain", "Saint Mary Clinic", "  ana souza ")
	require.NoError(t, err)
	assert.True(t, granted)

	denied, err := svc.VerifyAccess(context.Background(), "MRI Brain", "Saint Mary Clinic", "Maria Souza")
	require.NoError(t, err)
	assert.False(t, denied)

	// No name supplied: existence is enough.
	granted, err = svc.VerifyAccess(context.Background(), "MRI Brain", "Saint Mary Clinic", "  ")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestVerifyAccessWithoutPatient(t *testing.T) {
	svc, _, dir := setup()

	_, err := svc.Create(context.Background(), validCreateRequest(dir.org.ID))
	require.NoError(t, err)

	// A scheduling with no linked patient has nothing to compare
	// against; existence grants access.
	granted, err := svc.VerifyAccess(context.Background(), "MRI Brain", "Saint Mary Clinic", "Anyone")
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestVerifyAccessUnknownScheduling(t *testing.T) {
	svc, _, _ := setup()

	_, err := svc.VerifyAccess(context.Background(), "Nothing Here", "Saint Mary Clinic", "")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}
