package resolver

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/pkg/apperror"
)

type fakeDirectoryRepo struct {
	orgs       map[uuid.UUID]*model.Organization
	doctors    []*model.Doctor
	patients   []*model.Patient
	orgLookups int
}

func newFakeDirectoryRepo() *fakeDirectoryRepo {
	return &fakeDirectoryRepo{orgs: make(map[uuid.UUID]*model.Organization)}
}

func (r *fakeDirectoryRepo) addOrg(name string) uuid.UUID {
	org := &model.Organization{Name: name}
	org.ID = uuid.New()
	r.orgs[org.ID] = org
	return org.ID
}

func (r *fakeDirectoryRepo) FindOrganizationIDsByName(_ context.Context, name string) ([]uuid.UUID, error) {
	r.orgLookups++
	key := strings.ToLower(strings.TrimSpace(name))
	var ids []uuid.UUID
	for id, org := range r.orgs {
		if strings.ToLower(strings.TrimSpace(org.Name)) == key {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeDirectoryRepo) GetOrganization(_ context.Context, id uuid.UUID) (*model.Organization, error) {
	return r.orgs[id], nil
}

func (r *fakeDirectoryRepo) FindDoctorByCRM(_ context.Context, identifier string, orgID uuid.UUID) (*model.Doctor, error) {
	for _, d := range r.doctors {
		if d.OrganizationID == orgID && d.CRMRegistry != nil && *d.CRMRegistry == identifier {
			return d, nil
		}
	}
	return nil, nil
}

func (r *fakeDirectoryRepo) FindDoctorByDEA(_ context.Context, identifier string, orgID uuid.UUID) (*model.Doctor, error) {
	for _, d := range r.doctors {
		if d.OrganizationID == orgID && d.DEARegistration != nil && *d.DEARegistration == identifier {
			return d, nil
		}
	}
	return nil, nil
}

func (r *fakeDirectoryRepo) FindPatientByCPF(_ context.Context, identifier string, orgID uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.OrganizationID == orgID && p.CPF != nil && *p.CPF == identifier {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeDirectoryRepo) FindPatientBySSN(_ context.Context, identifier string, orgID uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.OrganizationID == orgID && p.SSN != nil && *p.SSN == identifier {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeDirectoryRepo) FindPatientsByName(_ context.Context, name string, orgID uuid.UUID) ([]*model.Patient, error) {
	var matches []*model.Patient
	for _, p := range r.patients {
		if p.OrganizationID == orgID && p.Name == name {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

func (r *fakeDirectoryRepo) GetPatient(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func strptr(s string) *string { return &s }

func TestResolveOrganizationIgnoresCaseAndWhitespace(t *testing.T) {
	repo := newFakeDirectoryRepo()
	orgID := repo.addOrg("Saint Mary Clinic")
	svc := NewService(repo, zerolog.Nop())

	for _, name := range []string{"saint mary clinic", "  Saint Mary Clinic  ", "SAINT MARY CLINIC"} {
		resolved, err := svc.ResolveOrganization(context.Background(), name)
		require.NoError(t, err, name)
		assert.Equal(t, orgID, resolved)
	}
}

func TestResolveOrganizationCaches(t *testing.T) {
	repo := newFakeDirectoryRepo()
	repo.addOrg("Saint Mary Clinic")
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.ResolveOrganization(context.Background(), "Saint Mary Clinic")
	require.NoError(t, err)
	_, err = svc.ResolveOrganization(context.Background(), "saint mary clinic")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.orgLookups)
}

func TestResolveOrganizationNotFound(t *testing.T) {
	svc := NewService(newFakeDirectoryRepo(), zerolog.Nop())
	_, err := svc.ResolveOrganization(context.Background(), "Nowhere")
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestResolveOrganizationDuplicateNamesFailLoudly(t *testing.T) {
	repo := newFakeDirectoryRepo()
	repo.addOrg("Clinic")
	repo.addOrg("clinic ")
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.ResolveOrganization(context.Background(), "Clinic")
	assert.Equal(t, apperror.CodeAmbiguous, apperror.CodeOf(err))
}

func TestResolveDoctorPrefersCRM(t *testing.T) {
	repo := newFakeDirectoryRepo()
	orgID := repo.addOrg("Clinic")

	crmDoc := &model.Doctor{FullName: "Dr. CRM", CRMRegistry: strptr("12345"), OrganizationID: orgID}
	crmDoc.ID = uuid.New()
	deaDoc := &model.Doctor{FullName: "Dr. DEA", DEARegistration: strptr("12345"), OrganizationID: orgID}
	deaDoc.ID = uuid.New()
	repo.doctors = []*model.Doctor{deaDoc, crmDoc}

	svc := NewService(repo, zerolog.Nop())
	match, err := svc.ResolveDoctor(context.Background(), "12345", orgID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistryCRM, match.RegistryType)
	assert.Equal(t, crmDoc.ID, match.Doctor.ID)
}

func TestResolveDoctorFallsBackToDEA(t *testing.T) {
	repo := newFakeDirectoryRepo()
	orgID := repo.addOrg("Clinic")
	doc := &model.Doctor{FullName: "Dr. DEA", DEARegistration: strptr("AB1234567"), OrganizationID: orgID}
	doc.ID = uuid.New()
	repo.doctors = []*model.Doctor{doc}

	svc := NewService(repo, zerolog.Nop())
	match, err := svc.ResolveDoctor(context.Background(), "AB1234567", orgID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistryDEA, match.RegistryType)
}

func TestResolveDoctorNotFound(t *testing.T) {
	repo := newFakeDirectoryRepo()
	orgID := repo.addOrg("Clinic")
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.ResolveDoctor(context.Background(), "99999", orgID)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestResolvePatientPrefersCPF(t *testing.T) {
	repo := newFakeDirectoryRepo()
	orgID := repo.addOrg("Clinic")

	cpfPatient := &model.Patient{Name: "Ana", CPF: strptr("111.222.333-44"), OrganizationID: orgID}
	cpfPatient.ID = uuid.New()
	ssnPatient := &model.Patient{Name: "Bob", SSN: strptr("111.222.333-44"), OrganizationID: orgID}
	ssnPatient.ID = uuid.New()
	repo.patients = []*model.Patient{ssnPatient, cpfPatient}

	svc := NewService(repo, zerolog.Nop())
	match, err := svc.ResolvePatient(context.Background(), "111.222.333-44", orgID)
	require.NoError(t, err)
	assert.Equal(t, model.IdentifierCPF, match.IdentifierType)
	assert.Equal(t, cpfPatient.ID, match.Patient.ID)
}

func TestResolvePatientByNameAmbiguous(t *testing.T) {
	repo := newFakeDirectoryRepo()
	orgID := repo.addOrg("Clinic")
	for range [2]int{} {
		p := &model.Patient{Name: "John Smith", OrganizationID: orgID}
		p.ID = uuid.New()
		repo.patients = append(repo.patients, p)
	}

	svc := NewService(repo, zerolog.Nop())
	_, err := svc.ResolvePatientByName(context.Background(), "John Smith", orgID)
	assert.Equal(t, apperror.CodeAmbiguous, apperror.CodeOf(err))
}

func TestResolvePatientByNameSingleMatch(t *testing.T) {
	repo := newFakeDirectoryRepo()
	orgID := repo.addOrg("Clinic")
	p := &model.Patient{Name: "Jane Doe", OrganizationID: orgID}
	p.ID = uuid.New()
	repo.patients = []*model.Patient{p}

	svc := NewService(repo, zerolog.Nop())
	found, err := svc.ResolvePatientByName(context.Background(), "Jane Doe", orgID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
}
