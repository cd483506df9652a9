package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/pkg/apperror"
	"github.com/lts-health/exams-api/pkg/metrics"
)

var testMetrics = metrics.New("audit_test")

type fakeAuditRepo struct {
	rows      []*model.AnalysisAudit
	insertErr error
}

func (r *fakeAuditRepo) Insert(_ context.Context, row *model.AnalysisAudit) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.rows = append(r.rows, row)
	return nil
}

func (r *fakeAuditRepo) ListForAnalysis(_ context.Context, analysisID uuid.UUID, limit, offset int) ([]*model.AnalysisAudit, error) {
	var out []*model.AnalysisAudit
	for _, row := range r.rows {
		if row.ExamAnalysesID == analysisID {
			out = append(out, row)
		}
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAuditRepo) ListByOrganization(_ context.Context, filter model.AuditFilter, _ model.PageRequest) ([]*model.AnalysisAudit, int64, error) {
	return r.rows, int64(len(r.rows)), nil
}

func (r *fakeAuditRepo) ListByUser(_ context.Context, dbUser string, _, _ int) ([]*model.AnalysisAudit, error) {
	var out []*model.AnalysisAudit
	for _, row := range r.rows {
		if row.DBUser != nil && *row.DBUser == dbUser {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) ListByDateRange(context.Context, time.Time, time.Time, model.PageRequest) ([]*model.AnalysisAudit, int64, error) {
	return r.rows, int64(len(r.rows)), nil
}

func newTestService(repo *fakeAuditRepo) *Service {
	return NewService(repo, testMetrics, "exams-api", "app_user", zerolog.Nop())
}

func TestRecordUpdateEncodesTriples(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := newTestService(repo)
	analysisID := uuid.New()

	svc.RecordUpdate(context.Background(), analysisID,
		map[string]string{"exam_type": "a"},
		map[string]string{"exam_type": "b"},
		[]model.ChangedField{{"exam_type", "a", "b"}})

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.Equal(t, model.AuditActionUpdate, row.ActionType)
	assert.Equal(t, analysisID, row.ExamAnalysesID)
	require.NotNil(t, row.DBUser)
	assert.Equal(t, "app_user", *row.DBUser)

	var triples [][3]string
	require.NoError(t, json.Unmarshal(row.ChangedFields, &triples))
	require.Len(t, triples, 1)
	assert.Equal(t, [3]string{"exam_type", "a", "b"}, triples[0])
}

func TestRecordToleratesStorageFailure(t *testing.T) {
	repo := &fakeAuditRepo{insertErr: errors.New("disk full")}
	svc := newTestService(repo)

	// Must not panic or surface the error; mutation already happened.
	svc.RecordInsert(context.Background(), uuid.New(), map[string]string{"k": "v"})
	assert.Empty(t, repo.rows)
}

func TestHistoryLimits(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := newTestService(repo)
	analysisID := uuid.New()
	for i := 0; i < 3; i++ {
		svc.RecordInsert(context.Background(), analysisID, map[string]int{"i": i})
	}

	rows, err := svc.History(context.Background(), analysisID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = svc.History(context.Background(), analysisID, maxHistoryLimit+1, 0)
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))

	_, err = svc.History(context.Background(), analysisID, 10, -1)
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
}

func TestHistoryOfUnknownAnalysisIsEmpty(t *testing.T) {
	svc := newTestService(&fakeAuditRepo{})
	rows, err := svc.History(context.Background(), uuid.New(), 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestListByDateRangeRequiresOrderedBounds(t *testing.T) {
	svc := newTestService(&fakeAuditRepo{})
	now := time.Now()

	_, err := svc.ListByDateRange(context.Background(), now, now.Add(-time.Hour), model.PageRequest{})
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))

	result, err := svc.ListByDateRange(context.Background(), now.Add(-time.Hour), now, model.PageRequest{})
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestListByOrganizationValidatesAction(t *testing.T) {
	svc := newTestService(&fakeAuditRepo{})
	bad := "TRUNCATE"

	_, err := svc.ListByOrganization(context.Background(),
		model.AuditFilter{OrganizationID: uuid.New(), ActionType: &bad}, model.PageRequest{})
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
}

func TestListByUserRequiresUser(t *testing.T) {
	svc := newTestService(&fakeAuditRepo{})
	_, err := svc.ListByUser(context.Background(), "", 10, 0)
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
}
