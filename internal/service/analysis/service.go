package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
	"github.com/lts-health/exams-api/internal/service/audit"
	"github.com/lts-health/exams-api/internal/service/resolver"
	"github.com/lts-health/exams-api/pkg/apperror"
)

// Service owns the exam-analysis entity. Every mutation leaves an audit
// row behind; deletion is permanent and the trail is the only record
// that survives it.
type Service struct {
	repo     repository.AnalysisRepository
	resolver *resolver.Service
	auditor  *audit.Service
	logger   zerolog.Logger
}

func NewService(repo repository.AnalysisRepository, res *resolver.Service, auditor *audit.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: res,
		auditor:  auditor,
		logger:   logger.With().Str("component", "analysis_service").Logger(),
	}
}

// Create resolves the organization and inserts the analysis. exam_date
// defaults to now when absent.
func (s *Service) Create(ctx context.Context, req model.CreateAnalysisRequest) (*model.ExamAnalysis, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, req.OrganizationName)
	if err != nil {
		return nil, err
	}

	examType := strings.TrimSpace(req.ExamType)
	if examType == "" {
		return nil, apperror.Validation("exam_type must not be blank")
	}

	examDate := time.Now()
	if req.ExamDate != nil {
		examDate = *req.ExamDate
	}

	analysis := &model.ExamAnalysis{
		ID:              uuid.New(),
		OrganizationsID: orgID,
		ExamType:        examType,
		ExamDate:        examDate,
		OriginalResults: req.OriginalResults,
		ExamResult:      req.ExamResult,
		Observations:    req.Observations,
	}

	created, err := s.repo.Create(ctx, analysis)
	if err != nil {
		return nil, apperror.Storage(err)
	}

	s.auditor.RecordInsert(ctx, created.ID, created)
	s.logger.Info().Str("analysis_id", created.ID.String()).
		Str("organization_id", orgID.String()).Msg("analysis created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ExamAnalysis, error) {
	analysis, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if analysis == nil {
		return nil, apperror.NotFound("analysis not found")
	}
	return analysis, nil
}

// Update applies a partial update and records the per-field diff. An
// empty update returns the current row and writes no audit entry.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req model.UpdateAnalysisRequest) (*model.ExamAnalysis, error) {
	update := model.AnalysisUpdate{
		ExamType:        req.ExamType,
		ExamDate:        req.ExamDate,
		OriginalResults: req.OriginalResults,
		ExamResult:      req.ExamResult,
		Observations:    req.Observations,
	}
	if update.Empty() {
		return s.Get(ctx, id)
	}

	old, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if updated == nil {
		return nil, apperror.NotFound("analysis not found")
	}

	changed := diffAnalyses(old, updated)
	if len(changed) > 0 {
		s.auditor.RecordUpdate(ctx, id, old, updated, changed)
	}
	return updated, nil
}

// Delete removes the analysis for good and writes the DELETE audit row
// carrying its last snapshot.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	old, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperror.Storage(err)
	}
	if !deleted {
		return apperror.NotFound("analysis not found")
	}

	s.auditor.RecordDelete(ctx, id, old)
	s.logger.Info().Str("analysis_id", id.String()).Msg("analysis deleted")
	return nil
}

// List returns one page of an organization's analyses, newest exam
// date first.
func (s *Service) List(ctx context.Context, orgName string, filter model.AnalysisFilter, page model.PageRequest) (*model.Paginated[*model.ExamAnalysis], error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	filter.OrganizationID = orgID

	if err := page.Normalize(); err != nil {
		return nil, err
	}
	if err := filter.ExamDate.Validate(); err != nil {
		return nil, err
	}

	analyses, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	result := model.NewPaginated(analyses, total, page)
	return &result, nil
}

// Statistics summarizes an organization's analyses: totals, result
// coverage and the most frequent exam types.
func (s *Service) Statistics(ctx context.Context, orgName string, examDate model.DateRange) (*model.AnalysisStatistics, error) {
	orgID, err := s.resolver.ResolveOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}
	if err := examDate.Validate(); err != nil {
		return nil, err
	}
	stats, err := s.repo.Statistics(ctx, orgID, examDate)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if stats.TopExamTypes == nil {
		stats.TopExamTypes = []model.ExamTypeCount{}
	}
	return stats, nil
}

// diffAnalyses produces the (field, old, new) triples for the audit
// trail. Values are stringified regardless of original type so rows
// diff the same way whatever the column holds.
func diffAnalyses(old, updated *model.ExamAnalysis) []model.ChangedField {
	var changed []model.ChangedField
	add := func(field, oldVal, newVal string) {
		if oldVal != newVal {
			changed = append(changed, model.ChangedField{field, oldVal, newVal})
		}
	}
	add("exam_type", old.ExamType, updated.ExamType)
	add("exam_date", old.ExamDate.Format(time.RFC3339), updated.ExamDate.Format(time.RFC3339))
	addJSON := func(field string, oldVal, newVal json.RawMessage) {
		if !jsonEqual(oldVal, newVal) {
			changed = append(changed, model.ChangedField{field, jsonString(oldVal), jsonString(newVal)})
		}
	}
	addJSON("original_results", old.OriginalResults, updated.OriginalResults)
	addJSON("exam_result", old.ExamResult, updated.ExamResult)
	addJSON("observations", old.Observations, updated.Observations)
	return changed
}

func jsonEqual(a, b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b))
}

func jsonString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
