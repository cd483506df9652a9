package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
	"github.com/lts-health/exams-api/pkg/apperror"
	"github.com/lts-health/exams-api/pkg/metrics"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// Service writes and reads the append-only analysis audit trail. Rows
// are never updated or deleted; after an analysis is removed its audit
// rows are the only surviving record.
type Service struct {
	repo            repository.AuditRepository
	metrics         *metrics.Metrics
	logger          zerolog.Logger
	applicationName string
	dbUser          string
}

func NewService(repo repository.AuditRepository, m *metrics.Metrics, applicationName, dbUser string, logger zerolog.Logger) *Service {
	return &Service{
		repo:            repo,
		metrics:         m,
		logger:          logger.With().Str("component", "audit_service").Logger(),
		applicationName: applicationName,
		dbUser:          dbUser,
	}
}

// RecordInsert appends an INSERT row with the full new snapshot.
func (s *Service) RecordInsert(ctx context.Context, analysisID uuid.UUID, newData interface{}) {
	s.record(ctx, analysisID, model.AuditActionInsert, nil, newData, nil)
}

// RecordUpdate appends an UPDATE row with both snapshots and the
// per-field diff.
func (s *Service) RecordUpdate(ctx context.Context, analysisID uuid.UUID, oldData, newData interface{}, changed []model.ChangedField) {
	s.record(ctx, analysisID, model.AuditActionUpdate, oldData, newData, changed)
}

// RecordDelete appends a DELETE row with the final snapshot.
func (s *Service) RecordDelete(ctx context.Context, analysisID uuid.UUID, oldData interface{}) {
	s.record(ctx, analysisID, model.AuditActionDelete, oldData, nil, nil)
}

// record writes one audit row. A failed write is logged loudly but does
// not fail the mutation it describes; the mutation already happened.
func (s *Service) record(ctx context.Context, analysisID uuid.UUID, action string, oldData, newData interface{}, changed []model.ChangedField) {
	row := &model.AnalysisAudit{
		ID:              uuid.New(),
		ExamAnalysesID:  analysisID,
		ActionType:      action,
		ApplicationName: &s.applicationName,
		DBUser:          &s.dbUser,
		ChangedAt:       time.Now(),
	}

	var err error
	if row.OldData, err = marshalSnapshot(oldData); err != nil {
		s.logger.Error().Err(err).Str("analysis_id", analysisID.String()).Msg("failed to encode audit old_data")
		return
	}
	if row.NewData, err = marshalSnapshot(newData); err != nil {
		s.logger.Error().Err(err).Str("analysis_id", analysisID.String()).Msg("failed to encode audit new_data")
		return
	}
	if len(changed) > 0 {
		encoded, err := json.Marshal(changed)
		if err != nil {
			s.logger.Error().Err(err).Str("analysis_id", analysisID.String()).Msg("failed to encode audit changed_fields")
			return
		}
		row.ChangedFields = encoded
	}

	if err := s.repo.Insert(ctx, row); err != nil {
		s.logger.Error().Err(err).
			Str("analysis_id", analysisID.String()).
			Str("action", action).
			Msg("failed to write audit row")
		return
	}
	s.metrics.AuditRowsLogged.WithLabelValues(action).Inc()
}

func marshalSnapshot(data interface{}) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return encoded, nil
}

// History returns the trail for one analysis, newest first. It works
// for deleted analyses too.
func (s *Service) History(ctx context.Context, analysisID uuid.UUID, limit, offset int) ([]*model.AnalysisAudit, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return nil, apperror.Validation("limit cannot exceed %d", maxHistoryLimit)
	}
	if offset < 0 {
		return nil, apperror.Validation("offset must be >= 0")
	}
	rows, err := s.repo.ListForAnalysis(ctx, analysisID, limit, offset)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if rows == nil {
		rows = []*model.AnalysisAudit{}
	}
	return rows, nil
}

// ListByOrganization pages the trail of every analysis an organization
// still owns, optionally filtered by action and date.
func (s *Service) ListByOrganization(ctx context.Context, filter model.AuditFilter, page model.PageRequest) (*model.Paginated[*model.AnalysisAudit], error) {
	if err := page.Normalize(); err != nil {
		return nil, err
	}
	if filter.ActionType != nil {
		if err := model.ValidateAuditAction(*filter.ActionType); err != nil {
			return nil, err
		}
	}
	if err := filter.Changed.Validate(); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListByOrganization(ctx, filter, page)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	result := model.NewPaginated(rows, total, page)
	return &result, nil
}

// ListByUser returns the trail of one database user, newest first.
func (s *Service) ListByUser(ctx context.Context, dbUser string, limit, offset int) ([]*model.AnalysisAudit, error) {
	if dbUser == "" {
		return nil, apperror.Validation("db_user is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return nil, apperror.Validation("limit cannot exceed %d", maxHistoryLimit)
	}
	if offset < 0 {
		return nil, apperror.Validation("offset must be >= 0")
	}
	rows, err := s.repo.ListByUser(ctx, dbUser, limit, offset)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if rows == nil {
		rows = []*model.AnalysisAudit{}
	}
	return rows, nil
}

// ListByDateRange pages the whole trail within a closed interval.
func (s *Service) ListByDateRange(ctx context.Context, from, to time.Time, page model.PageRequest) (*model.Paginated[*model.AnalysisAudit], error) {
	if to.Before(from) {
		return nil, apperror.Validation("end date must be on or after start date")
	}
	if err := page.Normalize(); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListByDateRange(ctx, from, to, page)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	result := model.NewPaginated(rows, total, page)
	return &result, nil
}
