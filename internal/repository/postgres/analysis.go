package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
)

type analysisRepository struct {
	db *sqlx.DB
}

func NewAnalysisRepository(db *sqlx.DB) repository.AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) Create(ctx context.Context, analysis *model.ExamAnalysis) (*model.ExamAnalysis, error) {
	query := `
		INSERT INTO exam_analyses (
			id, organizations_id, exam_type, exam_date, original_results,
			exam_result, observations, analysis_date, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), NOW()
		) RETURNING *
	`
	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	var created model.ExamAnalysis
	err := r.db.GetContext(ctx, &created, query,
		analysis.ID, analysis.OrganizationsID, analysis.ExamType,
		analysis.ExamDate, analysis.OriginalResults, analysis.ExamResult,
		analysis.Observations)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}
	return &created, nil
}

func (r *analysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAnalysis, error) {
	query := `SELECT * FROM exam_analyses WHERE id = $1`
	var analysis model.ExamAnalysis
	err := r.db.GetContext(ctx, &analysis, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &analysis, nil
}

func (r *analysisRepository) Update(ctx context.Context, id uuid.UUID, update model.AnalysisUpdate) (*model.ExamAnalysis, error) {
	if update.Empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{}
	args := []interface{}{}
	i := 1
	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	if update.ExamType != nil {
		add("exam_type", *update.ExamType)
	}
	if update.ExamDate != nil {
		add("exam_date", *update.ExamDate)
	}
	if update.OriginalResults != nil {
		add("original_results", update.OriginalResults)
	}
	if update.ExamResult != nil {
		add("exam_result", update.ExamResult)
	}
	if update.Observations != nil {
		add("observations", update.Observations)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE exam_analyses SET %s
		WHERE id = $%d
		RETURNING *
	`, strings.Join(sets, ", "), i)
	args = append(args, id)

	var analysis model.ExamAnalysis
	err := r.db.GetContext(ctx, &analysis, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update analysis: %w", err)
	}
	return &analysis, nil
}

// Delete removes the row permanently. The audit trail keeps the last
// snapshot; there is no restore.
func (r *analysisRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM exam_analyses WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete analysis: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *analysisRepository) List(ctx context.Context, filter model.AnalysisFilter, page model.PageRequest) ([]*model.ExamAnalysis, int64, error) {
	where := []string{"organizations_id = $1"}
	args := []interface{}{filter.OrganizationID}
	i := 2
	if filter.ExamType != nil {
		where = append(where, fmt.Sprintf("exam_type = $%d", i))
		args = append(args, *filter.ExamType)
		i++
	}
	if filter.ExamDate.From != nil {
		where = append(where, fmt.Sprintf("exam_date >= $%d", i))
		args = append(args, *filter.ExamDate.From)
		i++
	}
	if filter.ExamDate.To != nil {
		where = append(where, fmt.Sprintf("exam_date <= $%d", i))
		args = append(args, *filter.ExamDate.To)
		i++
	}
	if filter.WithoutResult {
		where = append(where, "exam_result IS NULL")
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM exam_analyses WHERE %s`, clause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT * FROM exam_analyses WHERE %s
		ORDER BY exam_date DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, clause, i, i+1)
	args = append(args, page.PageSize, page.Offset())

	var analyses []*model.ExamAnalysis
	if err := r.db.SelectContext(ctx, &analyses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	return analyses, total, nil
}

func (r *analysisRepository) Statistics(ctx context.Context, orgID uuid.UUID, examDate model.DateRange) (*model.AnalysisStatistics, error) {
	where := []string{"organizations_id = $1"}
	args := []interface{}{orgID}
	i := 2
	if examDate.From != nil {
		where = append(where, fmt.Sprintf("exam_date >= $%d", i))
		args = append(args, *examDate.From)
		i++
	}
	if examDate.To != nil {
		where = append(where, fmt.Sprintf("exam_date <= $%d", i))
		args = append(args, *examDate.To)
		i++
	}
	clause := strings.Join(where, " AND ")

	stats := &model.AnalysisStatistics{}
	totalsQuery := fmt.Sprintf(`
		SELECT
			COUNT(*) AS total,
			COUNT(exam_result) AS with_result
		FROM exam_analyses WHERE %s
	`, clause)
	totals := struct {
		Total      int64 `db:"total"`
		WithResult int64 `db:"with_result"`
	}{}
	if err := r.db.GetContext(ctx, &totals, totalsQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to compute analysis totals: %w", err)
	}
	stats.TotalAnalyses = totals.Total
	stats.AnalysesWithResult = totals.WithResult
	stats.AnalysesWithoutResult = totals.Total - totals.WithResult

	topQuery := fmt.Sprintf(`
		SELECT exam_type, COUNT(*) AS count
		FROM exam_analyses WHERE %s
		GROUP BY exam_type
		ORDER BY count DESC, exam_type ASC
		LIMIT 10
	`, clause)
	if err := r.db.SelectContext(ctx, &stats.TopExamTypes, topQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to compute top exam types: %w", err)
	}
	return stats, nil
}
