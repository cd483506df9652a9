package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
)

type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

// Insert appends one audit row. The table has no UPDATE or DELETE path
// anywhere in the application.
func (r *auditRepository) Insert(ctx context.Context, audit *model.AnalysisAudit) error {
	query := `
		INSERT INTO exam_analyses_audit (
			id, exam_analyses_id, action_type, old_data, new_data,
			changed_fields, application_name, db_user, changed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW()
		)
	`
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.ExamAnalysesID, audit.ActionType, audit.OldData,
		audit.NewData, audit.ChangedFields, audit.ApplicationName, audit.DBUser)
	if err != nil {
		return fmt.Errorf("failed to insert audit row: %w", err)
	}
	return nil
}

func (r *auditRepository) ListForAnalysis(ctx context.Context, analysisID uuid.UUID, limit, offset int) ([]*model.AnalysisAudit, error) {
	query := `
		SELECT id, exam_analyses_id, action_type, old_data, new_data,
		       changed_fields, application_name, db_user, changed_at
		FROM exam_analyses_audit
		WHERE exam_analyses_id = $1
		ORDER BY changed_at DESC
		LIMIT $2 OFFSET $3
	`
	var rows []*model.AnalysisAudit
	if err := r.db.SelectContext(ctx, &rows, query, analysisID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list audit rows for analysis: %w", err)
	}
	return rows, nil
}

// ListByOrganization joins the live analyses table to resolve tenant
// scope. Audit rows whose analysis was hard-deleted no longer have an
// organization and fall outside this view; the per-analysis reader
// still returns them.
func (r *auditRepository) ListByOrganization(ctx context.Context, filter model.AuditFilter, page model.PageRequest) ([]*model.AnalysisAudit, int64, error) {
	where := []string{"ea.organizations_id = $1"}
	args := []interface{}{filter.OrganizationID}
	i := 2
	if filter.ActionType != nil {
		where = append(where, fmt.Sprintf("a.action_type = $%d", i))
		args = append(args, *filter.ActionType)
		i++
	}
	if filter.Changed.From != nil {
		where = append(where, fmt.Sprintf("a.changed_at >= $%d", i))
		args = append(args, *filter.Changed.From)
		i++
	}
	if filter.Changed.To != nil {
		where = append(where, fmt.Sprintf("a.changed_at <= $%d", i))
		args = append(args, *filter.Changed.To)
		i++
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM exam_analyses_audit a
		JOIN exam_analyses ea ON ea.id = a.exam_analyses_id
		WHERE %s
	`, clause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit rows: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT a.id, a.exam_analyses_id, a.action_type, a.old_data,
		       a.new_data, a.changed_fields, a.application_name, a.db_user,
		       a.changed_at, ea.exam_type, ea.organizations_id
		FROM exam_analyses_audit a
		JOIN exam_analyses ea ON ea.id = a.exam_analyses_id
		WHERE %s
		ORDER BY a.changed_at DESC
		LIMIT $%d OFFSET $%d
	`, clause, i, i+1)
	args = append(args, page.PageSize, page.Offset())

	var rows []*model.AnalysisAudit
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit rows: %w", err)
	}
	return rows, total, nil
}

func (r *auditRepository) ListByUser(ctx context.Context, dbUser string, limit, offset int) ([]*model.AnalysisAudit, error) {
	query := `
		SELECT id, exam_analyses_id, action_type, old_data, new_data,
		       changed_fields, application_name, db_user, changed_at
		FROM exam_analyses_audit
		WHERE db_user = $1
		ORDER BY changed_at DESC
		LIMIT $2 OFFSET $3
	`
	var rows []*model.AnalysisAudit
	if err := r.db.SelectContext(ctx, &rows, query, dbUser, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list audit rows by user: %w", err)
	}
	return rows, nil
}

func (r *auditRepository) ListByDateRange(ctx context.Context, from, to time.Time, page model.PageRequest) ([]*model.AnalysisAudit, int64, error) {
	var total int64
	countQuery := `
		SELECT COUNT(*) FROM exam_analyses_audit
		WHERE changed_at >= $1 AND changed_at <= $2
	`
	if err := r.db.GetContext(ctx, &total, countQuery, from, to); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit rows: %w", err)
	}

	query := `
		SELECT id, exam_analyses_id, action_type, old_data, new_data,
		       changed_fields, application_name, db_user, changed_at
		FROM exam_analyses_audit
		WHERE changed_at >= $1 AND changed_at <= $2
		ORDER BY changed_at DESC
		LIMIT $3 OFFSET $4
	`
	var rows []*model.AnalysisAudit
	err := r.db.SelectContext(ctx, &rows, query, from, to, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit rows by date: %w", err)
	}
	return rows, total, nil
}
