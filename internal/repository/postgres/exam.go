package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lts-health/exams-api/internal/model"
	"github.com/lts-health/exams-api/internal/repository"
)

type examRepository struct {
	db *sqlx.DB
}

func NewExamRepository(db *sqlx.DB) repository.ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) Create(ctx context.Context, exam *model.Exam) (*model.Exam, error) {
	query := `
		INSERT INTO exams (
			id, organization_id, patient_id, exam_type, status,
			requested_at, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		) RETURNING *
	`
	if exam.ID == uuid.Nil {
		exam.ID = uuid.New()
	}
	var created model.Exam
	err := r.db.GetContext(ctx, &created, query,
		exam.ID, exam.OrganizationID, exam.PatientID, exam.ExamType,
		exam.Status, exam.RequestedAt, exam.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}
	return &created, nil
}

func (r *examRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	query := `SELECT * FROM exams WHERE id = $1 AND deleted_at IS NULL`
	var exam model.Exam
	err := r.db.GetContext(ctx, &exam, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

// Update applies only the fields present in the update set. An empty
// set returns the current row untouched so callers stay idempotent.
func (r *examRepository) Update(ctx context.Context, id uuid.UUID, update model.ExamUpdate) (*model.Exam, error) {
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
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.RequestedAt != nil {
		add("requested_at", *update.RequestedAt)
	}
	if update.Notes != nil {
		add("notes", *update.Notes)
	}
	if update.PatientID != nil {
		add("patient_id", *update.PatientID)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE exams SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING *
	`, strings.Join(sets, ", "), i)
	args = append(args, id)

	var exam model.Exam
	err := r.db.GetContext(ctx, &exam, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}
	return &exam, nil
}

func (r *examRepository) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE exams SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete exam: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *examRepository) Restore(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	query := `
		UPDATE exams SET deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NOT NULL
		RETURNING *
	`
	var exam model.Exam
	err := r.db.GetContext(ctx, &exam, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to restore exam: %w", err)
	}
	return &exam, nil
}

// List orders by requested_at descending with NULLs last, then by
// created_at descending, so unscheduled exams sink below dated ones.
func (r *examRepository) List(ctx context.Context, filter model.ExamFilter, page model.PageRequest) ([]*model.Exam, int64, error) {
	where := []string{"organization_id = $1", "deleted_at IS NULL"}
	args := []interface{}{filter.OrganizationID}
	i := 2
	if filter.PatientID != nil {
		where = append(where, fmt.Sprintf("patient_id = $%d", i))
		args = append(args, *filter.PatientID)
		i++
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", i))
		args = append(args, *filter.Status)
		i++
	}
	if filter.ExamType != nil {
		where = append(where, fmt.Sprintf("exam_type = $%d", i))
		args = append(args, *filter.ExamType)
		i++
	}
	if filter.Requested.From != nil {
		where = append(where, fmt.Sprintf("requested_at >= $%d", i))
		args = append(args, *filter.Requested.From)
		i++
	}
	if filter.Requested.To != nil {
		where = append(where, fmt.Sprintf("requested_at <= $%d", i))
		args = append(args, *filter.Requested.To)
		i++
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM exams WHERE %s`, clause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT * FROM exams WHERE %s
		ORDER BY requested_at DESC NULLS LAST, created_at DESC
		LIMIT $%d OFFSET $%d
	`, clause, i, i+1)
	args = append(args, page.PageSize, page.Offset())

	var exams []*model.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, total, nil
}

func (r *examRepository) ListUpcoming(ctx context.Context, orgID uuid.UUID, from, to time.Time, page model.PageRequest) ([]*model.Exam, int64, error) {
	var total int64
	countQuery := `
		SELECT COUNT(*) FROM exams
		WHERE organization_id = $1 AND deleted_at IS NULL
		  AND requested_at >= $2 AND requested_at <= $3
	`
	if err := r.db.GetContext(ctx, &total, countQuery, orgID, from, to); err != nil {
		return nil, 0, fmt.Errorf("failed to count upcoming exams: %w", err)
	}

	query := `
		SELECT * FROM exams
		WHERE organization_id = $1 AND deleted_at IS NULL
		  AND requested_at >= $2 AND requested_at <= $3
		ORDER BY requested_at ASC
		LIMIT $4 OFFSET $5
	`
	var exams []*model.Exam
	err := r.db.SelectContext(ctx, &exams, query, orgID, from, to, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list upcoming exams: %w", err)
	}
	return exams, total, nil
}

func (r *examRepository) ListWithoutPatient(ctx context.Context, orgID uuid.UUID) ([]*model.Exam, error) {
	query := `
		SELECT * FROM exams
		WHERE organization_id = $1 AND patient_id IS NULL AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	var exams []*model.Exam
	if err := r.db.SelectContext(ctx, &exams, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list exams without patient: %w", err)
	}
	return exams, nil
}

func (r *examRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	query := `
		UPDATE exams SET status = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return false, fmt.Errorf("failed to update exam status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

// BulkUpdateStatus counts rows already in the target state afterwards
// rather than rows touched, so re-running the same request reports the
// same number.
func (r *examRepository) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status string) (int64, error) {
	updateQuery := `
		UPDATE exams SET status = $1, updated_at = NOW()
		WHERE id = ANY($2) AND deleted_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, updateQuery, status, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("failed to bulk update exam status: %w", err)
	}

	var count int64
	countQuery := `
		SELECT COUNT(*) FROM exams
		WHERE id = ANY($1) AND status = $2 AND deleted_at IS NULL
	`
	if err := r.db.GetContext(ctx, &count, countQuery, pq.Array(ids), status); err != nil {
		return 0, fmt.Errorf("failed to verify bulk update: %w", err)
	}
	return count, nil
}

func (r *examRepository) CountsByStatus(ctx context.Context, orgID uuid.UUID, requested model.DateRange) (map[string]int64, error) {
	where := []string{"organization_id = $1", "deleted_at IS NULL"}
	args := []interface{}{orgID}
	i := 2
	if requested.From != nil {
		where = append(where, fmt.Sprintf("requested_at >= $%d", i))
		args = append(args, *requested.From)
		i++
	}
	if requested.To != nil {
		where = append(where, fmt.Sprintf("requested_at <= $%d", i))
		args = append(args, *requested.To)
		i++
	}
	query := fmt.Sprintf(`
		SELECT status, COUNT(*) AS count FROM exams
		WHERE %s GROUP BY status
	`, strings.Join(where, " AND "))

	rows := []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count exams by status: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *examRepository) PatientNameByExamID(ctx context.Context, examID uuid.UUID) (*string, error) {
	query := `
		SELECT p.name FROM exams e
		JOIN patients p ON p.id = e.patient_id
		WHERE e.id = $1 AND e.deleted_at IS NULL AND p.deleted_at IS NULL
	`
	var name string
	err := r.db.GetContext(ctx, &name, query, examID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient name for exam: %w", err)
	}
	return &name, nil
}
