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

type schedulingRepository struct {
	db *sqlx.DB
}

// NewSchedulingRepository builds the exam-scheduling repository.
// Schedulings live in the secondary database and are addressed by
// (exam_name, organization) instead of their row UUID.
func NewSchedulingRepository(db *sqlx.DB) repository.SchedulingRepository {
	return &schedulingRepository{db: db}
}

func (r *schedulingRepository) Create(ctx context.Context, scheduling *model.ExamScheduling) (*model.ExamScheduling, error) {
	query := `
		INSERT INTO exam_schedulings (
			id, organization_id, patient_id, exam_name, scheduled_date,
			scheduled_end_date, duration_minutes, status, max_participants,
			location, instructions, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		) RETURNING *
	`
	if scheduling.ID == uuid.Nil {
		scheduling.ID = uuid.New()
	}
	var created model.ExamScheduling
	err := r.db.GetContext(ctx, &created, query,
		scheduling.ID, scheduling.OrganizationID, scheduling.PatientID,
		scheduling.ExamName, scheduling.ScheduledDate, scheduling.ScheduledEndDate,
		scheduling.DurationMinutes, scheduling.Status, scheduling.MaxParticipants,
		scheduling.Location, scheduling.Instructions)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduling: %w", err)
	}
	return &created, nil
}

func (r *schedulingRepository) GetBySecureIdentifier(ctx context.Context, examName string, orgID uuid.UUID) (*model.ExamScheduling, error) {
	query := `
		SELECT * FROM exam_schedulings
		WHERE exam_name = $1 AND organization_id = $2 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	var scheduling model.ExamScheduling
	err := r.db.GetContext(ctx, &scheduling, query, examName, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduling: %w", err)
	}
	return &scheduling, nil
}

func (r *schedulingRepository) Update(ctx context.Context, examName string, orgID uuid.UUID, update model.UpdateSchedulingRequest) (*model.ExamScheduling, error) {
	if update.Empty() {
		return r.GetBySecureIdentifier(ctx, examName, orgID)
	}

	sets := []string{}
	args := []interface{}{}
	i := 1
	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	if update.ScheduledDate != nil {
		add("scheduled_date", *update.ScheduledDate)
	}
	if update.ScheduledEndDate != nil {
		add("scheduled_end_date", *update.ScheduledEndDate)
	}
	if update.DurationMinutes != nil {
		add("duration_minutes", *update.DurationMinutes)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.MaxParticipants != nil {
		add("max_participants", *update.MaxParticipants)
	}
	if update.Location != nil {
		add("location", *update.Location)
	}
	if update.Instructions != nil {
		add("instructions", *update.Instructions)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE exam_schedulings SET %s
		WHERE exam_name = $%d AND organization_id = $%d AND deleted_at IS NULL
		RETURNING *
	`, strings.Join(sets, ", "), i, i+1)
	args = append(args, examName, orgID)

	var scheduling model.ExamScheduling
	err := r.db.GetContext(ctx, &scheduling, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update scheduling: %w", err)
	}
	return &scheduling, nil
}

func (r *schedulingRepository) SoftDelete(ctx context.Context, examName string, orgID uuid.UUID) (bool, error) {
	query := `
		UPDATE exam_schedulings SET deleted_at = NOW(), updated_at = NOW()
		WHERE exam_name = $1 AND organization_id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, examName, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to delete scheduling: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *schedulingRepository) List(ctx context.Context, orgID uuid.UUID, status *string, page model.PageRequest) ([]*model.ExamScheduling, int64, error) {
	where := []string{"organization_id = $1", "deleted_at IS NULL"}
	args := []interface{}{orgID}
	i := 2
	if status != nil {
		where = append(where, fmt.Sprintf("status = $%d", i))
		args = append(args, *status)
		i++
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM exam_schedulings WHERE %s`, clause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count schedulings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT * FROM exam_schedulings WHERE %s
		ORDER BY scheduled_date ASC
		LIMIT $%d OFFSET $%d
	`, clause, i, i+1)
	args = append(args, page.PageSize, page.Offset())

	var schedulings []*model.ExamScheduling
	if err := r.db.SelectContext(ctx, &schedulings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list schedulings: %w", err)
	}
	return schedulings, total, nil
}

func (r *schedulingRepository) ListUpcoming(ctx context.Context, orgID uuid.UUID, hoursAhead int) ([]*model.ExamScheduling, error) {
	query := `
		SELECT * FROM exam_schedulings
		WHERE organization_id = $1 AND deleted_at IS NULL
		  AND status = $2
		  AND scheduled_date >= NOW()
		  AND scheduled_date <= NOW() + ($3 * INTERVAL '1 hour')
		ORDER BY scheduled_date ASC
	`
	var schedulings []*model.ExamScheduling
	err := r.db.SelectContext(ctx, &schedulings, query, orgID, model.SchedulingStatusScheduled, hoursAhead)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming schedulings: %w", err)
	}
	return schedulings, nil
}

func (r *schedulingRepository) Statistics(ctx context.Context, orgID uuid.UUID) (*model.SchedulingStatistics, error) {
	stats := &model.SchedulingStatistics{ByStatus: make(map[string]int64)}

	rows := []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}{}
	byStatusQuery := `
		SELECT status, COUNT(*) AS count FROM exam_schedulings
		WHERE organization_id = $1 AND deleted_at IS NULL
		GROUP BY status
	`
	if err := r.db.SelectContext(ctx, &rows, byStatusQuery, orgID); err != nil {
		return nil, fmt.Errorf("failed to count schedulings by status: %w", err)
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalExams += row.Count
	}

	upcomingQuery := `
		SELECT COUNT(*) FROM exam_schedulings
		WHERE organization_id = $1 AND deleted_at IS NULL
		  AND status = $2 AND scheduled_date >= NOW()
	`
	err := r.db.GetContext(ctx, &stats.UpcomingCount, upcomingQuery, orgID, model.SchedulingStatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming schedulings: %w", err)
	}
	return stats, nil
}
