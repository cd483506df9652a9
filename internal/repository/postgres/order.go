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

type orderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository builds the exam-order repository. Orders live in
// the secondary database.
func NewOrderRepository(db *sqlx.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.ExamOrder) error {
	query := `
		INSERT INTO exam_orders (
			id, organization_id, doctor_id, patient_id, exam_name,
			exam_description, emission_date, additional_details, status,
			priority, exam_number_identification, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
	`
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, query,
		order.ID, order.OrganizationID, order.DoctorID, order.PatientID,
		order.ExamName, order.ExamDescription, order.EmissionDate,
		order.AdditionalDetails, order.Status, order.Priority, order.ExamNumber)
	if err != nil {
		return fmt.Errorf("failed to create exam order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetByExamNumber(ctx context.Context, examNumber string) (*model.ExamOrder, error) {
	query := `
		SELECT * FROM exam_orders
		WHERE exam_number_identification = $1 AND deleted_at IS NULL
	`
	var order model.ExamOrder
	err := r.db.GetContext(ctx, &order, query, examNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exam order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) ExamNumberExists(ctx context.Context, examNumber string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM exam_orders WHERE exam_number_identification = $1
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, examNumber); err != nil {
		return false, fmt.Errorf("failed to check exam number: %w", err)
	}
	return exists, nil
}
