package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
)

type debtRepository struct {
	BaseRepository
}

func NewDebtRepository(base BaseRepository) repository.DebtRepository {
	return &debtRepository{base}
}

const debtSelect = `
	SELECT d.*, p.name AS patient_name, b.bill_number
	FROM debts d
	JOIN patients p ON p.id = d.patient_id
	JOIN bills b ON b.id = d.bill_id
`

func (r *debtRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Debt, error) {
	var debt model.Debt
	err := r.db.GetContext(ctx, &debt, debtSelect+` WHERE d.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "debt")
	}
	return &debt, nil
}

func (r *debtRepository) GetByBillTx(ctx context.Context, tx *sqlx.Tx, billID uuid.UUID) (*model.Debt, error) {
	var debt model.Debt
	err := tx.GetContext(ctx, &debt, `SELECT * FROM debts WHERE bill_id = $1 FOR UPDATE`, billID)
	if err != nil {
		return nil, notFound(err, "debt")
	}
	return &debt, nil
}

// UpsertTx keeps one debt row per bill, accumulating the remaining amount
// when a bill goes unpaid more than once.
func (r *debtRepository) UpsertTx(ctx context.Context, tx *sqlx.Tx, debt *model.Debt) error {
	query := `
		INSERT INTO debts (
			id, patient_id, bill_id, original_amount, remaining_amount,
			status, due_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (bill_id) DO UPDATE SET
			original_amount = EXCLUDED.original_amount,
			remaining_amount = EXCLUDED.remaining_amount,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`
	if debt.ID == uuid.Nil {
		debt.ID = uuid.New()
		debt.CreatedAt = time.Now()
	}
	debt.UpdatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		debt.ID,
		debt.PatientID,
		debt.BillID,
		debt.OriginalAmount,
		debt.RemainingAmount,
		debt.Status,
		debt.DueDate,
		debt.CreatedAt,
		debt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert debt: %w", err)
	}
	return nil
}

func (r *debtRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, debt *model.Debt) error {
	query := `
		UPDATE debts SET
			remaining_amount = $1, status = $2, due_date = $3, updated_at = $4
		WHERE id = $5
	`
	debt.UpdatedAt = time.Now()
	_, err := tx.ExecContext(ctx, query,
		debt.RemainingAmount,
		debt.Status,
		debt.DueDate,
		debt.UpdatedAt,
		debt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	return nil
}

func (r *debtRepository) List(ctx context.Context, status string, p *model.Pagination) ([]*model.Debt, int, error) {
	where := ` WHERE ($1 = '' OR d.status = $1)`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM debts d`+where, status); err != nil {
		return nil, 0, fmt.Errorf("failed to count debts: %w", err)
	}

	query := debtSelect + where + ` ORDER BY d.created_at DESC LIMIT $2 OFFSET $3`
	var debts []*model.Debt
	if err := r.db.SelectContext(ctx, &debts, query, status, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list debts: %w", err)
	}
	return debts, total, nil
}

func (r *debtRepository) ListOpenByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Debt, error) {
	query := debtSelect + ` WHERE d.patient_id = $1 AND d.status IN ('outstanding', 'partial')
		ORDER BY d.created_at`
	var debts []*model.Debt
	if err := r.db.SelectContext(ctx, &debts, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list open debts: %w", err)
	}
	return debts, nil
}
