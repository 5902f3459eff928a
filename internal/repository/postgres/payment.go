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

type paymentRepository struct {
	BaseRepository
}

func NewPaymentRepository(base BaseRepository) repository.PaymentRepository {
	return &paymentRepository{base}
}

// CreateTx records a payment row. Refunds are stored as negative amounts
// so SUM(amount) yields net takings.
func (r *paymentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, payment *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, bill_id, amount, payment_method, reference_number,
			notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	payment.ID = uuid.New()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		payment.ID,
		payment.BillID,
		payment.Amount,
		payment.PaymentMethod,
		payment.ReferenceNumber,
		payment.Notes,
		payment.CreatedBy,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

const paymentSelect = `
	SELECT py.*, b.bill_number
	FROM payments py
	JOIN bills b ON b.id = py.bill_id
`

func (r *paymentRepository) List(ctx context.Context, filter *model.PaymentFilter) ([]*model.Payment, int, error) {
	where := ` WHERE ($1 = '' OR py.bill_id = $1::uuid)
		AND ($2 = '' OR py.created_at >= $2::date)
		AND ($3 = '' OR py.created_at < $3::date + INTERVAL '1 day')`

	var total int
	countQuery := `SELECT COUNT(*) FROM payments py` + where
	if err := r.db.GetContext(ctx, &total, countQuery,
		filter.BillID, filter.StartDate, filter.EndDate); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	query := paymentSelect + where + ` ORDER BY py.created_at DESC LIMIT $4 OFFSET $5`
	var payments []*model.Payment
	err := r.db.SelectContext(ctx, &payments, query,
		filter.BillID, filter.StartDate, filter.EndDate,
		filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, total, nil
}

func (r *paymentRepository) ListByBill(ctx context.Context, billID uuid.UUID) ([]*model.Payment, error) {
	var payments []*model.Payment
	query := `SELECT * FROM payments WHERE bill_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &payments, query, billID); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
