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

type billRepository struct {
	BaseRepository
}

func NewBillRepository(base BaseRepository) repository.BillRepository {
	return &billRepository{base}
}

func (r *billRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, bill *model.Bill, items []*model.BillItem) error {
	query := `
		INSERT INTO bills (
			id, registration_id, patient_id, bill_number, bill_date, status,
			subtotal, discount, total_amount, paid_amount, balance_due,
			payment_method, paid_at, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	bill.ID = uuid.New()
	bill.CreatedAt = time.Now()
	bill.UpdatedAt = bill.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		bill.ID,
		bill.RegistrationID,
		bill.PatientID,
		bill.BillNumber,
		bill.BillDate,
		bill.Status,
		bill.Subtotal,
		bill.Discount,
		bill.TotalAmount,
		bill.PaidAmount,
		bill.BalanceDue,
		bill.PaymentMethod,
		bill.PaidAt,
		bill.CreatedBy,
		bill.CreatedAt,
		bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	if err := r.insertItems(ctx, tx, bill.ID, items); err != nil {
		return err
	}
	bill.Items = items
	return nil
}

func (r *billRepository) insertItems(ctx context.Context, tx *sqlx.Tx, billID uuid.UUID, items []*model.BillItem) error {
	query := `
		INSERT INTO bill_items (
			id, bill_id, charge_item_id, prescription_id, description,
			quantity, unit_price, subtotal, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	for _, item := range items {
		item.ID = uuid.New()
		item.BillID = billID
		item.CreatedAt = now
		item.UpdatedAt = now
		_, err := tx.ExecContext(ctx, query,
			item.ID,
			item.BillID,
			item.ChargeItemID,
			item.PrescriptionID,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create bill item: %w", err)
		}
	}
	return nil
}

const billSelect = `
	SELECT b.*, p.name AS patient_name, p.chart_number
	FROM bills b
	JOIN patients p ON p.id = b.patient_id
`

func (r *billRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	err := r.db.GetContext(ctx, &bill, billSelect+` WHERE b.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "bill")
	}
	if err := r.loadItems(ctx, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) GetByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	err := r.db.GetContext(ctx, &bill, billSelect+` WHERE b.registration_id = $1`, registrationID)
	if err != nil {
		return nil, notFound(err, "bill")
	}
	if err := r.loadItems(ctx, &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) loadItems(ctx context.Context, bill *model.Bill) error {
	query := `SELECT * FROM bill_items WHERE bill_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &bill.Items, query, bill.ID); err != nil {
		return fmt.Errorf("failed to load bill items: %w", err)
	}
	return nil
}

func (r *billRepository) ExistsForRegistration(ctx context.Context, registrationID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bills WHERE registration_id = $1 AND status != 'cancelled')`
	if err := r.db.GetContext(ctx, &exists, query, registrationID); err != nil {
		return false, fmt.Errorf("failed to check bill existence: %w", err)
	}
	return exists, nil
}

func (r *billRepository) List(ctx context.Context, filter *model.BillFilter) ([]*model.Bill, int, error) {
	where := ` WHERE ($1 = '' OR b.patient_id = $1::uuid)
		AND ($2 = '' OR b.status = $2)
		AND ($3 = '' OR b.bill_date >= $3::date)
		AND ($4 = '' OR b.bill_date <= $4::date)`

	var total int
	countQuery := `SELECT COUNT(*) FROM bills b` + where
	if err := r.db.GetContext(ctx, &total, countQuery,
		filter.PatientID, filter.Status, filter.StartDate, filter.EndDate); err != nil {
		return nil, 0, fmt.Errorf("failed to count bills: %w", err)
	}

	query := billSelect + where + ` ORDER BY b.created_at DESC LIMIT $5 OFFSET $6`
	var bills []*model.Bill
	err := r.db.SelectContext(ctx, &bills, query,
		filter.PatientID, filter.Status, filter.StartDate, filter.EndDate,
		filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bills: %w", err)
	}
	return bills, total, nil
}

func (r *billRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, bill *model.Bill) error {
	query := `
		UPDATE bills SET
			status = $1, subtotal = $2, discount = $3, total_amount = $4,
			paid_amount = $5, balance_due = $6, payment_method = $7,
			paid_at = $8, updated_at = $9
		WHERE id = $10
	`
	bill.UpdatedAt = time.Now()
	_, err := tx.ExecContext(ctx, query,
		bill.Status,
		bill.Subtotal,
		bill.Discount,
		bill.TotalAmount,
		bill.PaidAmount,
		bill.BalanceDue,
		bill.PaymentMethod,
		bill.PaidAt,
		bill.UpdatedAt,
		bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	return nil
}

func (r *billRepository) ReplaceItemsTx(ctx context.Context, tx *sqlx.Tx, billID uuid.UUID, items []*model.BillItem) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, billID); err != nil {
		return fmt.Errorf("failed to clear bill items: %w", err)
	}
	return r.insertItems(ctx, tx, billID, items)
}

func (r *billRepository) DailySummary(ctx context.Context, date time.Time) (*model.DailyBillingSummary, error) {
	day := date.Format("2006-01-02")
	summary := &model.DailyBillingSummary{
		Date:          day,
		BillsByStatus: map[string]int{},
		ByMethod:      map[string]float64{},
	}

	statusQuery := `
		SELECT status, COUNT(*) AS count
		FROM bills
		WHERE bill_date = $1::date
		GROUP BY status
	`
	statusRows := []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &statusRows, statusQuery, day); err != nil {
		return nil, fmt.Errorf("failed to aggregate bill statuses: %w", err)
	}
	for _, row := range statusRows {
		summary.BillsByStatus[row.Status] = row.Count
	}

	methodQuery := `
		SELECT py.payment_method, COALESCE(SUM(py.amount), 0) AS amount
		FROM payments py
		WHERE py.created_at >= $1::date AND py.created_at < $1::date + INTERVAL '1 day'
		GROUP BY py.payment_method
	`
	methodRows := []struct {
		Method string  `db:"payment_method"`
		Amount float64 `db:"amount"`
	}{}
	if err := r.db.SelectContext(ctx, &methodRows, methodQuery, day); err != nil {
		return nil, fmt.Errorf("failed to aggregate payments: %w", err)
	}
	for _, row := range methodRows {
		summary.ByMethod[row.Method] = row.Amount
		summary.TotalCollected += row.Amount
	}

	regQuery := `SELECT COUNT(*) FROM registrations WHERE registration_date = $1::date`
	if err := r.db.GetContext(ctx, &summary.Registrations, regQuery, day); err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	return summary, nil
}
