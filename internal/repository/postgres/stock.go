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

type stockRepository struct {
	BaseRepository
}

func NewStockRepository(base BaseRepository) repository.StockRepository {
	return &stockRepository{base}
}

const stockLevelSelect = `
	SELECT s.*, m.code AS medicine_code, m.name AS medicine_name,
		m.unit, m.safety_stock
	FROM stock_levels s
	JOIN medicines m ON m.id = s.medicine_id
`

func (r *stockRepository) GetLevel(ctx context.Context, medicineID uuid.UUID) (*model.StockLevel, error) {
	var level model.StockLevel
	err := r.db.GetContext(ctx, &level, stockLevelSelect+` WHERE s.medicine_id = $1`, medicineID)
	if err != nil {
		return nil, notFound(err, "stock level")
	}
	return &level, nil
}

func (r *stockRepository) GetLevelForUpdateTx(ctx context.Context, tx *sqlx.Tx, medicineID uuid.UUID) (*model.StockLevel, error) {
	var level model.StockLevel
	query := `SELECT * FROM stock_levels WHERE medicine_id = $1 FOR UPDATE`
	err := tx.GetContext(ctx, &level, query, medicineID)
	if err != nil {
		return nil, notFound(err, "stock level")
	}
	return &level, nil
}

// EnsureLevelTx locks and returns the stock row, creating a zero row
// when the medicine has never been stocked.
func (r *stockRepository) EnsureLevelTx(ctx context.Context, tx *sqlx.Tx, medicineID uuid.UUID) (*model.StockLevel, error) {
	query := `
		INSERT INTO stock_levels (id, medicine_id, quantity, last_updated)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (medicine_id) DO UPDATE SET medicine_id = EXCLUDED.medicine_id
		RETURNING *
	`
	var level model.StockLevel
	err := tx.GetContext(ctx, &level, query, uuid.New(), medicineID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stock level: %w", err)
	}
	return &level, nil
}

func (r *stockRepository) CreateLevelTx(ctx context.Context, tx *sqlx.Tx, medicineID uuid.UUID) error {
	query := `
		INSERT INTO stock_levels (id, medicine_id, quantity, last_updated)
		VALUES ($1, $2, 0, $3)
	`
	if _, err := tx.ExecContext(ctx, query, uuid.New(), medicineID, time.Now()); err != nil {
		return fmt.Errorf("failed to create stock level: %w", err)
	}
	return nil
}

func (r *stockRepository) SetLevelTx(ctx context.Context, tx *sqlx.Tx, medicineID uuid.UUID, quantity float64) error {
	query := `UPDATE stock_levels SET quantity = $1, last_updated = $2 WHERE medicine_id = $3`
	if _, err := tx.ExecContext(ctx, query, quantity, time.Now(), medicineID); err != nil {
		return fmt.Errorf("failed to set stock level: %w", err)
	}
	return nil
}

func (r *stockRepository) ListLevels(ctx context.Context, p *model.Pagination) ([]*model.StockLevel, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM stock_levels`); err != nil {
		return nil, 0, fmt.Errorf("failed to count stock levels: %w", err)
	}

	query := stockLevelSelect + ` ORDER BY m.code LIMIT $1 OFFSET $2`
	var levels []*model.StockLevel
	if err := r.db.SelectContext(ctx, &levels, query, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list stock levels: %w", err)
	}
	return levels, total, nil
}

func (r *stockRepository) ListLowStock(ctx context.Context) ([]*model.StockLevel, error) {
	query := stockLevelSelect + `
		WHERE m.is_active = true AND s.quantity < m.safety_stock
		ORDER BY s.quantity / NULLIF(m.safety_stock, 0)
	`
	var levels []*model.StockLevel
	if err := r.db.SelectContext(ctx, &levels, query); err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	return levels, nil
}

func (r *stockRepository) CreateTransactionTx(ctx context.Context, tx *sqlx.Tx, txn *model.StockTransaction) error {
	query := `
		INSERT INTO stock_transactions (
			id, medicine_id, transaction_type, quantity, before_quantity,
			after_quantity, unit_cost, reference_number, notes, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	txn.ID = uuid.New()
	txn.CreatedAt = time.Now()

	_, err := tx.ExecContext(ctx, query,
		txn.ID,
		txn.MedicineID,
		txn.TransactionType,
		txn.Quantity,
		txn.BeforeQuantity,
		txn.AfterQuantity,
		txn.UnitCost,
		txn.ReferenceNumber,
		txn.Notes,
		txn.CreatedBy,
		txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create stock transaction: %w", err)
	}
	return nil
}

const stockTxnSelect = `
	SELECT t.*, m.code AS medicine_code, m.name AS medicine_name
	FROM stock_transactions t
	JOIN medicines m ON m.id = t.medicine_id
`

func (r *stockRepository) ListTransactions(ctx context.Context, filter *model.StockTransactionFilter) ([]*model.StockTransaction, int, error) {
	where := ` WHERE ($1 = '' OR t.medicine_id = $1::uuid)
		AND ($2 = '' OR t.transaction_type = $2)
		AND ($3 = '' OR t.created_at >= $3::date)
		AND ($4 = '' OR t.created_at < $4::date + INTERVAL '1 day')`

	var total int
	countQuery := `SELECT COUNT(*) FROM stock_transactions t` + where
	if err := r.db.GetContext(ctx, &total, countQuery,
		filter.MedicineID, filter.TransactionType, filter.StartDate, filter.EndDate); err != nil {
		return nil, 0, fmt.Errorf("failed to count stock transactions: %w", err)
	}

	query := stockTxnSelect + where + ` ORDER BY t.created_at DESC LIMIT $5 OFFSET $6`
	var txns []*model.StockTransaction
	err := r.db.SelectContext(ctx, &txns, query,
		filter.MedicineID, filter.TransactionType, filter.StartDate, filter.EndDate,
		filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock transactions: %w", err)
	}
	return txns, total, nil
}

func (r *stockRepository) ListTransactionsByMedicine(ctx context.Context, medicineID uuid.UUID, limit int) ([]*model.StockTransaction, error) {
	query := stockTxnSelect + ` WHERE t.medicine_id = $1 ORDER BY t.created_at DESC LIMIT $2`
	var txns []*model.StockTransaction
	if err := r.db.SelectContext(ctx, &txns, query, medicineID, limit); err != nil {
		return nil, fmt.Errorf("failed to list stock transactions: %w", err)
	}
	return txns, nil
}
