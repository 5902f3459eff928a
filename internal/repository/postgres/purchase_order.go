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

type purchaseOrderRepository struct {
	BaseRepository
}

func NewPurchaseOrderRepository(base BaseRepository) repository.PurchaseOrderRepository {
	return &purchaseOrderRepository{base}
}

func (r *purchaseOrderRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, order *model.PurchaseOrder, items []*model.PurchaseOrderItem) error {
	query := `
		INSERT INTO purchase_orders (
			id, order_number, supplier_id, status, order_date, expected_date,
			received_date, total_amount, notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.SupplierID,
		order.Status,
		order.OrderDate,
		order.ExpectedDate,
		order.ReceivedDate,
		order.TotalAmount,
		order.Notes,
		order.CreatedBy,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create purchase order: %w", err)
	}
	if err := r.insertItems(ctx, tx, order.ID, items); err != nil {
		return err
	}
	order.Items = items
	return nil
}

func (r *purchaseOrderRepository) insertItems(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, items []*model.PurchaseOrderItem) error {
	query := `
		INSERT INTO purchase_order_items (
			id, purchase_order_id, medicine_id, quantity, unit_price,
			subtotal, received_quantity, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	now := time.Now()
	for _, item := range items {
		item.ID = uuid.New()
		item.PurchaseOrderID = orderID
		item.CreatedAt = now
		item.UpdatedAt = now
		_, err := tx.ExecContext(ctx, query,
			item.ID,
			item.PurchaseOrderID,
			item.MedicineID,
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
			item.ReceivedQuantity,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create purchase order item: %w", err)
		}
	}
	return nil
}

const purchaseOrderSelect = `
	SELECT o.*, s.name AS supplier_name
	FROM purchase_orders o
	JOIN suppliers s ON s.id = o.supplier_id
`

func (r *purchaseOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	err := r.db.GetContext(ctx, &order, purchaseOrderSelect+` WHERE o.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "purchase order")
	}

	itemQuery := `
		SELECT i.*, m.code AS medicine_code, m.name AS medicine_name
		FROM purchase_order_items i
		JOIN medicines m ON m.id = i.medicine_id
		WHERE i.purchase_order_id = $1
		ORDER BY i.created_at
	`
	if err := r.db.SelectContext(ctx, &order.Items, itemQuery, id); err != nil {
		return nil, fmt.Errorf("failed to load purchase order items: %w", err)
	}
	return &order, nil
}

func (r *purchaseOrderRepository) List(ctx context.Context, status string, p *model.Pagination) ([]*model.PurchaseOrder, int, error) {
	where := ` WHERE ($1 = '' OR o.status = $1)`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM purchase_orders o`+where, status); err != nil {
		return nil, 0, fmt.Errorf("failed to count purchase orders: %w", err)
	}

	query := purchaseOrderSelect + where + ` ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`
	var orders []*model.PurchaseOrder
	if err := r.db.SelectContext(ctx, &orders, query, status, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	return orders, total, nil
}

func (r *purchaseOrderRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, order *model.PurchaseOrder) error {
	query := `
		UPDATE purchase_orders SET
			status = $1, expected_date = $2, received_date = $3,
			total_amount = $4, notes = $5, updated_at = $6
		WHERE id = $7
	`
	order.UpdatedAt = time.Now()
	_, err := tx.ExecContext(ctx, query,
		order.Status,
		order.ExpectedDate,
		order.ReceivedDate,
		order.TotalAmount,
		order.Notes,
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update purchase order: %w", err)
	}
	return nil
}

func (r *purchaseOrderRepository) ReplaceItemsTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, items []*model.PurchaseOrderItem) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM purchase_order_items WHERE purchase_order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to clear purchase order items: %w", err)
	}
	return r.insertItems(ctx, tx, orderID, items)
}

func (r *purchaseOrderRepository) SetItemReceivedTx(ctx context.Context, tx *sqlx.Tx, itemID uuid.UUID, receivedQuantity float64) error {
	query := `UPDATE purchase_order_items SET received_quantity = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, receivedQuantity, time.Now(), itemID); err != nil {
		return fmt.Errorf("failed to set received quantity: %w", err)
	}
	return nil
}

type compoundFormulaRepository struct {
	BaseRepository
}

func NewCompoundFormulaRepository(base BaseRepository) repository.CompoundFormulaRepository {
	return &compoundFormulaRepository{base}
}

const compoundSelect = `
	SELECT cf.*, c.name AS compound_name, i.name AS ingredient_name
	FROM compound_formulas cf
	JOIN medicines c ON c.id = cf.compound_id
	JOIN medicines i ON i.id = cf.ingredient_id
`

func (r *compoundFormulaRepository) Create(ctx context.Context, cf *model.CompoundFormula) error {
	query := `
		INSERT INTO compound_formulas (id, compound_id, ingredient_id, ratio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	cf.ID = uuid.New()
	cf.CreatedAt = time.Now()
	cf.UpdatedAt = cf.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		cf.ID,
		cf.CompoundID,
		cf.IngredientID,
		cf.Ratio,
		cf.CreatedAt,
		cf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create compound formula: %w", err)
	}
	return nil
}

func (r *compoundFormulaRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CompoundFormula, error) {
	var cf model.CompoundFormula
	err := r.db.GetContext(ctx, &cf, compoundSelect+` WHERE cf.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "compound formula")
	}
	return &cf, nil
}

func (r *compoundFormulaRepository) ListByCompound(ctx context.Context, compoundID uuid.UUID) ([]*model.CompoundFormula, error) {
	var formulas []*model.CompoundFormula
	query := compoundSelect + ` WHERE cf.compound_id = $1 ORDER BY i.code`
	if err := r.db.SelectContext(ctx, &formulas, query, compoundID); err != nil {
		return nil, fmt.Errorf("failed to list compound formulas: %w", err)
	}
	return formulas, nil
}

func (r *compoundFormulaRepository) List(ctx context.Context) ([]*model.CompoundFormula, error) {
	var formulas []*model.CompoundFormula
	if err := r.db.SelectContext(ctx, &formulas, compoundSelect+` ORDER BY c.code, i.code`); err != nil {
		return nil, fmt.Errorf("failed to list compound formulas: %w", err)
	}
	return formulas, nil
}

func (r *compoundFormulaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM compound_formulas WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete compound formula: %w", err)
	}
	return nil
}
