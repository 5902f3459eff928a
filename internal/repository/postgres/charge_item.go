package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
)

type chargeItemRepository struct {
	BaseRepository
}

func NewChargeItemRepository(base BaseRepository) repository.ChargeItemRepository {
	return &chargeItemRepository{base}
}

func (r *chargeItemRepository) Create(ctx context.Context, item *model.ChargeItem) error {
	query := `
		INSERT INTO charge_items (id, code, name, item_type, default_price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Code,
		item.Name,
		item.ItemType,
		item.DefaultPrice,
		item.IsActive,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create charge item: %w", err)
	}
	return nil
}

func (r *chargeItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ChargeItem, error) {
	var item model.ChargeItem
	err := r.db.GetContext(ctx, &item, `SELECT * FROM charge_items WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "charge item")
	}
	return &item, nil
}

func (r *chargeItemRepository) GetByCode(ctx context.Context, code string) (*model.ChargeItem, error) {
	var item model.ChargeItem
	err := r.db.GetContext(ctx, &item, `SELECT * FROM charge_items WHERE code = $1`, code)
	if err != nil {
		return nil, notFound(err, "charge item")
	}
	return &item, nil
}

func (r *chargeItemRepository) List(ctx context.Context, activeOnly bool) ([]*model.ChargeItem, error) {
	var items []*model.ChargeItem
	query := `SELECT * FROM charge_items WHERE ($1 = false OR is_active = true) ORDER BY item_type, name`
	err := r.db.SelectContext(ctx, &items, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list charge items: %w", err)
	}
	return items, nil
}

func (r *chargeItemRepository) Update(ctx context.Context, item *model.ChargeItem) error {
	query := `
		UPDATE charge_items SET
			name = $1, item_type = $2, default_price = $3,
			is_active = $4, updated_at = $5
		WHERE id = $6
	`
	item.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		item.Name,
		item.ItemType,
		item.DefaultPrice,
		item.IsActive,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update charge item: %w", err)
	}
	return nil
}

func (r *chargeItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE charge_items SET is_active = false, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate charge item: %w", err)
	}
	return nil
}
