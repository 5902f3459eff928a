package repotest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

var (
	_ repository.CategoryRepository        = (*Categories)(nil)
	_ repository.SupplierRepository        = (*Suppliers)(nil)
	_ repository.MedicineRepository        = (*Medicines)(nil)
	_ repository.StockRepository           = (*Stock)(nil)
	_ repository.PurchaseOrderRepository   = (*PurchaseOrders)(nil)
	_ repository.CompoundFormulaRepository = (*CompoundFormulas)(nil)
)

type Categories struct {
	Items []*model.MedicineCategory
}

func (r *Categories) Create(_ context.Context, category *model.MedicineCategory) error {
	stamp(&category.Base)
	r.Items = append(r.Items, category)
	return nil
}

func (r *Categories) GetByID(_ context.Context, id uuid.UUID) (*model.MedicineCategory, error) {
	for _, c := range r.Items {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("category", nil)
}

func (r *Categories) List(_ context.Context) ([]*model.MedicineCategory, error) {
	return r.Items, nil
}

func (r *Categories) Update(_ context.Context, category *model.MedicineCategory) error {
	for i, c := range r.Items {
		if c.ID == category.ID {
			category.UpdatedAt = time.Now()
			r.Items[i] = category
			return nil
		}
	}
	return apperrors.NotFound("category", nil)
}

func (r *Categories) Delete(_ context.Context, id uuid.UUID) error {
	for i, c := range r.Items {
		if c.ID == id {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("category", nil)
}

type Suppliers struct {
	Items []*model.Supplier
}

func (r *Suppliers) Create(_ context.Context, supplier *model.Supplier) error {
	stamp(&supplier.Base)
	r.Items = append(r.Items, supplier)
	return nil
}

func (r *Suppliers) GetByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	for _, s := range r.Items {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperrors.NotFound("supplier", nil)
}

func (r *Suppliers) List(_ context.Context, activeOnly bool) ([]*model.Supplier, error) {
	var out []*model.Supplier
	for _, s := range r.Items {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Suppliers) Update(_ context.Context, supplier *model.Supplier) error {
	for i, s := range r.Items {
		if s.ID == supplier.ID {
			supplier.UpdatedAt = time.Now()
			r.Items[i] = supplier
			return nil
		}
	}
	return apperrors.NotFound("supplier", nil)
}

func (r *Suppliers) Delete(_ context.Context, id uuid.UUID) error {
	for i, s := range r.Items {
		if s.ID == id {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("supplier", nil)
}

type Medicines struct {
	Items []*model.Medicine
}

func (r *Medicines) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *Medicines) CreateTx(_ context.Context, _ *sqlx.Tx, m *model.Medicine) error {
	stamp(&m.Base)
	r.Items = append(r.Items, m)
	return nil
}

func (r *Medicines) GetByID(_ context.Context, id uuid.UUID) (*model.Medicine, error) {
	for _, m := range r.Items {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, apperrors.NotFound("medicine", nil)
}

func (r *Medicines) GetByCode(_ context.Context, code string) (*model.Medicine, error) {
	for _, m := range r.Items {
		if m.Code == code {
			return m, nil
		}
	}
	return nil, apperrors.NotFound("medicine", nil)
}

func (r *Medicines) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*model.Medicine, error) {
	var out []*model.Medicine
	for _, id := range ids {
		for _, m := range r.Items {
			if m.ID == id {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (r *Medicines) List(_ context.Context, _ *model.MedicineFilter) ([]*model.Medicine, int, error) {
	return r.Items, len(r.Items), nil
}

func (r *Medicines) Update(_ context.Context, m *model.Medicine) error {
	for i, existing := range r.Items {
		if existing.ID == m.ID {
			m.UpdatedAt = time.Now()
			r.Items[i] = m
			return nil
		}
	}
	return apperrors.NotFound("medicine", nil)
}

func (r *Medicines) Search(_ context.Context, query string, limit int) ([]*model.Medicine, error) {
	var out []*model.Medicine
	for _, m := range r.Items {
		if strings.Contains(m.Name, query) || strings.Contains(m.Code, query) ||
			strings.Contains(m.Pinyin, query) {
			out = append(out, m)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Stock returns copies from its read methods the way row scans do, so a
// later SetLevelTx does not change quantities a caller already fetched.
type Stock struct {
	Levels       []*model.StockLevel
	Transactions []*model.StockTransaction
}

func (r *Stock) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *Stock) GetLevel(_ context.Context, medicineID uuid.UUID) (*model.StockLevel, error) {
	return r.find(medicineID)
}

func (r *Stock) GetLevelForUpdateTx(_ context.Context, _ *sqlx.Tx, medicineID uuid.UUID) (*model.StockLevel, error) {
	return r.find(medicineID)
}

func (r *Stock) find(medicineID uuid.UUID) (*model.StockLevel, error) {
	for _, l := range r.Levels {
		if l.MedicineID == medicineID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("stock level", nil)
}

func (r *Stock) EnsureLevelTx(_ context.Context, _ *sqlx.Tx, medicineID uuid.UUID) (*model.StockLevel, error) {
	if level, err := r.find(medicineID); err == nil {
		return level, nil
	}
	level := &model.StockLevel{
		ID:          uuid.New(),
		MedicineID:  medicineID,
		LastUpdated: time.Now(),
	}
	r.Levels = append(r.Levels, level)
	cp := *level
	return &cp, nil
}

func (r *Stock) CreateLevelTx(_ context.Context, _ *sqlx.Tx, medicineID uuid.UUID) error {
	r.Levels = append(r.Levels, &model.StockLevel{
		ID:          uuid.New(),
		MedicineID:  medicineID,
		LastUpdated: time.Now(),
	})
	return nil
}

func (r *Stock) SetLevelTx(_ context.Context, _ *sqlx.Tx, medicineID uuid.UUID, quantity float64) error {
	for _, l := range r.Levels {
		if l.MedicineID == medicineID {
			l.Quantity = quantity
			l.LastUpdated = time.Now()
			return nil
		}
	}
	return apperrors.NotFound("stock level", nil)
}

func (r *Stock) ListLevels(_ context.Context, _ *model.Pagination) ([]*model.StockLevel, int, error) {
	return r.Levels, len(r.Levels), nil
}

func (r *Stock) ListLowStock(_ context.Context) ([]*model.StockLevel, error) {
	var out []*model.StockLevel
	for _, l := range r.Levels {
		if l.Quantity < l.SafetyStock {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *Stock) CreateTransactionTx(_ context.Context, _ *sqlx.Tx, txn *model.StockTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	r.Transactions = append(r.Transactions, txn)
	return nil
}

func (r *Stock) ListTransactions(_ context.Context, _ *model.StockTransactionFilter) ([]*model.StockTransaction, int, error) {
	return r.Transactions, len(r.Transactions), nil
}

func (r *Stock) ListTransactionsByMedicine(_ context.Context, medicineID uuid.UUID, limit int) ([]*model.StockTransaction, error) {
	var out []*model.StockTransaction
	for _, t := range r.Transactions {
		if t.MedicineID == medicineID {
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type PurchaseOrders struct {
	Items []*model.PurchaseOrder
}

func (r *PurchaseOrders) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *PurchaseOrders) CreateTx(_ context.Context, _ *sqlx.Tx, order *model.PurchaseOrder, items []*model.PurchaseOrderItem) error {
	stamp(&order.Base)
	for _, item := range items {
		stamp(&item.Base)
		item.PurchaseOrderID = order.ID
	}
	order.Items = items
	r.Items = append(r.Items, order)
	return nil
}

func (r *PurchaseOrders) GetByID(_ context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	for _, o := range r.Items {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, apperrors.NotFound("purchase order", nil)
}

func (r *PurchaseOrders) List(_ context.Context, status string, _ *model.Pagination) ([]*model.PurchaseOrder, int, error) {
	var out []*model.PurchaseOrder
	for _, o := range r.Items {
		if status != "" && string(o.Status) != status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (r *PurchaseOrders) UpdateTx(_ context.Context, _ *sqlx.Tx, order *model.PurchaseOrder) error {
	for i, o := range r.Items {
		if o.ID == order.ID {
			order.UpdatedAt = time.Now()
			r.Items[i] = order
			return nil
		}
	}
	return apperrors.NotFound("purchase order", nil)
}

func (r *PurchaseOrders) ReplaceItemsTx(_ context.Context, _ *sqlx.Tx, orderID uuid.UUID, items []*model.PurchaseOrderItem) error {
	for _, o := range r.Items {
		if o.ID == orderID {
			for _, item := range items {
				stamp(&item.Base)
				item.PurchaseOrderID = orderID
			}
			o.Items = items
			return nil
		}
	}
	return apperrors.NotFound("purchase order", nil)
}

func (r *PurchaseOrders) SetItemReceivedTx(_ context.Context, _ *sqlx.Tx, itemID uuid.UUID, receivedQuantity float64) error {
	for _, o := range r.Items {
		for _, item := range o.Items {
			if item.ID == itemID {
				item.ReceivedQuantity = receivedQuantity
				return nil
			}
		}
	}
	return apperrors.NotFound("purchase order item", nil)
}

type CompoundFormulas struct {
	Items []*model.CompoundFormula
}

func (r *CompoundFormulas) Create(_ context.Context, cf *model.CompoundFormula) error {
	stamp(&cf.Base)
	r.Items = append(r.Items, cf)
	return nil
}

func (r *CompoundFormulas) GetByID(_ context.Context, id uuid.UUID) (*model.CompoundFormula, error) {
	for _, cf := range r.Items {
		if cf.ID == id {
			return cf, nil
		}
	}
	return nil, apperrors.NotFound("compound formula", nil)
}

func (r *CompoundFormulas) ListByCompound(_ context.Context, compoundID uuid.UUID) ([]*model.CompoundFormula, error) {
	var out []*model.CompoundFormula
	for _, cf := range r.Items {
		if cf.CompoundID == compoundID {
			out = append(out, cf)
		}
	}
	return out, nil
}

func (r *CompoundFormulas) List(_ context.Context) ([]*model.CompoundFormula, error) {
	return r.Items, nil
}

func (r *CompoundFormulas) Delete(_ context.Context, id uuid.UUID) error {
	for i, cf := range r.Items {
		if cf.ID == id {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("compound formula", nil)
}
