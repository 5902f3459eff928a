package repotest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

var (
	_ repository.ChargeItemRepository = (*ChargeItems)(nil)
	_ repository.BillRepository       = (*Bills)(nil)
	_ repository.PaymentRepository    = (*Payments)(nil)
	_ repository.DebtRepository       = (*Debts)(nil)
)

type ChargeItems struct {
	Items []*model.ChargeItem
}

func (r *ChargeItems) Create(_ context.Context, item *model.ChargeItem) error {
	stamp(&item.Base)
	r.Items = append(r.Items, item)
	return nil
}

func (r *ChargeItems) GetByID(_ context.Context, id uuid.UUID) (*model.ChargeItem, error) {
	for _, item := range r.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, apperrors.NotFound("charge item", nil)
}

func (r *ChargeItems) GetByCode(_ context.Context, code string) (*model.ChargeItem, error) {
	for _, item := range r.Items {
		if item.Code == code {
			return item, nil
		}
	}
	return nil, apperrors.NotFound("charge item", nil)
}

func (r *ChargeItems) List(_ context.Context, activeOnly bool) ([]*model.ChargeItem, error) {
	var out []*model.ChargeItem
	for _, item := range r.Items {
		if activeOnly && !item.IsActive {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *ChargeItems) Update(_ context.Context, item *model.ChargeItem) error {
	for i, existing := range r.Items {
		if existing.ID == item.ID {
			item.UpdatedAt = time.Now()
			r.Items[i] = item
			return nil
		}
	}
	return apperrors.NotFound("charge item", nil)
}

func (r *ChargeItems) Delete(_ context.Context, id uuid.UUID) error {
	for i, item := range r.Items {
		if item.ID == id {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("charge item", nil)
}

// Bills keeps line items attached to their bill, mirroring how the SQL
// layer loads a bill with its items.
type Bills struct {
	Items   []*model.Bill
	Summary *model.DailyBillingSummary
}

func (r *Bills) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *Bills) CreateTx(_ context.Context, _ *sqlx.Tx, bill *model.Bill, items []*model.BillItem) error {
	stamp(&bill.Base)
	for _, item := range items {
		stamp(&item.Base)
		item.BillID = bill.ID
	}
	bill.Items = items
	r.Items = append(r.Items, bill)
	return nil
}

func (r *Bills) GetByID(_ context.Context, id uuid.UUID) (*model.Bill, error) {
	for _, b := range r.Items {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, apperrors.NotFound("bill", nil)
}

func (r *Bills) GetByRegistrationID(_ context.Context, registrationID uuid.UUID) (*model.Bill, error) {
	for _, b := range r.Items {
		if b.RegistrationID == registrationID {
			return b, nil
		}
	}
	return nil, apperrors.NotFound("bill", nil)
}

func (r *Bills) ExistsForRegistration(_ context.Context, registrationID uuid.UUID) (bool, error) {
	for _, b := range r.Items {
		if b.RegistrationID == registrationID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Bills) List(_ context.Context, _ *model.BillFilter) ([]*model.Bill, int, error) {
	return r.Items, len(r.Items), nil
}

func (r *Bills) UpdateTx(_ context.Context, _ *sqlx.Tx, bill *model.Bill) error {
	for i, b := range r.Items {
		if b.ID == bill.ID {
			bill.UpdatedAt = time.Now()
			r.Items[i] = bill
			return nil
		}
	}
	return apperrors.NotFound("bill", nil)
}

func (r *Bills) ReplaceItemsTx(_ context.Context, _ *sqlx.Tx, billID uuid.UUID, items []*model.BillItem) error {
	for _, b := range r.Items {
		if b.ID == billID {
			for _, item := range items {
				stamp(&item.Base)
				item.BillID = billID
			}
			b.Items = items
			return nil
		}
	}
	return apperrors.NotFound("bill", nil)
}

func (r *Bills) DailySummary(_ context.Context, date time.Time) (*model.DailyBillingSummary, error) {
	if r.Summary != nil {
		return r.Summary, nil
	}
	return &model.DailyBillingSummary{
		Date:          date.Format("2006-01-02"),
		BillsByStatus: map[string]int{},
		ByMethod:      map[string]float64{},
	}, nil
}

type Payments struct {
	Items []*model.Payment
}

func (r *Payments) CreateTx(_ context.Context, _ *sqlx.Tx, p *model.Payment) error {
	stamp(&p.Base)
	r.Items = append(r.Items, p)
	return nil
}

func (r *Payments) List(_ context.Context, _ *model.PaymentFilter) ([]*model.Payment, int, error) {
	return r.Items, len(r.Items), nil
}

func (r *Payments) ListByBill(_ context.Context, billID uuid.UUID) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range r.Items {
		if p.BillID == billID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Debts upserts by bill, matching the unique constraint on bill_id.
type Debts struct {
	Items []*model.Debt
}

func (r *Debts) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *Debts) GetByID(_ context.Context, id uuid.UUID) (*model.Debt, error) {
	for _, d := range r.Items {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, apperrors.NotFound("debt", nil)
}

func (r *Debts) GetByBillTx(_ context.Context, _ *sqlx.Tx, billID uuid.UUID) (*model.Debt, error) {
	for _, d := range r.Items {
		if d.BillID == billID {
			return d, nil
		}
	}
	return nil, apperrors.NotFound("debt", nil)
}

func (r *Debts) UpsertTx(_ context.Context, _ *sqlx.Tx, debt *model.Debt) error {
	for _, existing := range r.Items {
		if existing.BillID == debt.BillID {
			existing.OriginalAmount = debt.OriginalAmount
			existing.RemainingAmount = debt.RemainingAmount
			existing.Status = debt.Status
			existing.UpdatedAt = time.Now()
			return nil
		}
	}
	stamp(&debt.Base)
	r.Items = append(r.Items, debt)
	return nil
}

func (r *Debts) UpdateTx(_ context.Context, _ *sqlx.Tx, debt *model.Debt) error {
	for i, d := range r.Items {
		if d.ID == debt.ID {
			debt.UpdatedAt = time.Now()
			r.Items[i] = debt
			return nil
		}
	}
	return apperrors.NotFound("debt", nil)
}

func (r *Debts) List(_ context.Context, status string, _ *model.Pagination) ([]*model.Debt, int, error) {
	var out []*model.Debt
	for _, d := range r.Items {
		if status != "" && string(d.Status) != status {
			continue
		}
		out = append(out, d)
	}
	return out, len(out), nil
}

func (r *Debts) ListOpenByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Debt, error) {
	var out []*model.Debt
	for _, d := range r.Items {
		if d.PatientID != patientID {
			continue
		}
		if d.Status != model.DebtStatusOutstanding && d.Status != model.DebtStatusPartial {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
