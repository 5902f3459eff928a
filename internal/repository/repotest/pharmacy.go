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
	_ repository.PharmacyRepository        = (*Pharmacies)(nil)
	_ repository.DispensingOrderRepository = (*Orders)(nil)
)

type Pharmacies struct {
	Items []*model.ExternalPharmacy
}

func (r *Pharmacies) Create(_ context.Context, pharmacy *model.ExternalPharmacy) error {
	stamp(&pharmacy.Base)
	r.Items = append(r.Items, pharmacy)
	return nil
}

func (r *Pharmacies) GetByID(_ context.Context, id uuid.UUID) (*model.ExternalPharmacy, error) {
	for _, p := range r.Items {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("pharmacy", nil)
}

func (r *Pharmacies) List(_ context.Context, activeOnly bool) ([]*model.ExternalPharmacy, error) {
	var out []*model.ExternalPharmacy
	for _, p := range r.Items {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Pharmacies) Update(_ context.Context, pharmacy *model.ExternalPharmacy) error {
	for i, p := range r.Items {
		if p.ID == pharmacy.ID {
			pharmacy.UpdatedAt = time.Now()
			r.Items[i] = pharmacy
			return nil
		}
	}
	return apperrors.NotFound("pharmacy", nil)
}

func (r *Pharmacies) Delete(_ context.Context, id uuid.UUID) error {
	for i, p := range r.Items {
		if p.ID == id {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("pharmacy", nil)
}

type Orders struct {
	Items []*model.DispensingOrder
}

func (r *Orders) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *Orders) CreateTx(_ context.Context, _ *sqlx.Tx, order *model.DispensingOrder) error {
	stamp(&order.Base)
	r.Items = append(r.Items, order)
	return nil
}

func (r *Orders) GetByID(_ context.Context, id uuid.UUID) (*model.DispensingOrder, error) {
	for _, o := range r.Items {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, apperrors.NotFound("dispensing order", nil)
}

func (r *Orders) GetByClientOrderID(_ context.Context, clientOrderID string) (*model.DispensingOrder, error) {
	for _, o := range r.Items {
		if o.ClientOrderID == clientOrderID {
			return o, nil
		}
	}
	return nil, apperrors.NotFound("dispensing order", nil)
}

func (r *Orders) List(_ context.Context, _ *model.DispensingOrderFilter) ([]*model.DispensingOrder, int, error) {
	return r.Items, len(r.Items), nil
}

func (r *Orders) Update(_ context.Context, order *model.DispensingOrder) error {
	return r.replace(order)
}

func (r *Orders) UpdateTx(_ context.Context, _ *sqlx.Tx, order *model.DispensingOrder) error {
	return r.replace(order)
}

func (r *Orders) replace(order *model.DispensingOrder) error {
	for i, o := range r.Items {
		if o.ID == order.ID {
			order.UpdatedAt = time.Now()
			r.Items[i] = order
			return nil
		}
	}
	return apperrors.NotFound("dispensing order", nil)
}
