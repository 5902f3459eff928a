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
	_ repository.PatientRepository      = (*Patients)(nil)
	_ repository.RegistrationRepository = (*Registrations)(nil)
	_ repository.ConsultationRepository = (*Consultations)(nil)
	_ repository.CertificateRepository  = (*Certificates)(nil)
	_ repository.PrescriptionRepository = (*Prescriptions)(nil)
	_ repository.FormulaRepository      = (*Formulas)(nil)
)

type Patients struct {
	Items  []*model.Patient
	Images []*model.PatientImage
}

func (r *Patients) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *Patients) CreateTx(_ context.Context, _ *sqlx.Tx, p *model.Patient) error {
	stamp(&p.Base)
	r.Items = append(r.Items, p)
	return nil
}

func (r *Patients) GetByID(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range r.Items {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("patient", nil)
}

func (r *Patients) GetByChartNumber(_ context.Context, chartNumber string) (*model.Patient, error) {
	for _, p := range r.Items {
		if p.ChartNumber == chartNumber {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("patient", nil)
}

func (r *Patients) List(_ context.Context, _ *model.PatientFilter) ([]*model.Patient, int, error) {
	return r.Items, len(r.Items), nil
}

func (r *Patients) Update(_ context.Context, p *model.Patient) error {
	for i, existing := range r.Items {
		if existing.ID == p.ID {
			p.UpdatedAt = time.Now()
			r.Items[i] = p
			return nil
		}
	}
	return apperrors.NotFound("patient", nil)
}

func (r *Patients) Deactivate(_ context.Context, id uuid.UUID) error {
	for _, p := range r.Items {
		if p.ID == id {
			p.IsActive = false
			return nil
		}
	}
	return apperrors.NotFound("patient", nil)
}

func (r *Patients) Search(_ context.Context, query string, limit int) ([]*model.Patient, error) {
	var out []*model.Patient
	for _, p := range r.Items {
		if strings.Contains(p.Name, query) || strings.Contains(p.ChartNumber, query) ||
			strings.Contains(p.Phone, query) || strings.Contains(p.Mobile, query) {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *Patients) AdjustBalanceTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID, delta float64) error {
	for _, p := range r.Items {
		if p.ID == id {
			p.Balance += delta
			return nil
		}
	}
	return apperrors.NotFound("patient", nil)
}

func (r *Patients) CreateImage(_ context.Context, img *model.PatientImage) error {
	stamp(&img.Base)
	r.Images = append(r.Images, img)
	return nil
}

func (r *Patients) ListImages(_ context.Context, patientID uuid.UUID) ([]*model.PatientImage, error) {
	var out []*model.PatientImage
	for _, img := range r.Images {
		if img.PatientID == patientID {
			out = append(out, img)
		}
	}
	return out, nil
}

type Registrations struct {
	Appointments []*model.Appointment
	Items        []*model.Registration
}

func (r *Registrations) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *Registrations) CreateAppointment(_ context.Context, a *model.Appointment) error {
	stamp(&a.Base)
	r.Appointments = append(r.Appointments, a)
	return nil
}

func (r *Registrations) GetAppointment(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	for _, a := range r.Appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, apperrors.NotFound("appointment", nil)
}

func (r *Registrations) ListAppointments(_ context.Context, _ *model.AppointmentFilter) ([]*model.Appointment, int, error) {
	return r.Appointments, len(r.Appointments), nil
}

func (r *Registrations) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	for i, existing := range r.Appointments {
		if existing.ID == a.ID {
			a.UpdatedAt = time.Now()
			r.Appointments[i] = a
			return nil
		}
	}
	return apperrors.NotFound("appointment", nil)
}

func (r *Registrations) UpdateAppointmentStatusTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID, status model.AppointmentStatus) error {
	for _, a := range r.Appointments {
		if a.ID == id {
			a.Status = status
			a.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperrors.NotFound("appointment", nil)
}

func (r *Registrations) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	for i, a := range r.Appointments {
		if a.ID == id {
			r.Appointments = append(r.Appointments[:i], r.Appointments[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("appointment", nil)
}

func (r *Registrations) AppointmentConverted(_ context.Context, id uuid.UUID) (bool, error) {
	for _, reg := range r.Items {
		if reg.AppointmentID != nil && *reg.AppointmentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *Registrations) CreateTx(_ context.Context, _ *sqlx.Tx, reg *model.Registration) error {
	stamp(&reg.Base)
	r.Items = append(r.Items, reg)
	return nil
}

func (r *Registrations) GetByID(_ context.Context, id uuid.UUID) (*model.Registration, error) {
	for _, reg := range r.Items {
		if reg.ID == id {
			return reg, nil
		}
	}
	return nil, apperrors.NotFound("registration", nil)
}

func (r *Registrations) List(_ context.Context, _ *model.RegistrationFilter) ([]*model.Registration, int, error) {
	return r.Items, len(r.Items), nil
}

func (r *Registrations) Update(_ context.Context, reg *model.Registration) error {
	return r.replace(reg)
}

func (r *Registrations) UpdateTx(_ context.Context, _ *sqlx.Tx, reg *model.Registration) error {
	return r.replace(reg)
}

func (r *Registrations) replace(reg *model.Registration) error {
	for i, existing := range r.Items {
		if existing.ID == reg.ID {
			reg.UpdatedAt = time.Now()
			r.Items[i] = reg
			return nil
		}
	}
	return apperrors.NotFound("registration", nil)
}

func (r *Registrations) HasCompletedVisit(_ context.Context, patientID uuid.UUID) (bool, error) {
	for _, reg := range r.Items {
		if reg.PatientID == patientID && reg.Status == model.RegistrationStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *Registrations) ListQueue(_ context.Context, _ time.Time, doctorID, roomID *uuid.UUID) ([]*model.Registration, error) {
	var out []*model.Registration
	for _, reg := range r.Items {
		if doctorID != nil && reg.DoctorID != *doctorID {
			continue
		}
		if roomID != nil && (reg.RoomID == nil || *reg.RoomID != *roomID) {
			continue
		}
		out = append(out, reg)
	}
	return out, nil
}

func (r *Registrations) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*model.Registration, error) {
	var out []*model.Registration
	for _, reg := range r.Items {
		if reg.PatientID == patientID {
			out = append(out, reg)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type Consultations struct {
	Terms []*model.DiagnosticTerm
	Items []*model.Consultation
}

func (r *Consultations) CreateTerm(_ context.Context, term *model.DiagnosticTerm) error {
	stamp(&term.Base)
	r.Terms = append(r.Terms, term)
	return nil
}

func (r *Consultations) GetTerm(_ context.Context, id uuid.UUID) (*model.DiagnosticTerm, error) {
	for _, t := range r.Terms {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperrors.NotFound("diagnostic term", nil)
}

func (r *Consultations) ListTerms(_ context.Context, category string) ([]*model.DiagnosticTerm, error) {
	var out []*model.DiagnosticTerm
	for _, t := range r.Terms {
		if category != "" && string(t.Category) != category {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *Consultations) UpdateTerm(_ context.Context, term *model.DiagnosticTerm) error {
	for i, t := range r.Terms {
		if t.ID == term.ID {
			term.UpdatedAt = time.Now()
			r.Terms[i] = term
			return nil
		}
	}
	return apperrors.NotFound("diagnostic term", nil)
}

func (r *Consultations) DeleteTerm(_ context.Context, id uuid.UUID) error {
	for i, t := range r.Terms {
		if t.ID == id {
			r.Terms = append(r.Terms[:i], r.Terms[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("diagnostic term", nil)
}

func (r *Consultations) Create(_ context.Context, c *model.Consultation) error {
	stamp(&c.Base)
	r.Items = append(r.Items, c)
	return nil
}

func (r *Consultations) GetByID(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	for _, c := range r.Items {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("consultation", nil)
}

func (r *Consultations) GetByRegistrationID(_ context.Context, registrationID uuid.UUID) (*model.Consultation, error) {
	for _, c := range r.Items {
		if c.RegistrationID == registrationID {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("consultation", nil)
}

func (r *Consultations) ExistsForRegistration(_ context.Context, registrationID uuid.UUID) (bool, error) {
	for _, c := range r.Items {
		if c.RegistrationID == registrationID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Consultations) List(_ context.Context, _ *model.Pagination) ([]*model.Consultation, int, error) {
	return r.Items, len(r.Items), nil
}

func (r *Consultations) ListByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*model.Consultation, error) {
	var out []*model.Consultation
	for _, c := range r.Items {
		if c.PatientID != nil && *c.PatientID == patientID {
			out = append(out, c)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *Consultations) GetPreviousForPatient(_ context.Context, patientID uuid.UUID, before time.Time, excludeID uuid.UUID) (*model.Consultation, error) {
	var prev *model.Consultation
	for _, c := range r.Items {
		if c.ID == excludeID || c.PatientID == nil || *c.PatientID != patientID {
			continue
		}
		if !c.CreatedAt.Before(before) {
			continue
		}
		if prev == nil || c.CreatedAt.After(prev.CreatedAt) {
			prev = c
		}
	}
	if prev == nil {
		return nil, apperrors.NotFound("consultation", nil)
	}
	return prev, nil
}

func (r *Consultations) Update(_ context.Context, c *model.Consultation) error {
	for i, existing := range r.Items {
		if existing.ID == c.ID {
			c.UpdatedAt = time.Now()
			r.Items[i] = c
			return nil
		}
	}
	return apperrors.NotFound("consultation", nil)
}

func (r *Consultations) Delete(_ context.Context, id uuid.UUID) error {
	for i, c := range r.Items {
		if c.ID == id {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("consultation", nil)
}

type Certificates struct {
	Items []*model.Certificate
}

func (r *Certificates) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *Certificates) CreateTx(_ context.Context, _ *sqlx.Tx, cert *model.Certificate) error {
	stamp(&cert.Base)
	r.Items = append(r.Items, cert)
	return nil
}

func (r *Certificates) GetByID(_ context.Context, id uuid.UUID) (*model.Certificate, error) {
	for _, c := range r.Items {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("certificate", nil)
}

func (r *Certificates) ListByConsultation(_ context.Context, consultationID uuid.UUID) ([]*model.Certificate, error) {
	var out []*model.Certificate
	for _, c := range r.Items {
		if c.ConsultationID == consultationID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *Certificates) List(_ context.Context, _ *model.Pagination) ([]*model.Certificate, int, error) {
	return r.Items, len(r.Items), nil
}

func (r *Certificates) Update(_ context.Context, cert *model.Certificate) error {
	for i, c := range r.Items {
		if c.ID == cert.ID {
			cert.UpdatedAt = time.Now()
			r.Items[i] = cert
			return nil
		}
	}
	return apperrors.NotFound("certificate", nil)
}

func (r *Certificates) Delete(_ context.Context, id uuid.UUID) error {
	for i, c := range r.Items {
		if c.ID == id {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("certificate", nil)
}

func (r *Certificates) RecordPrint(_ context.Context, id uuid.UUID, at time.Time) (*model.Certificate, error) {
	for _, c := range r.Items {
		if c.ID == id {
			c.PrintCount++
			c.LastPrintedAt = &at
			c.UpdatedAt = at
			return c, nil
		}
	}
	return nil, apperrors.NotFound("certificate", nil)
}

// Prescriptions keys the registration lookups off a seeded index because
// the SQL layer resolves them through the consultations table.
type Prescriptions struct {
	Items          []*model.Prescription
	ByRegistration map[uuid.UUID][]*model.Prescription
}

func (r *Prescriptions) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (r *Prescriptions) CreateTx(_ context.Context, _ *sqlx.Tx, p *model.Prescription, items []*model.PrescriptionItem) error {
	stamp(&p.Base)
	for _, item := range items {
		stamp(&item.Base)
		item.PrescriptionID = p.ID
	}
	p.Items = items
	r.Items = append(r.Items, p)
	return nil
}

func (r *Prescriptions) GetByID(_ context.Context, id uuid.UUID) (*model.Prescription, error) {
	for _, p := range r.Items {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("prescription", nil)
}

func (r *Prescriptions) ListByConsultation(_ context.Context, consultationID uuid.UUID) ([]*model.Prescription, error) {
	var out []*model.Prescription
	for _, p := range r.Items {
		if p.ConsultationID == consultationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Prescriptions) ListByRegistration(_ context.Context, registrationID uuid.UUID) ([]*model.Prescription, error) {
	return r.ByRegistration[registrationID], nil
}

func (r *Prescriptions) AnyDispensedForRegistration(_ context.Context, registrationID uuid.UUID) (bool, error) {
	for _, p := range r.ByRegistration[registrationID] {
		if p.IsDispensed {
			return true, nil
		}
	}
	return false, nil
}

func (r *Prescriptions) UpdateTx(_ context.Context, _ *sqlx.Tx, p *model.Prescription, items []*model.PrescriptionItem) error {
	for i, existing := range r.Items {
		if existing.ID == p.ID {
			if items != nil {
				for _, item := range items {
					stamp(&item.Base)
					item.PrescriptionID = p.ID
				}
				p.Items = items
			}
			p.UpdatedAt = time.Now()
			r.Items[i] = p
			return nil
		}
	}
	return apperrors.NotFound("prescription", nil)
}

func (r *Prescriptions) MarkDispensedTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID, at time.Time) error {
	for _, p := range r.Items {
		if p.ID == id {
			p.IsDispensed = true
			p.DispensedAt = &at
			return nil
		}
	}
	return apperrors.NotFound("prescription", nil)
}

func (r *Prescriptions) Delete(_ context.Context, id uuid.UUID) error {
	for i, p := range r.Items {
		if p.ID == id {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("prescription", nil)
}

type Formulas struct {
	Items []*model.ExperienceFormula
}

func (r *Formulas) Create(_ context.Context, f *model.ExperienceFormula, items []*model.ExperienceFormulaItem) error {
	stamp(&f.Base)
	for _, item := range items {
		stamp(&item.Base)
		item.FormulaID = f.ID
	}
	f.Items = items
	r.Items = append(r.Items, f)
	return nil
}

func (r *Formulas) GetByID(_ context.Context, id uuid.UUID) (*model.ExperienceFormula, error) {
	for _, f := range r.Items {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, apperrors.NotFound("formula", nil)
}

func (r *Formulas) ListVisible(_ context.Context, doctorID uuid.UUID) ([]*model.ExperienceFormula, error) {
	var out []*model.ExperienceFormula
	for _, f := range r.Items {
		if f.IsPublic || f.DoctorID == doctorID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *Formulas) Update(_ context.Context, f *model.ExperienceFormula, items []*model.ExperienceFormulaItem) error {
	for i, existing := range r.Items {
		if existing.ID == f.ID {
			if items != nil {
				for _, item := range items {
					stamp(&item.Base)
					item.FormulaID = f.ID
				}
				f.Items = items
			}
			f.UpdatedAt = time.Now()
			r.Items[i] = f
			return nil
		}
	}
	return apperrors.NotFound("formula", nil)
}

func (r *Formulas) Delete(_ context.Context, id uuid.UUID) error {
	for i, f := range r.Items {
		if f.ID == id {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("formula", nil)
}
