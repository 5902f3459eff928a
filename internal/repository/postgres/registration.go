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

type registrationRepository struct {
	BaseRepository
}

func NewRegistrationRepository(base BaseRepository) repository.RegistrationRepository {
	return &registrationRepository{base}
}

func (r *registrationRepository) CreateAppointment(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, room_id, appointment_date,
			appointment_time, status, notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	appt.ID = uuid.New()
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.DoctorID,
		appt.RoomID,
		appt.AppointmentDate,
		appt.AppointmentTime,
		appt.Status,
		appt.Notes,
		appt.CreatedBy,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

const appointmentSelect = `
	SELECT a.*, p.name AS patient_name, u.username AS doctor_name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN users u ON u.id = a.doctor_id
`

func (r *registrationRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, appointmentSelect+` WHERE a.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "appointment")
	}
	return &appt, nil
}

func (r *registrationRepository) ListAppointments(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, int, error) {
	where := ` WHERE ($1 = '' OR a.appointment_date = $1::date)
		AND ($2 = '' OR a.doctor_id = $2::uuid)
		AND ($3 = '' OR a.patient_id = $3::uuid)
		AND ($4 = '' OR a.status = $4)`

	var total int
	countQuery := `SELECT COUNT(*) FROM appointments a` + where
	if err := r.db.GetContext(ctx, &total, countQuery,
		filter.Date, filter.DoctorID, filter.PatientID, filter.Status); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	query := appointmentSelect + where +
		` ORDER BY a.appointment_date DESC, a.appointment_time LIMIT $5 OFFSET $6`
	var appts []*model.Appointment
	err := r.db.SelectContext(ctx, &appts, query,
		filter.Date, filter.DoctorID, filter.PatientID, filter.Status,
		filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, total, nil
}

func (r *registrationRepository) UpdateAppointment(ctx context.Context, appt *model.Appointment) error {
	query := `
		UPDATE appointments SET
			doctor_id = $1, room_id = $2, appointment_date = $3,
			appointment_time = $4, status = $5, notes = $6, updated_at = $7
		WHERE id = $8
	`
	appt.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		appt.DoctorID,
		appt.RoomID,
		appt.AppointmentDate,
		appt.AppointmentTime,
		appt.Status,
		appt.Notes,
		appt.UpdatedAt,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

func (r *registrationRepository) UpdateAppointmentStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.AppointmentStatus) error {
	query := `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := tx.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return nil
}

func (r *registrationRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

func (r *registrationRepository) AppointmentConverted(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM registrations WHERE appointment_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, appointmentID); err != nil {
		return false, fmt.Errorf("failed to check appointment conversion: %w", err)
	}
	return exists, nil
}

func (r *registrationRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, reg *model.Registration) error {
	query := `
		INSERT INTO registrations (
			id, patient_id, doctor_id, room_id, appointment_id,
			registration_number, queue_number, visit_type, status,
			registration_date, registration_time, registration_fee,
			notes, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`
	reg.ID = uuid.New()
	reg.CreatedAt = time.Now()
	reg.UpdatedAt = reg.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		reg.ID,
		reg.PatientID,
		reg.DoctorID,
		reg.RoomID,
		reg.AppointmentID,
		reg.RegistrationNumber,
		reg.QueueNumber,
		reg.VisitType,
		reg.Status,
		reg.RegistrationDate,
		reg.RegistrationTime,
		reg.RegistrationFee,
		reg.Notes,
		reg.CreatedBy,
		reg.CreatedAt,
		reg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

const registrationSelect = `
	SELECT r.*, p.name AS patient_name, p.chart_number,
		u.username AS doctor_name, COALESCE(cr.name, '') AS room_name
	FROM registrations r
	JOIN patients p ON p.id = r.patient_id
	JOIN users u ON u.id = r.doctor_id
	LEFT JOIN clinic_rooms cr ON cr.id = r.room_id
`

func (r *registrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.GetContext(ctx, &reg, registrationSelect+` WHERE r.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "registration")
	}
	return &reg, nil
}

func (r *registrationRepository) List(ctx context.Context, filter *model.RegistrationFilter) ([]*model.Registration, int, error) {
	where := ` WHERE ($1 = '' OR r.registration_date = $1::date)
		AND ($2 = '' OR r.doctor_id = $2::uuid)
		AND ($3 = '' OR r.room_id = $3::uuid)
		AND ($4 = '' OR r.patient_id = $4::uuid)
		AND ($5 = '' OR r.status = $5)`

	var total int
	countQuery := `SELECT COUNT(*) FROM registrations r` + where
	if err := r.db.GetContext(ctx, &total, countQuery,
		filter.Date, filter.DoctorID, filter.RoomID, filter.PatientID, filter.Status); err != nil {
		return nil, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	query := registrationSelect + where +
		` ORDER BY r.registration_date DESC, r.queue_number LIMIT $6 OFFSET $7`
	var regs []*model.Registration
	err := r.db.SelectContext(ctx, &regs, query,
		filter.Date, filter.DoctorID, filter.RoomID, filter.PatientID, filter.Status,
		filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, total, nil
}

func (r *registrationRepository) Update(ctx context.Context, reg *model.Registration) error {
	return r.update(ctx, r.db, reg)
}

func (r *registrationRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, reg *model.Registration) error {
	return r.update(ctx, tx, reg)
}

func (r *registrationRepository) update(ctx context.Context, ec sqlx.ExecerContext, reg *model.Registration) error {
	query := `
		UPDATE registrations SET
			doctor_id = $1, room_id = $2, status = $3, check_in_at = $4,
			consultation_start = $5, consultation_end = $6,
			registration_fee = $7, notes = $8, updated_at = $9
		WHERE id = $10
	`
	reg.UpdatedAt = time.Now()
	_, err := ec.ExecContext(ctx, query,
		reg.DoctorID,
		reg.RoomID,
		reg.Status,
		reg.CheckInAt,
		reg.ConsultationStart,
		reg.ConsultationEnd,
		reg.RegistrationFee,
		reg.Notes,
		reg.UpdatedAt,
		reg.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update registration: %w", err)
	}
	return nil
}

func (r *registrationRepository) HasCompletedVisit(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM registrations WHERE patient_id = $1 AND status = $2)`
	if err := r.db.GetContext(ctx, &exists, query, patientID, model.RegistrationStatusCompleted); err != nil {
		return false, fmt.Errorf("failed to check completed visits: %w", err)
	}
	return exists, nil
}

func (r *registrationRepository) ListQueue(ctx context.Context, date time.Time, doctorID, roomID *uuid.UUID) ([]*model.Registration, error) {
	query := registrationSelect + `
		WHERE r.registration_date = $1
		AND ($2::uuid IS NULL OR r.doctor_id = $2)
		AND ($3::uuid IS NULL OR r.room_id = $3)
		ORDER BY r.queue_number
	`
	var regs []*model.Registration
	err := r.db.SelectContext(ctx, &regs, query, date, doctorID, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	return regs, nil
}

func (r *registrationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Registration, error) {
	query := registrationSelect + `
		WHERE r.patient_id = $1
		ORDER BY r.registration_date DESC, r.created_at DESC
		LIMIT $2
	`
	var regs []*model.Registration
	err := r.db.SelectContext(ctx, &regs, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient registrations: %w", err)
	}
	return regs, nil
}
