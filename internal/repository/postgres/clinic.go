package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
)

type clinicRepository struct {
	BaseRepository
}

func NewClinicRepository(base BaseRepository) repository.ClinicRepository {
	return &clinicRepository{base}
}

func (r *clinicRepository) GetSettings(ctx context.Context) (*model.ClinicSettings, error) {
	var settings model.ClinicSettings
	err := r.db.GetContext(ctx, &settings, `SELECT * FROM clinic_settings LIMIT 1`)
	if err != nil {
		return nil, notFound(err, "clinic settings")
	}
	return &settings, nil
}

func (r *clinicRepository) UpdateSettings(ctx context.Context, settings *model.ClinicSettings) error {
	query := `
		UPDATE clinic_settings SET
			clinic_name = $1, address = $2, phone = $3, fax = $4, email = $5,
			enable_data_masking = $6, appointment_slot_duration = $7,
			auto_queue_mode = $8, updated_at = $9
		WHERE id = $10
	`
	settings.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		settings.ClinicName,
		settings.Address,
		settings.Phone,
		settings.Fax,
		settings.Email,
		settings.EnableDataMasking,
		settings.AppointmentSlotDuration,
		settings.AutoQueueMode,
		settings.UpdatedAt,
		settings.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update clinic settings: %w", err)
	}
	return nil
}

func (r *clinicRepository) CreateRoom(ctx context.Context, room *model.ClinicRoom) error {
	query := `
		INSERT INTO clinic_rooms (id, name, code, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	room.ID = uuid.New()
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		room.ID, room.Name, room.Code, room.IsActive, room.CreatedAt, room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *clinicRepository) GetRoom(ctx context.Context, id uuid.UUID) (*model.ClinicRoom, error) {
	var room model.ClinicRoom
	err := r.db.GetContext(ctx, &room, `SELECT * FROM clinic_rooms WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "room")
	}
	return &room, nil
}

func (r *clinicRepository) ListRooms(ctx context.Context) ([]*model.ClinicRoom, error) {
	var rooms []*model.ClinicRoom
	err := r.db.SelectContext(ctx, &rooms, `SELECT * FROM clinic_rooms ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (r *clinicRepository) UpdateRoom(ctx context.Context, room *model.ClinicRoom) error {
	query := `UPDATE clinic_rooms SET name = $1, code = $2, is_active = $3, updated_at = $4 WHERE id = $5`
	room.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, room.Name, room.Code, room.IsActive, room.UpdatedAt, room.ID)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	return nil
}

func (r *clinicRepository) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM clinic_rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}

func (r *clinicRepository) CreateSchedule(ctx context.Context, schedule *model.Schedule) error {
	query := `
		INSERT INTO schedules (
			id, doctor_id, room_id, day_of_week, period, start_time,
			end_time, max_patients, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	schedule.ID = uuid.New()
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = schedule.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.DoctorID,
		schedule.RoomID,
		schedule.DayOfWeek,
		schedule.Period,
		schedule.StartTime,
		schedule.EndTime,
		schedule.MaxPatients,
		schedule.IsActive,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (r *clinicRepository) GetSchedule(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	var schedule model.Schedule
	query := `
		SELECT s.*, u.username AS doctor_name, COALESCE(cr.name, '') AS room_name
		FROM schedules s
		JOIN users u ON u.id = s.doctor_id
		LEFT JOIN clinic_rooms cr ON cr.id = s.room_id
		WHERE s.id = $1
	`
	err := r.db.GetContext(ctx, &schedule, query, id)
	if err != nil {
		return nil, notFound(err, "schedule")
	}
	return &schedule, nil
}

func (r *clinicRepository) ListSchedules(ctx context.Context, doctorID *uuid.UUID) ([]*model.Schedule, error) {
	query := `
		SELECT s.*, u.username AS doctor_name, COALESCE(cr.name, '') AS room_name
		FROM schedules s
		JOIN users u ON u.id = s.doctor_id
		LEFT JOIN clinic_rooms cr ON cr.id = s.room_id
		WHERE ($1::uuid IS NULL OR s.doctor_id = $1)
		ORDER BY s.day_of_week, s.period
	`
	var schedules []*model.Schedule
	err := r.db.SelectContext(ctx, &schedules, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (r *clinicRepository) UpdateSchedule(ctx context.Context, schedule *model.Schedule) error {
	query := `
		UPDATE schedules SET
			room_id = $1, start_time = $2, end_time = $3,
			max_patients = $4, is_active = $5, updated_at = $6
		WHERE id = $7
	`
	schedule.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		schedule.RoomID,
		schedule.StartTime,
		schedule.EndTime,
		schedule.MaxPatients,
		schedule.IsActive,
		schedule.UpdatedAt,
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

func (r *clinicRepository) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

func (r *clinicRepository) ScheduleExists(ctx context.Context, doctorID uuid.UUID, dayOfWeek int, period model.Period, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM schedules
			WHERE doctor_id = $1 AND day_of_week = $2 AND period = $3
			AND ($4::uuid IS NULL OR id != $4)
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, doctorID, dayOfWeek, period, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check schedule: %w", err)
	}
	return exists, nil
}
