package repotest

import (
	"context"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

var _ repository.ClinicRepository = (*Clinics)(nil)

// Clinics stores the settings row, rooms and schedules in memory.
type Clinics struct {
	Settings  *model.ClinicSettings
	Rooms     []*model.ClinicRoom
	Schedules []*model.Schedule
}

func (r *Clinics) GetSettings(_ context.Context) (*model.ClinicSettings, error) {
	if r.Settings == nil {
		return nil, apperrors.NotFound("clinic settings", nil)
	}
	return r.Settings, nil
}

func (r *Clinics) UpdateSettings(_ context.Context, settings *model.ClinicSettings) error {
	stamp(&settings.Base)
	r.Settings = settings
	return nil
}

func (r *Clinics) CreateRoom(_ context.Context, room *model.ClinicRoom) error {
	for _, existing := range r.Rooms {
		if existing.Code == room.Code {
			return apperrors.Conflict("room code already exists", nil)
		}
	}
	stamp(&room.Base)
	r.Rooms = append(r.Rooms, room)
	return nil
}

func (r *Clinics) GetRoom(_ context.Context, id uuid.UUID) (*model.ClinicRoom, error) {
	for _, room := range r.Rooms {
		if room.ID == id {
			return room, nil
		}
	}
	return nil, apperrors.NotFound("room", nil)
}

func (r *Clinics) ListRooms(_ context.Context) ([]*model.ClinicRoom, error) {
	return r.Rooms, nil
}

func (r *Clinics) UpdateRoom(_ context.Context, room *model.ClinicRoom) error {
	for i, existing := range r.Rooms {
		if existing.ID == room.ID {
			r.Rooms[i] = room
			return nil
		}
	}
	return apperrors.NotFound("room", nil)
}

func (r *Clinics) DeleteRoom(_ context.Context, id uuid.UUID) error {
	for i, room := range r.Rooms {
		if room.ID == id {
			r.Rooms = append(r.Rooms[:i], r.Rooms[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("room", nil)
}

func (r *Clinics) CreateSchedule(_ context.Context, schedule *model.Schedule) error {
	stamp(&schedule.Base)
	r.Schedules = append(r.Schedules, schedule)
	return nil
}

func (r *Clinics) GetSchedule(_ context.Context, id uuid.UUID) (*model.Schedule, error) {
	for _, s := range r.Schedules {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperrors.NotFound("schedule", nil)
}

func (r *Clinics) ListSchedules(_ context.Context, doctorID *uuid.UUID) ([]*model.Schedule, error) {
	if doctorID == nil {
		return r.Schedules, nil
	}
	var out []*model.Schedule
	for _, s := range r.Schedules {
		if s.DoctorID == *doctorID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *Clinics) UpdateSchedule(_ context.Context, schedule *model.Schedule) error {
	for i, s := range r.Schedules {
		if s.ID == schedule.ID {
			r.Schedules[i] = schedule
			return nil
		}
	}
	return apperrors.NotFound("schedule", nil)
}

func (r *Clinics) DeleteSchedule(_ context.Context, id uuid.UUID) error {
	for i, s := range r.Schedules {
		if s.ID == id {
			r.Schedules = append(r.Schedules[:i], r.Schedules[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("schedule", nil)
}

func (r *Clinics) ScheduleExists(_ context.Context, doctorID uuid.UUID, dayOfWeek int, period model.Period, excludeID *uuid.UUID) (bool, error) {
	for _, s := range r.Schedules {
		if excludeID != nil && s.ID == *excludeID {
			continue
		}
		if s.DoctorID == doctorID && s.DayOfWeek == dayOfWeek && s.Period == period {
			return true, nil
		}
	}
	return false, nil
}
