package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

type Service struct {
	repo     repository.ClinicRepository
	userRepo repository.UserRepository
	auditor  *audit.Service
}

func NewService(repo repository.ClinicRepository, userRepo repository.UserRepository, auditor *audit.Service) *Service {
	return &Service{repo: repo, userRepo: userRepo, auditor: auditor}
}

func (s *Service) GetSettings(ctx context.Context) (*model.ClinicSettings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, actorID *uuid.UUID, req *model.UpdateClinicSettingsRequest) (*model.ClinicSettings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	before := *settings

	if req.ClinicName != nil {
		settings.ClinicName = *req.ClinicName
	}
	if req.Address != nil {
		settings.Address = *req.Address
	}
	if req.Phone != nil {
		settings.Phone = *req.Phone
	}
	if req.Fax != nil {
		settings.Fax = *req.Fax
	}
	if req.Email != nil {
		settings.Email = *req.Email
	}
	if req.EnableDataMasking != nil {
		settings.EnableDataMasking = *req.EnableDataMasking
	}
	if req.AppointmentSlotDuration != nil {
		settings.AppointmentSlotDuration = *req.AppointmentSlotDuration
	}
	if req.AutoQueueMode != nil {
		settings.AutoQueueMode = model.QueueMode(*req.AutoQueueMode)
	}

	if err := s.repo.UpdateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update clinic settings: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "clinic_settings", &settings.ID,
		&audit.LogOptions{Before: before, After: settings})
	return settings, nil
}

func (s *Service) CreateRoom(ctx context.Context, req *model.CreateRoomRequest) (*model.ClinicRoom, error) {
	room := &model.ClinicRoom{
		Name:     req.Name,
		Code:     req.Code,
		IsActive: true,
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*model.ClinicRoom, error) {
	return s.repo.GetRoom(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context) ([]*model.ClinicRoom, error) {
	return s.repo.ListRooms(ctx)
}

func (s *Service) UpdateRoom(ctx context.Context, id uuid.UUID, req *model.UpdateRoomRequest) (*model.ClinicRoom, error) {
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Code != nil {
		room.Code = *req.Code
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	return room, nil
}

func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteRoom(ctx, id)
}

func (s *Service) CreateSchedule(ctx context.Context, req *model.CreateScheduleRequest) (*model.Schedule, error) {
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid doctor id", err)
	}

	doctor, err := s.userRepo.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Role != model.RoleDoctor {
		return nil, apperrors.BadRequest("user is not a doctor", nil)
	}

	exists, err := s.repo.ScheduleExists(ctx, doctorID, *req.DayOfWeek, model.Period(req.Period), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check schedule conflict: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("doctor already has a schedule for this slot", nil)
	}

	schedule := &model.Schedule{
		DoctorID:    doctorID,
		DayOfWeek:   *req.DayOfWeek,
		Period:      model.Period(req.Period),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxPatients: req.MaxPatients,
		IsActive:    true,
	}
	if req.RoomID != "" {
		roomID, err := uuid.Parse(req.RoomID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid room id", err)
		}
		schedule.RoomID = &roomID
	}

	if err := s.repo.CreateSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	return schedule, nil
}

func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	return s.repo.GetSchedule(ctx, id)
}

func (s *Service) ListSchedules(ctx context.Context, doctorID *uuid.UUID) ([]*model.Schedule, error) {
	return s.repo.ListSchedules(ctx, doctorID)
}

func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, req *model.UpdateScheduleRequest) (*model.Schedule, error) {
	schedule, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.RoomID != nil {
		if *req.RoomID == "" {
			schedule.RoomID = nil
		} else {
			roomID, err := uuid.Parse(*req.RoomID)
			if err != nil {
				return nil, apperrors.BadRequest("invalid room id", err)
			}
			schedule.RoomID = &roomID
		}
	}
	if req.StartTime != nil {
		schedule.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		schedule.EndTime = *req.EndTime
	}
	if req.MaxPatients != nil {
		schedule.MaxPatients = *req.MaxPatients
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}
	return schedule, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteSchedule(ctx, id)
}
