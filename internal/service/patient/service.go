package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/event"
)

const (
	searchMinQueryLen = 2
	searchLimit       = 10
)

type Service struct {
	repo    repository.PatientRepository
	seqRepo repository.SequenceRepository
	emitter event.Emitter
	auditor *audit.Service
}

func NewService(repo repository.PatientRepository, seqRepo repository.SequenceRepository,
	emitter event.Emitter, auditor *audit.Service) *Service {
	return &Service{repo: repo, seqRepo: seqRepo, emitter: emitter, auditor: auditor}
}

// MaskIDCard keeps the first four and last three characters. Short
// values are returned unchanged.
func MaskIDCard(v string) string {
	if len(v) <= 6 {
		return v
	}
	return v[:4] + "***" + v[len(v)-3:]
}

// MaskPhone keeps the first four characters.
func MaskPhone(v string) string {
	if len(v) <= 4 {
		return v
	}
	return v[:4] + "****"
}

func maskPatient(p *model.Patient) {
	p.IDCardNumber = MaskIDCard(p.IDCardNumber)
	p.Phone = MaskPhone(p.Phone)
	p.Mobile = MaskPhone(p.Mobile)
}

func (s *Service) CreatePatient(ctx context.Context, actorID *uuid.UUID, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		Name:                     req.Name,
		Gender:                   model.Gender(req.Gender),
		IDCardNumber:             req.IDCardNumber,
		Phone:                    req.Phone,
		Mobile:                   req.Mobile,
		Address:                  req.Address,
		Email:                    req.Email,
		EmergencyContactName:     req.EmergencyContactName,
		EmergencyContactPhone:    req.EmergencyContactPhone,
		EmergencyContactRelation: req.EmergencyContactRelation,
		BloodType:                req.BloodType,
		Allergies:                req.Allergies,
		MedicalHistory:           req.MedicalHistory,
		Notes:                    req.Notes,
		IsActive:                 true,
		CreatedBy:                actorID,
	}
	if req.BirthDate != "" {
		birthDate, err := time.Parse(model.DateOnly, req.BirthDate)
		if err != nil {
			return nil, apperrors.BadRequest("invalid birth date", err)
		}
		patient.BirthDate = &birthDate
	}

	err := s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		seq, err := s.seqRepo.NextTx(ctx, tx, model.SeqChart)
		if err != nil {
			return fmt.Errorf("failed to allocate chart number: %w", err)
		}
		patient.ChartNumber = model.FormatChartNumber(seq)

		if err := s.repo.CreateTx(ctx, tx, patient); err != nil {
			return err
		}
		return s.emitter.EmitTx(ctx, tx, event.TypePatientCreated, map[string]interface{}{
			"patient_id":   patient.ID,
			"chart_number": patient.ChartNumber,
			"name":         patient.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, "patient", &patient.ID,
		&audit.LogOptions{After: patient})
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID, mask bool) (*model.Patient, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mask {
		maskPatient(patient)
	}
	return patient, nil
}

func (s *Service) ListPatients(ctx context.Context, filter *model.PatientFilter, mask bool) ([]*model.Patient, int, error) {
	filter.Normalize()
	patients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if mask {
		for _, p := range patients {
			maskPatient(p)
		}
	}
	return patients, total, nil
}

func (s *Service) UpdatePatient(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *patient

	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Gender != nil {
		patient.Gender = model.Gender(*req.Gender)
	}
	if req.BirthDate != nil {
		if *req.BirthDate == "" {
			patient.BirthDate = nil
		} else {
			birthDate, err := time.Parse(model.DateOnly, *req.BirthDate)
			if err != nil {
				return nil, apperrors.BadRequest("invalid birth date", err)
			}
			patient.BirthDate = &birthDate
		}
	}
	if req.IDCardNumber != nil {
		patient.IDCardNumber = *req.IDCardNumber
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Mobile != nil {
		patient.Mobile = *req.Mobile
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.EmergencyContactName != nil {
		patient.EmergencyContactName = *req.EmergencyContactName
	}
	if req.EmergencyContactPhone != nil {
		patient.EmergencyContactPhone = *req.EmergencyContactPhone
	}
	if req.EmergencyContactRelation != nil {
		patient.EmergencyContactRelation = *req.EmergencyContactRelation
	}
	if req.BloodType != nil {
		patient.BloodType = *req.BloodType
	}
	if req.Allergies != nil {
		patient.Allergies = *req.Allergies
	}
	if req.MedicalHistory != nil {
		patient.MedicalHistory = *req.MedicalHistory
	}
	if req.Notes != nil {
		patient.Notes = *req.Notes
	}
	if req.IsActive != nil {
		patient.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "patient", &patient.ID,
		&audit.LogOptions{Before: before, After: patient})
	return patient, nil
}

func (s *Service) DeactivatePatient(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate patient: %w", err)
	}
	s.auditor.Log(ctx, actorID, model.AuditActionDelete, "patient", &id, nil)
	return nil
}

// SearchPatients matches name, chart number, phone or mobile. Queries
// under two characters return nothing.
func (s *Service) SearchPatients(ctx context.Context, query string, mask bool) ([]*model.Patient, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < searchMinQueryLen {
		return []*model.Patient{}, nil
	}
	patients, err := s.repo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	if mask {
		for _, p := range patients {
			maskPatient(p)
		}
	}
	return patients, nil
}

func (s *Service) AddImage(ctx context.Context, actorID *uuid.UUID, patientID uuid.UUID, req *model.CreatePatientImageRequest) (*model.PatientImage, error) {
	if _, err := s.repo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	image := &model.PatientImage{
		PatientID:   patientID,
		ImageType:   model.ImageType(req.ImageType),
		FilePath:    req.FilePath,
		Description: req.Description,
		CreatedBy:   actorID,
	}
	if req.TakenAt != "" {
		takenAt, err := time.Parse(time.RFC3339, req.TakenAt)
		if err != nil {
			return nil, apperrors.BadRequest("invalid taken_at timestamp", err)
		}
		image.TakenAt = &takenAt
	}

	if err := s.repo.CreateImage(ctx, image); err != nil {
		return nil, fmt.Errorf("failed to store patient image: %w", err)
	}
	return image, nil
}

func (s *Service) ListImages(ctx context.Context, patientID uuid.UUID) ([]*model.PatientImage, error) {
	if _, err := s.repo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListImages(ctx, patientID)
}
