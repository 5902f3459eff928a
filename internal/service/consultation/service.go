package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

// byPatientLimit caps the consultation history returned per patient.
const byPatientLimit = 20

type Service struct {
	repo     repository.ConsultationRepository
	regRepo  repository.RegistrationRepository
	certRepo repository.CertificateRepository
	seqRepo  repository.SequenceRepository
	auditor  *audit.Service
}

func NewService(repo repository.ConsultationRepository, regRepo repository.RegistrationRepository,
	certRepo repository.CertificateRepository, seqRepo repository.SequenceRepository,
	auditor *audit.Service) *Service {
	return &Service{repo: repo, regRepo: regRepo, certRepo: certRepo, seqRepo: seqRepo, auditor: auditor}
}

// CreateConsultation records the medical record for a registration. The
// acting user becomes the consulting doctor.
func (s *Service) CreateConsultation(ctx context.Context, doctorID uuid.UUID, req *model.CreateConsultationRequest) (*model.Consultation, error) {
	registrationID, err := uuid.Parse(req.RegistrationID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid registration id", err)
	}
	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.Status == model.RegistrationStatusCancelled || reg.Status == model.RegistrationStatusNoShow {
		return nil, apperrors.BadRequest("registration is closed", nil)
	}

	exists, err := s.repo.ExistsForRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to check consultation existence: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("consultation already exists for this registration", nil)
	}

	c := &model.Consultation{
		RegistrationID:          registrationID,
		DoctorID:                doctorID,
		ChiefComplaint:          req.ChiefComplaint,
		PresentIllness:          req.PresentIllness,
		PastHistory:             req.PastHistory,
		Inspection:              req.Inspection,
		TongueAppearance:        req.TongueAppearance,
		ListeningSmelling:       req.ListeningSmelling,
		Inquiry:                 req.Inquiry,
		Pulse:                   req.Pulse,
		Palpation:               req.Palpation,
		TCMDiagnosis:            req.TCMDiagnosis,
		WesternDiagnosis:        req.WesternDiagnosis,
		SyndromeDifferentiation: req.SyndromeDifferentiation,
		TreatmentPrinciple:      req.TreatmentPrinciple,
		Advice:                  req.Advice,
		Notes:                   req.Notes,
	}
	if req.FollowUpDate != "" {
		followUp, err := time.Parse(model.DateOnly, req.FollowUpDate)
		if err != nil {
			return nil, apperrors.BadRequest("invalid follow up date", err)
		}
		c.FollowUpDate = &followUp
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create consultation: %w", err)
	}

	s.auditor.Log(ctx, &doctorID, model.AuditActionCreate, "consultation", &c.ID,
		&audit.LogOptions{After: c})
	return c, nil
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*model.Consultation, error) {
	return s.repo.GetByRegistrationID(ctx, registrationID)
}

func (s *Service) ListConsultations(ctx context.Context, p *model.Pagination) ([]*model.Consultation, int, error) {
	p.Normalize()
	return s.repo.List(ctx, p)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Consultation, error) {
	return s.repo.ListByPatient(ctx, patientID, byPatientLimit)
}

func (s *Service) UpdateConsultation(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.UpdateConsultationRequest) (*model.Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *c

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&c.ChiefComplaint, req.ChiefComplaint)
	apply(&c.PresentIllness, req.PresentIllness)
	apply(&c.PastHistory, req.PastHistory)
	apply(&c.Inspection, req.Inspection)
	apply(&c.TongueAppearance, req.TongueAppearance)
	apply(&c.ListeningSmelling, req.ListeningSmelling)
	apply(&c.Inquiry, req.Inquiry)
	apply(&c.Pulse, req.Pulse)
	apply(&c.Palpation, req.Palpation)
	apply(&c.TCMDiagnosis, req.TCMDiagnosis)
	apply(&c.WesternDiagnosis, req.WesternDiagnosis)
	apply(&c.SyndromeDifferentiation, req.SyndromeDifferentiation)
	apply(&c.TreatmentPrinciple, req.TreatmentPrinciple)
	apply(&c.Advice, req.Advice)
	apply(&c.Notes, req.Notes)
	if req.FollowUpDate != nil {
		if *req.FollowUpDate == "" {
			c.FollowUpDate = nil
		} else {
			followUp, err := time.Parse(model.DateOnly, *req.FollowUpDate)
			if err != nil {
				return nil, apperrors.BadRequest("invalid follow up date", err)
			}
			c.FollowUpDate = &followUp
		}
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update consultation: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "consultation", &c.ID,
		&audit.LogOptions{Before: before, After: c})
	return c, nil
}

func (s *Service) DeleteConsultation(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete consultation: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionDelete, "consultation", &id,
		&audit.LogOptions{Before: c})
	return nil
}

// CopyFromPrevious fills the four-examination fields from the patient's
// most recent earlier consultation.
func (s *Service) CopyFromPrevious(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patientID := c.PatientID
	if patientID == nil {
		reg, err := s.regRepo.GetByID(ctx, c.RegistrationID)
		if err != nil {
			return nil, err
		}
		patientID = &reg.PatientID
	}

	previous, err := s.repo.GetPreviousForPatient(ctx, *patientID, c.CreatedAt, c.ID)
	if err != nil {
		return nil, err
	}

	c.ChiefComplaint = previous.ChiefComplaint
	c.PresentIllness = previous.PresentIllness
	c.Inspection = previous.Inspection
	c.TongueAppearance = previous.TongueAppearance
	c.Pulse = previous.Pulse
	c.TCMDiagnosis = previous.TCMDiagnosis
	c.SyndromeDifferentiation = previous.SyndromeDifferentiation
	c.TreatmentPrinciple = previous.TreatmentPrinciple

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update consultation: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "consultation", &c.ID,
		&audit.LogOptions{After: c})
	return c, nil
}

func (s *Service) CreateTerm(ctx context.Context, req *model.CreateDiagnosticTermRequest) (*model.DiagnosticTerm, error) {
	term := &model.DiagnosticTerm{
		Category:    model.TermCategory(req.Category),
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.repo.CreateTerm(ctx, term); err != nil {
		return nil, fmt.Errorf("failed to create diagnostic term: %w", err)
	}
	return term, nil
}

func (s *Service) GetTerm(ctx context.Context, id uuid.UUID) (*model.DiagnosticTerm, error) {
	return s.repo.GetTerm(ctx, id)
}

// ListTerms returns active terms, optionally for one category.
func (s *Service) ListTerms(ctx context.Context, category string) ([]*model.DiagnosticTerm, error) {
	return s.repo.ListTerms(ctx, category)
}

// TermsByCategory groups all active terms for pick-list rendering.
func (s *Service) TermsByCategory(ctx context.Context) (map[string][]*model.DiagnosticTerm, error) {
	terms, err := s.repo.ListTerms(ctx, "")
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]*model.DiagnosticTerm)
	for _, t := range terms {
		grouped[string(t.Category)] = append(grouped[string(t.Category)], t)
	}
	return grouped, nil
}

func (s *Service) UpdateTerm(ctx context.Context, id uuid.UUID, req *model.UpdateDiagnosticTermRequest) (*model.DiagnosticTerm, error) {
	term, err := s.repo.GetTerm(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		term.Name = *req.Name
	}
	if req.Description != nil {
		term.Description = *req.Description
	}
	if req.IsActive != nil {
		term.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateTerm(ctx, term); err != nil {
		return nil, fmt.Errorf("failed to update diagnostic term: %w", err)
	}
	return term, nil
}

func (s *Service) DeleteTerm(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTerm(ctx, id)
}
