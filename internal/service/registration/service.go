package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/event"
)

// DefaultConsultationFee applies when no consultation charge item is
// configured.
const DefaultConsultationFee = 300.0

// consultationFeeCode is the charge item looked up for the
// end-of-consultation bill.
const consultationFeeCode = "CONSULT"

type Service struct {
	repo             repository.RegistrationRepository
	patientRepo      repository.PatientRepository
	billRepo         repository.BillRepository
	prescriptionRepo repository.PrescriptionRepository
	chargeItemRepo   repository.ChargeItemRepository
	seqRepo          repository.SequenceRepository
	emitter          event.Emitter
	auditor          *audit.Service
}

func NewService(repo repository.RegistrationRepository, patientRepo repository.PatientRepository,
	billRepo repository.BillRepository, prescriptionRepo repository.PrescriptionRepository,
	chargeItemRepo repository.ChargeItemRepository, seqRepo repository.SequenceRepository,
	emitter event.Emitter, auditor *audit.Service) *Service {
	return &Service{
		repo:             repo,
		patientRepo:      patientRepo,
		billRepo:         billRepo,
		prescriptionRepo: prescriptionRepo,
		chargeItemRepo:   chargeItemRepo,
		seqRepo:          seqRepo,
		emitter:          emitter,
		auditor:          auditor,
	}
}

func (s *Service) CreateAppointment(ctx context.Context, actorID *uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid patient id", err)
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid doctor id", err)
	}
	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	date, err := time.Parse(model.DateOnly, req.AppointmentDate)
	if err != nil {
		return nil, apperrors.BadRequest("invalid appointment date", err)
	}

	appt := &model.Appointment{
		PatientID:       patientID,
		DoctorID:        doctorID,
		AppointmentDate: date,
		AppointmentTime: req.AppointmentTime,
		Status:          model.AppointmentStatusPending,
		Notes:           req.Notes,
		CreatedBy:       actorID,
	}
	if req.RoomID != "" {
		roomID, err := uuid.Parse(req.RoomID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid room id", err)
		}
		appt.RoomID = &roomID
	}

	if err := s.repo.CreateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, int, error) {
	filter.Normalize()
	return s.repo.ListAppointments(ctx, filter)
}

func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == model.AppointmentStatusCancelled || appt.Status == model.AppointmentStatusCompleted {
		return nil, apperrors.BadRequest("appointment can no longer be changed", nil)
	}

	if req.DoctorID != nil {
		doctorID, err := uuid.Parse(*req.DoctorID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid doctor id", err)
		}
		appt.DoctorID = doctorID
	}
	if req.RoomID != nil {
		if *req.RoomID == "" {
			appt.RoomID = nil
		} else {
			roomID, err := uuid.Parse(*req.RoomID)
			if err != nil {
				return nil, apperrors.BadRequest("invalid room id", err)
			}
			appt.RoomID = &roomID
		}
	}
	if req.AppointmentDate != nil {
		date, err := time.Parse(model.DateOnly, *req.AppointmentDate)
		if err != nil {
			return nil, apperrors.BadRequest("invalid appointment date", err)
		}
		appt.AppointmentDate = date
	}
	if req.AppointmentTime != nil {
		appt.AppointmentTime = *req.AppointmentTime
	}
	if req.Notes != nil {
		appt.Notes = *req.Notes
	}

	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) ConfirmAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != model.AppointmentStatusPending {
		return nil, apperrors.BadRequest("only pending appointments can be confirmed", nil)
	}
	appt.Status = model.AppointmentStatusConfirmed
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to confirm appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == model.AppointmentStatusCompleted {
		return nil, apperrors.BadRequest("completed appointments cannot be cancelled", nil)
	}
	appt.Status = model.AppointmentStatusCancelled
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	return appt, nil
}

// ConvertAppointment turns a confirmed appointment into a registration
// when the patient arrives.
func (s *Service) ConvertAppointment(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, fee float64) (*model.Registration, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == model.AppointmentStatusCancelled {
		return nil, apperrors.BadRequest("cancelled appointments cannot be converted", nil)
	}
	converted, err := s.repo.AppointmentConverted(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check appointment conversion: %w", err)
	}
	if converted {
		return nil, apperrors.BadRequest("appointment already converted", nil)
	}

	reg, err := s.createRegistration(ctx, actorID, appt.PatientID, appt.DoctorID, appt.RoomID, &appt.ID, fee, appt.Notes)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Service) CreateRegistration(ctx context.Context, actorID *uuid.UUID, req *model.CreateRegistrationRequest) (*model.Registration, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid patient id", err)
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid doctor id", err)
	}
	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	var roomID *uuid.UUID
	if req.RoomID != "" {
		id, err := uuid.Parse(req.RoomID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid room id", err)
		}
		roomID = &id
	}

	return s.createRegistration(ctx, actorID, patientID, doctorID, roomID, nil, req.RegistrationFee, req.Notes)
}

// createRegistration allocates numbers, derives the visit type and
// writes the row with its creation event in one transaction.
func (s *Service) createRegistration(ctx context.Context, actorID *uuid.UUID, patientID, doctorID uuid.UUID,
	roomID, appointmentID *uuid.UUID, fee float64, notes string) (*model.Registration, error) {
	hasCompleted, err := s.repo.HasCompletedVisit(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to determine visit type: %w", err)
	}
	visitType := model.VisitTypeFirst
	if hasCompleted {
		visitType = model.VisitTypeFollowUp
	}

	now := time.Now()
	reg := &model.Registration{
		PatientID:        patientID,
		DoctorID:         doctorID,
		RoomID:           roomID,
		AppointmentID:    appointmentID,
		VisitType:        visitType,
		Status:           model.RegistrationStatusWaiting,
		RegistrationDate: now,
		RegistrationTime: now.Format(model.TimeOnly),
		RegistrationFee:  fee,
		Notes:            notes,
		CreatedBy:        actorID,
	}

	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		seq, err := s.seqRepo.NextTx(ctx, tx, model.DateScope(model.SeqRegistration, now))
		if err != nil {
			return fmt.Errorf("failed to allocate registration number: %w", err)
		}
		reg.RegistrationNumber = model.FormatDateNumber("", now, seq)

		queueSeq, err := s.seqRepo.NextTx(ctx, tx, model.QueueScope(doctorID, now))
		if err != nil {
			return fmt.Errorf("failed to allocate queue number: %w", err)
		}
		reg.QueueNumber = int(queueSeq)

		if err := s.repo.CreateTx(ctx, tx, reg); err != nil {
			return err
		}

		if appointmentID != nil {
			if err := s.repo.UpdateAppointmentStatusTx(ctx, tx, *appointmentID, model.AppointmentStatusCompleted); err != nil {
				return fmt.Errorf("failed to complete appointment: %w", err)
			}
		}

		return s.emitter.EmitTx(ctx, tx, event.TypeRegistrationCreated, map[string]interface{}{
			"registration_id":     reg.ID,
			"registration_number": reg.RegistrationNumber,
			"patient_id":          reg.PatientID,
			"doctor_id":           reg.DoctorID,
			"queue_number":        reg.QueueNumber,
			"visit_type":          reg.VisitType,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, "registration", &reg.ID,
		&audit.LogOptions{After: reg})
	return reg, nil
}

func (s *Service) GetRegistration(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListRegistrations(ctx context.Context, filter *model.RegistrationFilter) ([]*model.Registration, int, error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

func (s *Service) UpdateRegistration(ctx context.Context, id uuid.UUID, req *model.UpdateRegistrationRequest) (*model.Registration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationStatusWaiting {
		return nil, apperrors.BadRequest("only waiting registrations can be changed", nil)
	}

	if req.DoctorID != nil {
		doctorID, err := uuid.Parse(*req.DoctorID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid doctor id", err)
		}
		reg.DoctorID = doctorID
	}
	if req.RoomID != nil {
		if *req.RoomID == "" {
			reg.RoomID = nil
		} else {
			roomID, err := uuid.Parse(*req.RoomID)
			if err != nil {
				return nil, apperrors.BadRequest("invalid room id", err)
			}
			reg.RoomID = &roomID
		}
	}
	if req.Notes != nil {
		reg.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to update registration: %w", err)
	}
	return reg, nil
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationStatusWaiting {
		return nil, apperrors.BadRequest("only waiting registrations can check in", nil)
	}

	now := time.Now()
	reg.CheckInAt = &now
	if err := s.repo.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to check in: %w", err)
	}
	return reg, nil
}

func (s *Service) StartConsultation(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationStatusWaiting {
		return nil, apperrors.BadRequest("only waiting registrations can start consultation", nil)
	}

	now := time.Now()
	reg.Status = model.RegistrationStatusInConsultation
	reg.ConsultationStart = &now
	if err := s.repo.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to start consultation: %w", err)
	}
	return reg, nil
}

// EndConsultation completes the visit. When no bill exists yet one is
// created from the consultation fee plus each prescription's medicine
// fee.
func (s *Service) EndConsultation(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.Registration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationStatusInConsultation {
		return nil, apperrors.BadRequest("consultation is not in progress", nil)
	}

	billExists, err := s.billRepo.ExistsForRegistration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check bill existence: %w", err)
	}

	var bill *model.Bill
	var items []*model.BillItem
	if !billExists {
		bill, items, err = s.buildAutoBill(ctx, reg, actorID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	reg.Status = model.RegistrationStatusCompleted
	reg.ConsultationEnd = &now

	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.UpdateTx(ctx, tx, reg); err != nil {
			return err
		}

		if bill != nil {
			seq, err := s.seqRepo.NextTx(ctx, tx, model.DateScope(model.SeqBill, now))
			if err != nil {
				return fmt.Errorf("failed to allocate bill number: %w", err)
			}
			bill.BillNumber = model.FormatDateNumber("B", now, seq)

			if err := s.billRepo.CreateTx(ctx, tx, bill, items); err != nil {
				return err
			}
			if err := s.emitter.EmitTx(ctx, tx, event.TypeBillCreated, map[string]interface{}{
				"bill_id":         bill.ID,
				"bill_number":     bill.BillNumber,
				"registration_id": reg.ID,
				"total_amount":    bill.TotalAmount,
			}); err != nil {
				return err
			}
		}

		return s.emitter.EmitTx(ctx, tx, event.TypeRegistrationCompleted, map[string]interface{}{
			"registration_id":     reg.ID,
			"registration_number": reg.RegistrationNumber,
			"patient_id":          reg.PatientID,
			"doctor_id":           reg.DoctorID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "registration", &reg.ID,
		&audit.LogOptions{After: reg})
	return reg, nil
}

func (s *Service) buildAutoBill(ctx context.Context, reg *model.Registration, actorID *uuid.UUID) (*model.Bill, []*model.BillItem, error) {
	consultFee := DefaultConsultationFee
	var chargeItemID *uuid.UUID
	if item, err := s.chargeItemRepo.GetByCode(ctx, consultationFeeCode); err == nil {
		consultFee = item.DefaultPrice
		chargeItemID = &item.ID
	}

	items := []*model.BillItem{{
		ChargeItemID: chargeItemID,
		Description:  "Consultation fee",
		Quantity:     1,
		UnitPrice:    consultFee,
		Subtotal:     consultFee,
	}}

	prescriptions, err := s.prescriptionRepo.ListByRegistration(ctx, reg.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load prescriptions: %w", err)
	}
	for _, p := range prescriptions {
		if p.MedicineFee <= 0 {
			continue
		}
		items = append(items, &model.BillItem{
			PrescriptionID: &p.ID,
			Description:    "Medicine fee",
			Quantity:       1,
			UnitPrice:      p.MedicineFee,
			Subtotal:       p.MedicineFee,
		})
	}

	var subtotal float64
	for _, item := range items {
		subtotal += item.Subtotal
	}

	bill := &model.Bill{
		RegistrationID: reg.ID,
		PatientID:      reg.PatientID,
		BillDate:       time.Now(),
		Status:         model.BillStatusPending,
		Subtotal:       subtotal,
		TotalAmount:    subtotal,
		BalanceDue:     subtotal,
		CreatedBy:      actorID,
	}
	return bill, items, nil
}

func (s *Service) CancelRegistration(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.Registration, error) {
	return s.closeRegistration(ctx, actorID, id, model.RegistrationStatusCancelled)
}

func (s *Service) MarkNoShow(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.Registration, error) {
	return s.closeRegistration(ctx, actorID, id, model.RegistrationStatusNoShow)
}

func (s *Service) closeRegistration(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, status model.RegistrationStatus) (*model.Registration, error) {
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.Status != model.RegistrationStatusWaiting {
		return nil, apperrors.BadRequest("only waiting registrations can be closed", nil)
	}

	reg.Status = status
	if err := s.repo.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to close registration: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "registration", &reg.ID,
		&audit.LogOptions{After: reg})
	return reg, nil
}

// Queue returns today's registrations grouped by stage.
func (s *Service) Queue(ctx context.Context, doctorID, roomID *uuid.UUID) (*model.QueueSnapshot, error) {
	today := time.Now()
	regs, err := s.repo.ListQueue(ctx, today, doctorID, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}

	snapshot := &model.QueueSnapshot{
		Date:           today.Format(model.DateOnly),
		Waiting:        []*model.Registration{},
		InConsultation: []*model.Registration{},
		Completed:      []*model.Registration{},
	}
	for _, reg := range regs {
		switch reg.Status {
		case model.RegistrationStatusWaiting:
			snapshot.Waiting = append(snapshot.Waiting, reg)
		case model.RegistrationStatusInConsultation:
			snapshot.InConsultation = append(snapshot.InConsultation, reg)
		case model.RegistrationStatusCompleted:
			snapshot.Completed = append(snapshot.Completed, reg)
		}
	}
	snapshot.Summary = model.QueueSummary{
		Waiting:        len(snapshot.Waiting),
		InConsultation: len(snapshot.InConsultation),
		Completed:      len(snapshot.Completed),
		Total:          len(regs),
	}
	return snapshot, nil
}

// ListByPatient returns the patient's most recent registrations.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Registration, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit)
}
