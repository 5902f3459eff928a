package billing

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

type Service struct {
	billRepo         repository.BillRepository
	paymentRepo      repository.PaymentRepository
	debtRepo         repository.DebtRepository
	chargeItemRepo   repository.ChargeItemRepository
	patientRepo      repository.PatientRepository
	regRepo          repository.RegistrationRepository
	prescriptionRepo repository.PrescriptionRepository
	seqRepo          repository.SequenceRepository
	emitter          event.Emitter
	auditor          *audit.Service
}

func NewService(billRepo repository.BillRepository, paymentRepo repository.PaymentRepository,
	debtRepo repository.DebtRepository, chargeItemRepo repository.ChargeItemRepository,
	patientRepo repository.PatientRepository, regRepo repository.RegistrationRepository,
	prescriptionRepo repository.PrescriptionRepository, seqRepo repository.SequenceRepository,
	emitter event.Emitter, auditor *audit.Service) *Service {
	return &Service{
		billRepo:         billRepo,
		paymentRepo:      paymentRepo,
		debtRepo:         debtRepo,
		chargeItemRepo:   chargeItemRepo,
		patientRepo:      patientRepo,
		regRepo:          regRepo,
		prescriptionRepo: prescriptionRepo,
		seqRepo:          seqRepo,
		emitter:          emitter,
		auditor:          auditor,
	}
}

func (s *Service) CreateChargeItem(ctx context.Context, req *model.CreateChargeItemRequest) (*model.ChargeItem, error) {
	if existing, err := s.chargeItemRepo.GetByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, apperrors.Conflict("charge item code already exists", nil)
	}

	item := &model.ChargeItem{
		Code:         req.Code,
		Name:         req.Name,
		ItemType:     model.ChargeItemType(req.ItemType),
		DefaultPrice: req.DefaultPrice,
		IsActive:     true,
	}
	if err := s.chargeItemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create charge item: %w", err)
	}
	return item, nil
}

func (s *Service) GetChargeItem(ctx context.Context, id uuid.UUID) (*model.ChargeItem, error) {
	return s.chargeItemRepo.GetByID(ctx, id)
}

func (s *Service) ListChargeItems(ctx context.Context, activeOnly bool) ([]*model.ChargeItem, error) {
	return s.chargeItemRepo.List(ctx, activeOnly)
}

func (s *Service) UpdateChargeItem(ctx context.Context, id uuid.UUID, req *model.UpdateChargeItemRequest) (*model.ChargeItem, error) {
	item, err := s.chargeItemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.DefaultPrice != nil {
		item.DefaultPrice = *req.DefaultPrice
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if err := s.chargeItemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update charge item: %w", err)
	}
	return item, nil
}

func (s *Service) DeleteChargeItem(ctx context.Context, id uuid.UUID) error {
	if _, err := s.chargeItemRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.chargeItemRepo.Delete(ctx, id)
}

func (s *Service) buildBillItems(inputs []model.BillItemInput) ([]*model.BillItem, float64, error) {
	items := make([]*model.BillItem, 0, len(inputs))
	var subtotal float64
	for _, in := range inputs {
		item := &model.BillItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Subtotal:    in.Quantity * in.UnitPrice,
		}
		if in.ChargeItemID != "" {
			id, err := uuid.Parse(in.ChargeItemID)
			if err != nil {
				return nil, 0, apperrors.BadRequest("invalid charge item id", err)
			}
			item.ChargeItemID = &id
		}
		if in.PrescriptionID != "" {
			id, err := uuid.Parse(in.PrescriptionID)
			if err != nil {
				return nil, 0, apperrors.BadRequest("invalid prescription id", err)
			}
			item.PrescriptionID = &id
		}
		items = append(items, item)
		subtotal += item.Subtotal
	}
	return items, subtotal, nil
}

func (s *Service) CreateBill(ctx context.Context, actorID *uuid.UUID, req *model.CreateBillRequest) (*model.Bill, error) {
	registrationID, err := uuid.Parse(req.RegistrationID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid registration id", err)
	}
	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	exists, err := s.billRepo.ExistsForRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to check bill existence: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict("bill already exists for this registration", nil)
	}

	items, subtotal, err := s.buildBillItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.Discount > subtotal {
		return nil, apperrors.BadRequest("discount exceeds subtotal", nil)
	}

	now := time.Now()
	total := subtotal - req.Discount
	bill := &model.Bill{
		RegistrationID: registrationID,
		PatientID:      reg.PatientID,
		BillDate:       now,
		Status:         model.BillStatusPending,
		Subtotal:       subtotal,
		Discount:       req.Discount,
		TotalAmount:    total,
		BalanceDue:     total,
		CreatedBy:      actorID,
	}

	err = s.billRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		seq, err := s.seqRepo.NextTx(ctx, tx, model.DateScope(model.SeqBill, now))
		if err != nil {
			return fmt.Errorf("failed to allocate bill number: %w", err)
		}
		bill.BillNumber = model.FormatDateNumber("B", now, seq)

		if err := s.billRepo.CreateTx(ctx, tx, bill, items); err != nil {
			return err
		}
		return s.emitter.EmitTx(ctx, tx, event.TypeBillCreated, map[string]interface{}{
			"bill_id":         bill.ID,
			"bill_number":     bill.BillNumber,
			"registration_id": bill.RegistrationID,
			"total_amount":    bill.TotalAmount,
		})
	})
	if err != nil {
		return nil, err
	}
	bill.Items = items

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, "bill", &bill.ID,
		&audit.LogOptions{After: bill})
	return bill, nil
}

func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	return s.billRepo.GetByID(ctx, id)
}

func (s *Service) GetBillByRegistration(ctx context.Context, registrationID uuid.UUID) (*model.Bill, error) {
	return s.billRepo.GetByRegistrationID(ctx, registrationID)
}

func (s *Service) ListBills(ctx context.Context, filter *model.BillFilter) ([]*model.Bill, int, error) {
	filter.Normalize()
	return s.billRepo.List(ctx, filter)
}

// UpdateBill rewrites discount and items while the bill is still
// pending. Totals and the outstanding balance are recomputed.
func (s *Service) UpdateBill(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.UpdateBillRequest) (*model.Bill, error) {
	bill, err := s.billRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.Status != model.BillStatusPending {
		return nil, apperrors.BadRequest("only pending bills can be changed", nil)
	}
	before := *bill

	var items []*model.BillItem
	if req.Items != nil {
		var subtotal float64
		items, subtotal, err = s.buildBillItems(req.Items)
		if err != nil {
			return nil, err
		}
		bill.Subtotal = subtotal
	}
	if req.Discount != nil {
		bill.Discount = *req.Discount
	}
	if bill.Discount > bill.Subtotal {
		return nil, apperrors.BadRequest("discount exceeds subtotal", nil)
	}
	bill.TotalAmount = bill.Subtotal - bill.Discount
	bill.BalanceDue = bill.TotalAmount - bill.PaidAmount

	err = s.billRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.billRepo.UpdateTx(ctx, tx, bill); err != nil {
			return err
		}
		if items != nil {
			if err := s.billRepo.ReplaceItemsTx(ctx, tx, bill.ID, items); err != nil {
				return err
			}
			bill.Items = items
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "bill", &bill.ID,
		&audit.LogOptions{Before: before, After: bill})
	return bill, nil
}

func (s *Service) CancelBill(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.Bill, error) {
	bill, err := s.billRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.Status == model.BillStatusPaid {
		return nil, apperrors.BadRequest("paid bills cannot be cancelled", nil)
	}

	bill.Status = model.BillStatusCancelled
	err = s.billRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.billRepo.UpdateTx(ctx, tx, bill)
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "bill", &bill.ID,
		&audit.LogOptions{After: bill})
	return bill, nil
}

// DailySummary aggregates one day's takings. A zero date means today.
func (s *Service) DailySummary(ctx context.Context, date time.Time) (*model.DailyBillingSummary, error) {
	if date.IsZero() {
		date = time.Now()
	}
	return s.billRepo.DailySummary(ctx, date)
}
