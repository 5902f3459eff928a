package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/event"
)

// PayBill records a payment and moves the bill through its states.
// Whatever balance remains afterwards is tracked as a debt.
func (s *Service) PayBill(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.PayBillRequest) (*model.Bill, error) {
	bill, err := s.billRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.Status == model.BillStatusCancelled {
		return nil, apperrors.BadRequest("cancelled bills cannot accept payment", nil)
	}
	if bill.Status == model.BillStatusPaid {
		return nil, apperrors.BadRequest("bill is already paid", nil)
	}

	method := model.PaymentMethod(req.PaymentMethod)
	now := time.Now()

	bill.PaidAmount += req.Amount
	bill.BalanceDue = bill.TotalAmount - bill.PaidAmount
	if bill.BalanceDue <= 0 {
		bill.Status = model.BillStatusPaid
		bill.PaidAt = &now
		bill.PaymentMethod = method
	} else if bill.PaidAmount > 0 {
		bill.Status = model.BillStatusPartial
	}

	err = s.billRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		payment := &model.Payment{
			BillID:          bill.ID,
			Amount:          req.Amount,
			PaymentMethod:   method,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
			CreatedBy:       actorID,
		}
		if err := s.paymentRepo.CreateTx(ctx, tx, payment); err != nil {
			return err
		}
		if err := s.billRepo.UpdateTx(ctx, tx, bill); err != nil {
			return err
		}

		if bill.BalanceDue > 0 {
			debt := &model.Debt{
				PatientID:       bill.PatientID,
				BillID:          bill.ID,
				OriginalAmount:  bill.BalanceDue,
				RemainingAmount: bill.BalanceDue,
				Status:          model.DebtStatusOutstanding,
			}
			if err := s.debtRepo.UpsertTx(ctx, tx, debt); err != nil {
				return err
			}
		}

		return s.emitter.EmitTx(ctx, tx, event.TypeBillPaid, map[string]interface{}{
			"bill_id":     bill.ID,
			"bill_number": bill.BillNumber,
			"amount":      req.Amount,
			"status":      bill.Status,
			"paid_amount": bill.PaidAmount,
			"balance_due": bill.BalanceDue,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, "pay", "bill", &bill.ID, nil)
	return bill, nil
}

// RefundBill reverses takings with a negative payment. Bills whose
// prescriptions were already dispensed cannot be refunded.
func (s *Service) RefundBill(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.RefundBillRequest) (*model.Bill, error) {
	bill, err := s.billRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.Status == model.BillStatusCancelled {
		return nil, apperrors.BadRequest("cancelled bills cannot be refunded", nil)
	}

	dispensed, err := s.prescriptionRepo.AnyDispensedForRegistration(ctx, bill.RegistrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to check dispensed prescriptions: %w", err)
	}
	if dispensed {
		return nil, apperrors.BadRequest("bill covers dispensed prescriptions and cannot be refunded", nil)
	}

	bill.PaidAmount -= req.Amount
	bill.BalanceDue = bill.TotalAmount - bill.PaidAmount
	if bill.PaidAmount <= 0 {
		bill.Status = model.BillStatusRefunded
	} else {
		bill.Status = model.BillStatusPartial
	}

	err = s.billRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		payment := &model.Payment{
			BillID:        bill.ID,
			Amount:        -req.Amount,
			PaymentMethod: model.PaymentMethodOther,
			Notes:         "Refund: " + req.Reason,
			CreatedBy:     actorID,
		}
		if err := s.paymentRepo.CreateTx(ctx, tx, payment); err != nil {
			return err
		}
		if err := s.billRepo.UpdateTx(ctx, tx, bill); err != nil {
			return err
		}
		if req.StoreToAccount {
			if err := s.patientRepo.AdjustBalanceTx(ctx, tx, bill.PatientID, req.Amount); err != nil {
				return err
			}
		}

		return s.emitter.EmitTx(ctx, tx, event.TypeBillRefunded, map[string]interface{}{
			"bill_id":          bill.ID,
			"bill_number":      bill.BillNumber,
			"amount":           req.Amount,
			"status":           bill.Status,
			"store_to_account": req.StoreToAccount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, "refund", "bill", &bill.ID, nil)
	return bill, nil
}

// CreditToAccount moves already-collected money onto the patient's
// account balance.
func (s *Service) CreditToAccount(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.CreditToAccountRequest) (*model.Bill, error) {
	bill, err := s.billRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Amount > bill.PaidAmount {
		return nil, apperrors.BadRequest("amount exceeds paid amount", nil)
	}

	bill.PaidAmount -= req.Amount
	bill.BalanceDue = bill.TotalAmount - bill.PaidAmount
	if bill.PaidAmount <= 0 {
		bill.Status = model.BillStatusPending
	} else if bill.BalanceDue > 0 {
		bill.Status = model.BillStatusPartial
	}

	err = s.billRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.patientRepo.AdjustBalanceTx(ctx, tx, bill.PatientID, req.Amount); err != nil {
			return err
		}

		notes := "Credited to patient account"
		if req.Notes != "" {
			notes = notes + ": " + req.Notes
		}
		payment := &model.Payment{
			BillID:        bill.ID,
			Amount:        -req.Amount,
			PaymentMethod: model.PaymentMethodOther,
			Notes:         notes,
			CreatedBy:     actorID,
		}
		if err := s.paymentRepo.CreateTx(ctx, tx, payment); err != nil {
			return err
		}
		return s.billRepo.UpdateTx(ctx, tx, bill)
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, "credit_to_account", "bill", &bill.ID, nil)
	return bill, nil
}

func (s *Service) ListPayments(ctx context.Context, filter *model.PaymentFilter) ([]*model.Payment, int, error) {
	filter.Normalize()
	return s.paymentRepo.List(ctx, filter)
}

func (s *Service) ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]*model.Payment, error) {
	if _, err := s.billRepo.GetByID(ctx, billID); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByBill(ctx, billID)
}

func (s *Service) GetDebt(ctx context.Context, id uuid.UUID) (*model.Debt, error) {
	return s.debtRepo.GetByID(ctx, id)
}

func (s *Service) ListDebts(ctx context.Context, status string, p *model.Pagination) ([]*model.Debt, int, error) {
	p.Normalize()
	return s.debtRepo.List(ctx, status, p)
}

// PayDebt settles part or all of a debt and mirrors the payment onto
// the underlying bill.
func (s *Service) PayDebt(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.PayDebtRequest) (*model.Debt, error) {
	debt, err := s.debtRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if debt.Status == model.DebtStatusCleared || debt.Status == model.DebtStatusWrittenOff {
		return nil, apperrors.BadRequest("debt is already settled", nil)
	}

	bill, err := s.billRepo.GetByID(ctx, debt.BillID)
	if err != nil {
		return nil, err
	}

	debt.RemainingAmount -= req.Amount
	if debt.RemainingAmount <= 0 {
		debt.RemainingAmount = 0
		debt.Status = model.DebtStatusCleared
	} else if debt.RemainingAmount < debt.OriginalAmount {
		debt.Status = model.DebtStatusPartial
	}

	now := time.Now()
	bill.PaidAmount += req.Amount
	bill.BalanceDue = bill.TotalAmount - bill.PaidAmount
	if bill.BalanceDue <= 0 {
		bill.Status = model.BillStatusPaid
		bill.PaidAt = &now
	}

	err = s.debtRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.debtRepo.UpdateTx(ctx, tx, debt); err != nil {
			return err
		}
		if err := s.billRepo.UpdateTx(ctx, tx, bill); err != nil {
			return err
		}

		notes := "Debt repayment"
		if req.Notes != "" {
			notes = notes + ": " + req.Notes
		}
		payment := &model.Payment{
			BillID:        bill.ID,
			Amount:        req.Amount,
			PaymentMethod: model.PaymentMethod(req.PaymentMethod),
			Notes:         notes,
			CreatedBy:     actorID,
		}
		if err := s.paymentRepo.CreateTx(ctx, tx, payment); err != nil {
			return err
		}

		return s.emitter.EmitTx(ctx, tx, event.TypeBillPaid, map[string]interface{}{
			"bill_id":     bill.ID,
			"bill_number": bill.BillNumber,
			"amount":      req.Amount,
			"status":      bill.Status,
			"debt_id":     debt.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, "pay", "debt", &debt.ID, nil)
	return debt, nil
}

// DebtsByPatient returns the patient's open debts with their total.
func (s *Service) DebtsByPatient(ctx context.Context, patientID uuid.UUID) (*model.PatientDebtSummary, error) {
	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	debts, err := s.debtRepo.ListOpenByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}

	summary := &model.PatientDebtSummary{PatientID: patientID, Debts: debts}
	for _, d := range debts {
		summary.Total += d.RemainingAmount
	}
	return summary, nil
}
