package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/event"
)

func (s *Service) buildPurchaseItems(ctx context.Context, inputs []model.PurchaseOrderItemInput) ([]*model.PurchaseOrderItem, float64, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, input := range inputs {
		id, err := uuid.Parse(input.MedicineID)
		if err != nil {
			return nil, 0, apperrors.BadRequest("invalid medicine id", err)
		}
		ids = append(ids, id)
	}

	medicines, err := s.medicineRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load medicines: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Medicine, len(medicines))
	for _, m := range medicines {
		byID[m.ID] = m
	}

	items := make([]*model.PurchaseOrderItem, 0, len(inputs))
	var total float64
	for i, input := range inputs {
		medicine, ok := byID[ids[i]]
		if !ok {
			return nil, 0, apperrors.BadRequest(fmt.Sprintf("medicine %s not found", input.MedicineID), nil)
		}
		item := &model.PurchaseOrderItem{
			MedicineID:   medicine.ID,
			Quantity:     input.Quantity,
			UnitPrice:    input.UnitPrice,
			Subtotal:     input.Quantity * input.UnitPrice,
			MedicineCode: medicine.Code,
			MedicineName: medicine.Name,
		}
		items = append(items, item)
		total += item.Subtotal
	}
	return items, total, nil
}

func (s *Service) CreatePurchaseOrder(ctx context.Context, actorID *uuid.UUID, req *model.CreatePurchaseOrderRequest) (*model.PurchaseOrder, error) {
	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid supplier id", err)
	}
	if _, err := s.supplierRepo.GetByID(ctx, supplierID); err != nil {
		return nil, err
	}

	items, total, err := s.buildPurchaseItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &model.PurchaseOrder{
		SupplierID:  supplierID,
		Status:      model.PurchaseOrderDraft,
		OrderDate:   now,
		TotalAmount: total,
		Notes:       req.Notes,
		CreatedBy:   actorID,
	}
	if req.ExpectedDate != "" {
		expected, err := time.Parse(model.DateOnly, req.ExpectedDate)
		if err != nil {
			return nil, apperrors.BadRequest("invalid expected date", err)
		}
		order.ExpectedDate = &expected
	}

	err = s.purchaseRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		seq, err := s.seqRepo.NextTx(ctx, tx, model.DateScope(model.SeqPurchase, now))
		if err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}
		order.OrderNumber = model.FormatDateNumber("PO", now, seq)
		return s.purchaseRepo.CreateTx(ctx, tx, order, items)
	})
	if err != nil {
		return nil, err
	}
	order.Items = items

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, "purchase_order", &order.ID,
		&audit.LogOptions{After: order})
	return order, nil
}

func (s *Service) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	return s.purchaseRepo.GetByID(ctx, id)
}

func (s *Service) ListPurchaseOrders(ctx context.Context, status string, p *model.Pagination) ([]*model.PurchaseOrder, int, error) {
	p.Normalize()
	return s.purchaseRepo.List(ctx, status, p)
}

func (s *Service) UpdatePurchaseOrder(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.UpdatePurchaseOrderRequest) (*model.PurchaseOrder, error) {
	order, err := s.purchaseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.PurchaseOrderDraft {
		return nil, apperrors.BadRequest("only draft orders can be changed", nil)
	}

	if req.ExpectedDate != nil {
		if *req.ExpectedDate == "" {
			order.ExpectedDate = nil
		} else {
			expected, err := time.Parse(model.DateOnly, *req.ExpectedDate)
			if err != nil {
				return nil, apperrors.BadRequest("invalid expected date", err)
			}
			order.ExpectedDate = &expected
		}
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	var items []*model.PurchaseOrderItem
	if req.Items != nil {
		var total float64
		items, total, err = s.buildPurchaseItems(ctx, req.Items)
		if err != nil {
			return nil, err
		}
		order.TotalAmount = total
	}

	err = s.purchaseRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.purchaseRepo.UpdateTx(ctx, tx, order); err != nil {
			return err
		}
		if items == nil {
			return nil
		}
		return s.purchaseRepo.ReplaceItemsTx(ctx, tx, order.ID, items)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update purchase order: %w", err)
	}

	return s.purchaseRepo.GetByID(ctx, id)
}

func (s *Service) SubmitPurchaseOrder(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.PurchaseOrder, error) {
	order, err := s.purchaseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.PurchaseOrderDraft {
		return nil, apperrors.BadRequest("only draft orders can be submitted", nil)
	}

	order.Status = model.PurchaseOrderSubmitted
	err = s.purchaseRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.purchaseRepo.UpdateTx(ctx, tx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit purchase order: %w", err)
	}

	s.auditor.Log(ctx, actorID, "submit", "purchase_order", &order.ID, nil)
	return order, nil
}

// ReceivePurchaseOrder books every ordered quantity into stock and
// closes the order. Partial deliveries are not modelled; the received
// quantity always equals the ordered one.
func (s *Service) ReceivePurchaseOrder(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.PurchaseOrder, error) {
	order, err := s.purchaseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.PurchaseOrderSubmitted {
		return nil, apperrors.BadRequest("only submitted orders can be received", nil)
	}

	now := time.Now()
	order.Status = model.PurchaseOrderReceived
	order.ReceivedDate = &now

	err = s.purchaseRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, item := range order.Items {
			level, err := s.stockRepo.EnsureLevelTx(ctx, tx, item.MedicineID)
			if err != nil {
				return err
			}
			after := level.Quantity + item.Quantity
			if err := s.stockRepo.SetLevelTx(ctx, tx, item.MedicineID, after); err != nil {
				return err
			}
			unitCost := item.UnitPrice
			txn := &model.StockTransaction{
				MedicineID:      item.MedicineID,
				TransactionType: model.StockTxnPurchase,
				Quantity:        item.Quantity,
				BeforeQuantity:  level.Quantity,
				AfterQuantity:   after,
				UnitCost:        &unitCost,
				ReferenceNumber: order.OrderNumber,
				CreatedBy:       actorID,
			}
			if err := s.stockRepo.CreateTransactionTx(ctx, tx, txn); err != nil {
				return err
			}
			if err := s.purchaseRepo.SetItemReceivedTx(ctx, tx, item.ID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.purchaseRepo.UpdateTx(ctx, tx, order); err != nil {
			return err
		}
		return s.emitter.EmitTx(ctx, tx, event.TypePurchaseReceived, map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"supplier_id":  order.SupplierID,
			"total_amount": order.TotalAmount,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive purchase order: %w", err)
	}

	s.auditor.Log(ctx, actorID, "receive", "purchase_order", &order.ID, nil)
	return order, nil
}

func (s *Service) CancelPurchaseOrder(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.PurchaseOrder, error) {
	order, err := s.purchaseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == model.PurchaseOrderReceived {
		return nil, apperrors.BadRequest("received orders cannot be cancelled", nil)
	}

	order.Status = model.PurchaseOrderCancelled
	err = s.purchaseRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.purchaseRepo.UpdateTx(ctx, tx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel purchase order: %w", err)
	}

	s.auditor.Log(ctx, actorID, "cancel", "purchase_order", &order.ID, nil)
	return order, nil
}

func (s *Service) CreateCompoundFormula(ctx context.Context, req *model.CreateCompoundFormulaRequest) (*model.CompoundFormula, error) {
	compoundID, err := uuid.Parse(req.CompoundID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid compound id", err)
	}
	ingredientID, err := uuid.Parse(req.IngredientID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid ingredient id", err)
	}
	if compoundID == ingredientID {
		return nil, apperrors.BadRequest("compound cannot contain itself", nil)
	}
	if _, err := s.medicineRepo.GetByID(ctx, compoundID); err != nil {
		return nil, err
	}
	if _, err := s.medicineRepo.GetByID(ctx, ingredientID); err != nil {
		return nil, err
	}

	cf := &model.CompoundFormula{
		CompoundID:   compoundID,
		IngredientID: ingredientID,
		Ratio:        req.Ratio,
	}
	if err := s.compoundRepo.Create(ctx, cf); err != nil {
		return nil, fmt.Errorf("failed to create compound formula: %w", err)
	}
	return cf, nil
}

func (s *Service) GetCompoundFormula(ctx context.Context, id uuid.UUID) (*model.CompoundFormula, error) {
	return s.compoundRepo.GetByID(ctx, id)
}

func (s *Service) ListCompoundFormulas(ctx context.Context, compoundID *uuid.UUID) ([]*model.CompoundFormula, error) {
	if compoundID != nil {
		return s.compoundRepo.ListByCompound(ctx, *compoundID)
	}
	return s.compoundRepo.List(ctx)
}

func (s *Service) DeleteCompoundFormula(ctx context.Context, id uuid.UUID) error {
	if _, err := s.compoundRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.compoundRepo.Delete(ctx, id)
}
