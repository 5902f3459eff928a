package prescription

import (
	"context"
	"encoding/json"
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
	repo             repository.PrescriptionRepository
	consultationRepo repository.ConsultationRepository
	formulaRepo      repository.FormulaRepository
	medicineRepo     repository.MedicineRepository
	stockRepo        repository.StockRepository
	seqRepo          repository.SequenceRepository
	emitter          event.Emitter
	auditor          *audit.Service
}

func NewService(repo repository.PrescriptionRepository, consultationRepo repository.ConsultationRepository,
	formulaRepo repository.FormulaRepository, medicineRepo repository.MedicineRepository,
	stockRepo repository.StockRepository, seqRepo repository.SequenceRepository,
	emitter event.Emitter, auditor *audit.Service) *Service {
	return &Service{
		repo:             repo,
		consultationRepo: consultationRepo,
		formulaRepo:      formulaRepo,
		medicineRepo:     medicineRepo,
		stockRepo:        stockRepo,
		seqRepo:          seqRepo,
		emitter:          emitter,
		auditor:          auditor,
	}
}

// buildItems resolves the requested medicines and prices each line at
// the medicine's current selling price.
func (s *Service) buildItems(ctx context.Context, inputs []model.PrescriptionItemInput) ([]*model.PrescriptionItem, float64, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		id, err := uuid.Parse(in.MedicineID)
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

	items := make([]*model.PrescriptionItem, 0, len(inputs))
	var totalFee float64
	for i, in := range inputs {
		medicine, ok := byID[ids[i]]
		if !ok {
			return nil, 0, apperrors.BadRequest(fmt.Sprintf("medicine %s not found", in.MedicineID), nil)
		}

		unit := in.Unit
		if unit == "" {
			unit = medicine.Unit
		}
		item := &model.PrescriptionItem{
			MedicineID:      medicine.ID,
			Dosage:          in.Dosage,
			Unit:            unit,
			DecoctionMethod: in.DecoctionMethod,
			UnitPrice:       medicine.SellingPrice,
			Subtotal:        in.Dosage * medicine.SellingPrice,
			MedicineCode:    medicine.Code,
			MedicineName:    medicine.Name,
		}
		items = append(items, item)
		totalFee += item.Subtotal
	}
	return items, totalFee, nil
}

func (s *Service) CreatePrescription(ctx context.Context, actorID *uuid.UUID, req *model.CreatePrescriptionRequest) (*model.Prescription, error) {
	consultationID, err := uuid.Parse(req.ConsultationID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid consultation id", err)
	}
	if _, err := s.consultationRepo.GetByID(ctx, consultationID); err != nil {
		return nil, err
	}

	items, totalFee, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	method := model.DispensingInternal
	if req.DispensingMethod != "" {
		method = model.DispensingMethod(req.DispensingMethod)
	}

	p := &model.Prescription{
		ConsultationID:   consultationID,
		Name:             req.Name,
		TotalDoses:       req.TotalDoses,
		DosesPerDay:      req.DosesPerDay,
		Days:             req.Days,
		UsageInstruction: req.UsageInstruction,
		DispensingMethod: method,
		MedicineFee:      totalFee,
		Notes:            req.Notes,
	}
	if req.ExternalPharmacyID != "" {
		pharmacyID, err := uuid.Parse(req.ExternalPharmacyID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid external pharmacy id", err)
		}
		p.ExternalPharmacyID = &pharmacyID
	}
	if method != model.DispensingInternal && p.ExternalPharmacyID == nil {
		return nil, apperrors.BadRequest("external dispensing requires a pharmacy", nil)
	}

	now := time.Now()
	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		seq, err := s.seqRepo.NextTx(ctx, tx, model.DateScope(model.SeqPrescription, now))
		if err != nil {
			return fmt.Errorf("failed to allocate prescription number: %w", err)
		}
		p.PrescriptionNumber = model.FormatDateNumber("RX", now, seq)
		return s.repo.CreateTx(ctx, tx, p, items)
	})
	if err != nil {
		return nil, err
	}
	p.Items = items

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, "prescription", &p.ID,
		&audit.LogOptions{After: p})
	return p, nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Prescription, error) {
	return s.repo.ListByConsultation(ctx, consultationID)
}

// UpdatePrescription rewrites an undispensed prescription. Only the
// prescribing doctor may do so, and every change is appended to the
// prescription's own audit trail.
func (s *Service) UpdatePrescription(ctx context.Context, actor *model.User, id uuid.UUID, req *model.UpdatePrescriptionRequest) (*model.Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDispensed {
		return nil, apperrors.BadRequest("prescription already dispensed", nil)
	}

	consultation, err := s.consultationRepo.GetByID(ctx, p.ConsultationID)
	if err != nil {
		return nil, err
	}
	if consultation.DoctorID != actor.ID {
		return nil, apperrors.Forbidden("only the prescribing doctor can modify this prescription", nil)
	}

	before := snapshot(p)

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.TotalDoses != nil {
		p.TotalDoses = *req.TotalDoses
	}
	if req.DosesPerDay != nil {
		p.DosesPerDay = *req.DosesPerDay
	}
	if req.Days != nil {
		p.Days = *req.Days
	}
	if req.UsageInstruction != nil {
		p.UsageInstruction = *req.UsageInstruction
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}

	var items []*model.PrescriptionItem
	if req.Items != nil {
		var totalFee float64
		items, totalFee, err = s.buildItems(ctx, req.Items)
		if err != nil {
			return nil, err
		}
		p.MedicineFee = totalFee
		p.Items = items
	}

	if err := appendAuditEntry(p, actor.Username, before, snapshot(p)); err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}

	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.repo.UpdateTx(ctx, tx, p, items)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// snapshot reduces a prescription to the fields tracked in its audit
// trail.
func snapshot(p *model.Prescription) model.JSONMap {
	itemLines := make([]map[string]interface{}, 0, len(p.Items))
	for _, item := range p.Items {
		itemLines = append(itemLines, map[string]interface{}{
			"medicine_id":   item.MedicineID,
			"medicine_name": item.MedicineName,
			"dosage":        item.Dosage,
			"unit":          item.Unit,
			"unit_price":    item.UnitPrice,
			"subtotal":      item.Subtotal,
		})
	}
	return model.JSONMap{
		"name":              p.Name,
		"total_doses":       p.TotalDoses,
		"doses_per_day":     p.DosesPerDay,
		"days":              p.Days,
		"usage_instruction": p.UsageInstruction,
		"medicine_fee":      p.MedicineFee,
		"notes":             p.Notes,
		"items":             itemLines,
	}
}

func appendAuditEntry(p *model.Prescription, username string, before, after model.JSONMap) error {
	var trail []model.PrescriptionAuditEntry
	if len(p.AuditLog) > 0 {
		if err := json.Unmarshal(p.AuditLog, &trail); err != nil {
			return err
		}
	}
	trail = append(trail, model.PrescriptionAuditEntry{
		Timestamp: time.Now(),
		User:      username,
		Before:    before,
		After:     after,
	})
	raw, err := json.Marshal(trail)
	if err != nil {
		return err
	}
	p.AuditLog = raw
	return nil
}

// Dispense flags the prescription and decrements stock for each item by
// dosage times total doses. Medicines without a stock row are skipped.
func (s *Service) Dispense(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDispensed {
		return nil, apperrors.BadRequest("prescription already dispensed", nil)
	}

	now := time.Now()
	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.MarkDispensedTx(ctx, tx, p.ID, now); err != nil {
			return err
		}

		for _, item := range p.Items {
			level, err := s.stockRepo.GetLevelForUpdateTx(ctx, tx, item.MedicineID)
			if err != nil {
				if apperrors.IsNotFound(err) {
					continue
				}
				return err
			}

			qty := item.Dosage * float64(p.TotalDoses)
			after := level.Quantity - qty
			if err := s.stockRepo.SetLevelTx(ctx, tx, item.MedicineID, after); err != nil {
				return err
			}
			txn := &model.StockTransaction{
				MedicineID:      item.MedicineID,
				TransactionType: model.StockTxnDispense,
				Quantity:        -qty,
				BeforeQuantity:  level.Quantity,
				AfterQuantity:   after,
				ReferenceNumber: p.PrescriptionNumber,
				CreatedBy:       actorID,
			}
			if err := s.stockRepo.CreateTransactionTx(ctx, tx, txn); err != nil {
				return err
			}
		}

		return s.emitter.EmitTx(ctx, tx, event.TypePrescriptionDispensed, map[string]interface{}{
			"prescription_id":     p.ID,
			"prescription_number": p.PrescriptionNumber,
			"consultation_id":     p.ConsultationID,
			"dispensed_at":        now,
		})
	})
	if err != nil {
		return nil, err
	}

	p.IsDispensed = true
	p.DispensedAt = &now
	return p, nil
}

// CheckStock reports whether current stock covers each requested line.
func (s *Service) CheckStock(ctx context.Context, req *model.CheckStockRequest) (*model.StockCheckResult, error) {
	result := &model.StockCheckResult{AllSufficient: true, Items: []*model.StockCheckLine{}}
	for _, in := range req.Items {
		medicineID, err := uuid.Parse(in.MedicineID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid medicine id", err)
		}
		medicine, err := s.medicineRepo.GetByID(ctx, medicineID)
		if err != nil {
			return nil, err
		}

		var available float64
		level, err := s.stockRepo.GetLevel(ctx, medicineID)
		switch {
		case err == nil:
			available = level.Quantity
		case apperrors.IsNotFound(err):
			available = 0
		default:
			return nil, err
		}

		required := in.Dosage * float64(req.TotalDoses)
		line := &model.StockCheckLine{
			MedicineID:   medicineID,
			MedicineName: medicine.Name,
			Required:     required,
			Available:    available,
			Sufficient:   available >= required,
		}
		if !line.Sufficient {
			result.AllSufficient = false
		}
		result.Items = append(result.Items, line)
	}
	return result, nil
}

// ApplyFormula appends the formula's items to the prescription, priced
// at each medicine's current selling price, and takes over the
// formula's name and usage instruction.
func (s *Service) ApplyFormula(ctx context.Context, actorID uuid.UUID, prescriptionID uuid.UUID, req *model.ApplyFormulaRequest) (*model.Prescription, error) {
	p, err := s.repo.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if p.IsDispensed {
		return nil, apperrors.BadRequest("prescription already dispensed", nil)
	}

	formulaID, err := uuid.Parse(req.FormulaID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid formula id", err)
	}
	formula, err := s.formulaRepo.GetByID(ctx, formulaID)
	if err != nil {
		return nil, err
	}
	if formula.DoctorID != actorID && !formula.IsPublic {
		return nil, apperrors.Forbidden("formula is not shared", nil)
	}

	inputs := make([]model.PrescriptionItemInput, 0, len(formula.Items))
	for _, item := range formula.Items {
		inputs = append(inputs, model.PrescriptionItemInput{
			MedicineID:      item.MedicineID.String(),
			Dosage:          item.Dosage,
			Unit:            item.Unit,
			DecoctionMethod: item.DecoctionMethod,
		})
	}
	newItems, _, err := s.buildItems(ctx, inputs)
	if err != nil {
		return nil, err
	}

	items := append(append([]*model.PrescriptionItem{}, p.Items...), newItems...)
	var totalFee float64
	for _, item := range items {
		totalFee += item.Subtotal
	}

	p.Name = formula.Name
	p.UsageInstruction = formula.UsageInstruction
	p.MedicineFee = totalFee
	p.Items = items

	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.repo.UpdateTx(ctx, tx, p, items)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePrescription(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.IsDispensed {
		return apperrors.BadRequest("prescription already dispensed", nil)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionDelete, "prescription", &id,
		&audit.LogOptions{Before: p})
	return nil
}
