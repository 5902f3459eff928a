package prescription

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

func (s *Service) buildFormulaItems(ctx context.Context, inputs []model.FormulaItemInput) ([]*model.ExperienceFormulaItem, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		id, err := uuid.Parse(in.MedicineID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid medicine id", err)
		}
		ids = append(ids, id)
	}

	medicines, err := s.medicineRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load medicines: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Medicine, len(medicines))
	for _, m := range medicines {
		byID[m.ID] = m
	}

	items := make([]*model.ExperienceFormulaItem, 0, len(inputs))
	for i, in := range inputs {
		medicine, ok := byID[ids[i]]
		if !ok {
			return nil, apperrors.BadRequest(fmt.Sprintf("medicine %s not found", in.MedicineID), nil)
		}
		unit := in.Unit
		if unit == "" {
			unit = medicine.Unit
		}
		items = append(items, &model.ExperienceFormulaItem{
			MedicineID:      medicine.ID,
			Dosage:          in.Dosage,
			Unit:            unit,
			DecoctionMethod: in.DecoctionMethod,
			MedicineCode:    medicine.Code,
			MedicineName:    medicine.Name,
		})
	}
	return items, nil
}

func (s *Service) CreateFormula(ctx context.Context, doctorID uuid.UUID, req *model.CreateFormulaRequest) (*model.ExperienceFormula, error) {
	items, err := s.buildFormulaItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	f := &model.ExperienceFormula{
		DoctorID:         doctorID,
		Name:             req.Name,
		Category:         req.Category,
		Indication:       req.Indication,
		UsageInstruction: req.UsageInstruction,
		Notes:            req.Notes,
		IsPublic:         req.IsPublic,
	}
	if err := s.formulaRepo.Create(ctx, f, items); err != nil {
		return nil, fmt.Errorf("failed to create formula: %w", err)
	}
	f.Items = items
	return f, nil
}

// GetFormula returns the formula when it belongs to the caller or is
// shared.
func (s *Service) GetFormula(ctx context.Context, actorID uuid.UUID, id uuid.UUID) (*model.ExperienceFormula, error) {
	f, err := s.formulaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.DoctorID != actorID && !f.IsPublic {
		return nil, apperrors.Forbidden("formula is not shared", nil)
	}
	return f, nil
}

// ListFormulas returns the caller's own formulas plus public ones.
func (s *Service) ListFormulas(ctx context.Context, actorID uuid.UUID) ([]*model.ExperienceFormula, error) {
	return s.formulaRepo.ListVisible(ctx, actorID)
}

func (s *Service) UpdateFormula(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *model.UpdateFormulaRequest) (*model.ExperienceFormula, error) {
	f, err := s.formulaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.DoctorID != actorID {
		return nil, apperrors.Forbidden("only the owner can modify this formula", nil)
	}

	if req.Name != nil {
		f.Name = *req.Name
	}
	if req.Category != nil {
		f.Category = *req.Category
	}
	if req.Indication != nil {
		f.Indication = *req.Indication
	}
	if req.UsageInstruction != nil {
		f.UsageInstruction = *req.UsageInstruction
	}
	if req.Notes != nil {
		f.Notes = *req.Notes
	}
	if req.IsPublic != nil {
		f.IsPublic = *req.IsPublic
	}

	var items []*model.ExperienceFormulaItem
	if req.Items != nil {
		items, err = s.buildFormulaItems(ctx, req.Items)
		if err != nil {
			return nil, err
		}
		f.Items = items
	}

	if err := s.formulaRepo.Update(ctx, f, items); err != nil {
		return nil, fmt.Errorf("failed to update formula: %w", err)
	}
	return f, nil
}

func (s *Service) DeleteFormula(ctx context.Context, actorID uuid.UUID, id uuid.UUID) error {
	f, err := s.formulaRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if f.DoctorID != actorID {
		return apperrors.Forbidden("only the owner can delete this formula", nil)
	}
	return s.formulaRepo.Delete(ctx, id)
}

// SaveFromPrescription snapshots a prescription's items as a reusable
// formula for the calling doctor.
func (s *Service) SaveFromPrescription(ctx context.Context, doctorID uuid.UUID, req *model.SaveFromPrescriptionRequest) (*model.ExperienceFormula, error) {
	prescriptionID, err := uuid.Parse(req.PrescriptionID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid prescription id", err)
	}
	p, err := s.repo.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}

	items := make([]*model.ExperienceFormulaItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, &model.ExperienceFormulaItem{
			MedicineID:      item.MedicineID,
			Dosage:          item.Dosage,
			Unit:            item.Unit,
			DecoctionMethod: item.DecoctionMethod,
			MedicineCode:    item.MedicineCode,
			MedicineName:    item.MedicineName,
		})
	}

	f := &model.ExperienceFormula{
		DoctorID:         doctorID,
		Name:             req.Name,
		Category:         req.Category,
		Indication:       req.Indication,
		UsageInstruction: p.UsageInstruction,
		IsPublic:         req.IsPublic,
	}
	if err := s.formulaRepo.Create(ctx, f, items); err != nil {
		return nil, fmt.Errorf("failed to create formula: %w", err)
	}
	f.Items = items
	return f, nil
}
