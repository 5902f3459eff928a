package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/event"
	"github.com/tcmflow/clinic-api/pkg/metrics"
)

const (
	searchLimit       = 20
	transactionCutoff = 50
)

type Service struct {
	categoryRepo repository.CategoryRepository
	supplierRepo repository.SupplierRepository
	medicineRepo repository.MedicineRepository
	stockRepo    repository.StockRepository
	purchaseRepo repository.PurchaseOrderRepository
	compoundRepo repository.CompoundFormulaRepository
	seqRepo      repository.SequenceRepository
	emitter      event.Emitter
	metrics      *metrics.Metrics
	auditor      *audit.Service
}

func NewService(categoryRepo repository.CategoryRepository, supplierRepo repository.SupplierRepository,
	medicineRepo repository.MedicineRepository, stockRepo repository.StockRepository,
	purchaseRepo repository.PurchaseOrderRepository, compoundRepo repository.CompoundFormulaRepository,
	seqRepo repository.SequenceRepository, emitter event.Emitter, m *metrics.Metrics,
	auditor *audit.Service) *Service {
	return &Service{
		categoryRepo: categoryRepo,
		supplierRepo: supplierRepo,
		medicineRepo: medicineRepo,
		stockRepo:    stockRepo,
		purchaseRepo: purchaseRepo,
		compoundRepo: compoundRepo,
		seqRepo:      seqRepo,
		emitter:      emitter,
		metrics:      m,
		auditor:      auditor,
	}
}

func (s *Service) CreateCategory(ctx context.Context, req *model.CreateCategoryRequest) (*model.MedicineCategory, error) {
	category := &model.MedicineCategory{
		Name: req.Name,
		Code: req.Code,
	}
	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid parent id", err)
		}
		if _, err := s.categoryRepo.GetByID(ctx, parentID); err != nil {
			return nil, err
		}
		category.ParentID = &parentID
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*model.MedicineCategory, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]*model.MedicineCategory, error) {
	return s.categoryRepo.List(ctx)
}

func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, req *model.UpdateCategoryRequest) (*model.MedicineCategory, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.ParentID != nil {
		if *req.ParentID == "" {
			category.ParentID = nil
		} else {
			parentID, err := uuid.Parse(*req.ParentID)
			if err != nil {
				return nil, apperrors.BadRequest("invalid parent id", err)
			}
			if parentID == category.ID {
				return nil, apperrors.BadRequest("category cannot be its own parent", nil)
			}
			category.ParentID = &parentID
		}
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.categoryRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.categoryRepo.Delete(ctx, id)
}

func (s *Service) CreateSupplier(ctx context.Context, req *model.CreateSupplierRequest) (*model.Supplier, error) {
	supplier := &model.Supplier{
		Name:          req.Name,
		Code:          req.Code,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		IsActive:      true,
	}
	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return supplier, nil
}

func (s *Service) GetSupplier(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	return s.supplierRepo.GetByID(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context, activeOnly bool) ([]*model.Supplier, error) {
	return s.supplierRepo.List(ctx, activeOnly)
}

func (s *Service) UpdateSupplier(ctx context.Context, id uuid.UUID, req *model.UpdateSupplierRequest) (*model.Supplier, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.ContactPerson != nil {
		supplier.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.IsActive != nil {
		supplier.IsActive = *req.IsActive
	}

	if err := s.supplierRepo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}
	return supplier, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	if _, err := s.supplierRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.supplierRepo.Delete(ctx, id)
}

// CreateMedicine inserts the medicine together with its zero stock
// level so dispensing never has to special-case a missing row.
func (s *Service) CreateMedicine(ctx context.Context, actorID *uuid.UUID, req *model.CreateMedicineRequest) (*model.Medicine, error) {
	existing, err := s.medicineRepo.GetByCode(ctx, req.Code)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("medicine code already exists", nil)
	}

	medicine := &model.Medicine{
		Code:              req.Code,
		Name:              req.Name,
		EnglishName:       req.EnglishName,
		Pinyin:            req.Pinyin,
		MedicineType:      model.MedicineType(req.MedicineType),
		Specification:     req.Specification,
		Unit:              req.Unit,
		PackageUnit:       req.PackageUnit,
		PackageSize:       req.PackageSize,
		Brand:             req.Brand,
		CostPrice:         req.CostPrice,
		SellingPrice:      req.SellingPrice,
		SafetyStock:       req.SafetyStock,
		Efficacy:          req.Efficacy,
		Indications:       req.Indications,
		Contraindications: req.Contraindications,
		ExternalSKU:       req.ExternalSKU,
		IsActive:          true,
	}
	if req.CategoryID != "" {
		categoryID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid category id", err)
		}
		medicine.CategoryID = &categoryID
	}
	if req.SupplierID != "" {
		supplierID, err := uuid.Parse(req.SupplierID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid supplier id", err)
		}
		medicine.SupplierID = &supplierID
	}

	err = s.medicineRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.medicineRepo.CreateTx(ctx, tx, medicine); err != nil {
			return err
		}
		return s.stockRepo.CreateLevelTx(ctx, tx, medicine.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create medicine: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, "medicine", &medicine.ID,
		&audit.LogOptions{After: medicine})
	return medicine, nil
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	return s.medicineRepo.GetByID(ctx, id)
}

func (s *Service) ListMedicines(ctx context.Context, filter *model.MedicineFilter) ([]*model.Medicine, int, error) {
	filter.Normalize()
	return s.medicineRepo.List(ctx, filter)
}

func (s *Service) SearchMedicines(ctx context.Context, query string) ([]*model.Medicine, error) {
	if query == "" {
		return []*model.Medicine{}, nil
	}
	return s.medicineRepo.Search(ctx, query, searchLimit)
}

func (s *Service) UpdateMedicine(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.UpdateMedicineRequest) (*model.Medicine, error) {
	medicine, err := s.medicineRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *medicine

	if req.Name != nil {
		medicine.Name = *req.Name
	}
	if req.EnglishName != nil {
		medicine.EnglishName = *req.EnglishName
	}
	if req.Pinyin != nil {
		medicine.Pinyin = *req.Pinyin
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			medicine.CategoryID = nil
		} else {
			categoryID, err := uuid.Parse(*req.CategoryID)
			if err != nil {
				return nil, apperrors.BadRequest("invalid category id", err)
			}
			medicine.CategoryID = &categoryID
		}
	}
	if req.Specification != nil {
		medicine.Specification = *req.Specification
	}
	if req.Unit != nil {
		medicine.Unit = *req.Unit
	}
	if req.PackageUnit != nil {
		medicine.PackageUnit = *req.PackageUnit
	}
	if req.PackageSize != nil {
		medicine.PackageSize = *req.PackageSize
	}
	if req.Brand != nil {
		medicine.Brand = *req.Brand
	}
	if req.SupplierID != nil {
		if *req.SupplierID == "" {
			medicine.SupplierID = nil
		} else {
			supplierID, err := uuid.Parse(*req.SupplierID)
			if err != nil {
				return nil, apperrors.BadRequest("invalid supplier id", err)
			}
			medicine.SupplierID = &supplierID
		}
	}
	if req.CostPrice != nil {
		medicine.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		medicine.SellingPrice = *req.SellingPrice
	}
	if req.SafetyStock != nil {
		medicine.SafetyStock = *req.SafetyStock
	}
	if req.Efficacy != nil {
		medicine.Efficacy = *req.Efficacy
	}
	if req.Indications != nil {
		medicine.Indications = *req.Indications
	}
	if req.Contraindications != nil {
		medicine.Contraindications = *req.Contraindications
	}
	if req.ExternalSKU != nil {
		medicine.ExternalSKU = *req.ExternalSKU
	}
	if req.IsActive != nil {
		medicine.IsActive = *req.IsActive
	}

	if err := s.medicineRepo.Update(ctx, medicine); err != nil {
		return nil, fmt.Errorf("failed to update medicine: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "medicine", &medicine.ID,
		&audit.LogOptions{Before: before, After: medicine})
	return medicine, nil
}

func (s *Service) ListStockLevels(ctx context.Context, p *model.Pagination) ([]*model.StockLevel, int, error) {
	p.Normalize()
	return s.stockRepo.ListLevels(ctx, p)
}

// AdjustStock sets a medicine's quantity to the requested value and
// books the difference as an adjustment transaction.
func (s *Service) AdjustStock(ctx context.Context, actorID *uuid.UUID, medicineID uuid.UUID, req *model.AdjustStockRequest) (*model.StockLevel, error) {
	if _, err := s.medicineRepo.GetByID(ctx, medicineID); err != nil {
		return nil, err
	}

	var level *model.StockLevel
	err := s.stockRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		level, err = s.stockRepo.EnsureLevelTx(ctx, tx, medicineID)
		if err != nil {
			return err
		}
		before := level.Quantity
		if err := s.stockRepo.SetLevelTx(ctx, tx, medicineID, req.Quantity); err != nil {
			return err
		}
		txn := &model.StockTransaction{
			MedicineID:      medicineID,
			TransactionType: model.StockTxnAdjustment,
			Quantity:        req.Quantity - before,
			BeforeQuantity:  before,
			AfterQuantity:   req.Quantity,
			Notes:           req.Notes,
			CreatedBy:       actorID,
		}
		if err := s.stockRepo.CreateTransactionTx(ctx, tx, txn); err != nil {
			return err
		}
		level.Quantity = req.Quantity
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	s.auditor.Log(ctx, actorID, "adjust_stock", "medicine", &medicineID, nil)
	return level, nil
}

func (s *Service) ListTransactions(ctx context.Context, filter *model.StockTransactionFilter) ([]*model.StockTransaction, int, error) {
	filter.Normalize()
	return s.stockRepo.ListTransactions(ctx, filter)
}

func (s *Service) MedicineTransactions(ctx context.Context, medicineID uuid.UUID) ([]*model.StockTransaction, error) {
	if _, err := s.medicineRepo.GetByID(ctx, medicineID); err != nil {
		return nil, err
	}
	return s.stockRepo.ListTransactionsByMedicine(ctx, medicineID, transactionCutoff)
}

func (s *Service) LowStock(ctx context.Context) (*model.LowStockReport, error) {
	levels, err := s.stockRepo.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	if levels == nil {
		levels = []*model.StockLevel{}
	}
	s.metrics.LowStockItems.Set(float64(len(levels)))
	return &model.LowStockReport{Count: len(levels), Items: levels}, nil
}
