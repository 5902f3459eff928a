package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
)

type categoryRepository struct {
	BaseRepository
}

func NewCategoryRepository(base BaseRepository) repository.CategoryRepository {
	return &categoryRepository{base}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.MedicineCategory) error {
	query := `
		INSERT INTO medicine_categories (id, name, code, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	category.ID = uuid.New()
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		category.ID,
		category.Name,
		category.Code,
		category.ParentID,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MedicineCategory, error) {
	var category model.MedicineCategory
	err := r.db.GetContext(ctx, &category, `SELECT * FROM medicine_categories WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "category")
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*model.MedicineCategory, error) {
	var categories []*model.MedicineCategory
	query := `SELECT * FROM medicine_categories ORDER BY code`
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *model.MedicineCategory) error {
	query := `UPDATE medicine_categories SET name = $1, parent_id = $2, updated_at = $3 WHERE id = $4`
	category.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, category.Name, category.ParentID, category.UpdatedAt, category.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM medicine_categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

type supplierRepository struct {
	BaseRepository
}

func NewSupplierRepository(base BaseRepository) repository.SupplierRepository {
	return &supplierRepository{base}
}

func (r *supplierRepository) Create(ctx context.Context, supplier *model.Supplier) error {
	query := `
		INSERT INTO suppliers (
			id, name, code, contact_person, phone, email, address,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	supplier.ID = uuid.New()
	supplier.CreatedAt = time.Now()
	supplier.UpdatedAt = supplier.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		supplier.ID,
		supplier.Name,
		supplier.Code,
		supplier.ContactPerson,
		supplier.Phone,
		supplier.Email,
		supplier.Address,
		supplier.IsActive,
		supplier.CreatedAt,
		supplier.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create supplier: %w", err)
	}
	return nil
}

func (r *supplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var supplier model.Supplier
	err := r.db.GetContext(ctx, &supplier, `SELECT * FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "supplier")
	}
	return &supplier, nil
}

func (r *supplierRepository) List(ctx context.Context, activeOnly bool) ([]*model.Supplier, error) {
	var suppliers []*model.Supplier
	query := `SELECT * FROM suppliers WHERE ($1 = false OR is_active = true) ORDER BY code`
	if err := r.db.SelectContext(ctx, &suppliers, query, activeOnly); err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return suppliers, nil
}

func (r *supplierRepository) Update(ctx context.Context, supplier *model.Supplier) error {
	query := `
		UPDATE suppliers SET
			name = $1, contact_person = $2, phone = $3, email = $4,
			address = $5, is_active = $6, updated_at = $7
		WHERE id = $8
	`
	supplier.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		supplier.Name,
		supplier.ContactPerson,
		supplier.Phone,
		supplier.Email,
		supplier.Address,
		supplier.IsActive,
		supplier.UpdatedAt,
		supplier.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update supplier: %w", err)
	}
	return nil
}

func (r *supplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE suppliers SET is_active = false, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to deactivate supplier: %w", err)
	}
	return nil
}

type medicineRepository struct {
	BaseRepository
}

func NewMedicineRepository(base BaseRepository) repository.MedicineRepository {
	return &medicineRepository{base}
}

func (r *medicineRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, medicine *model.Medicine) error {
	query := `
		INSERT INTO medicines (
			id, code, name, english_name, pinyin, medicine_type, category_id,
			specification, unit, package_unit, package_size, brand, supplier_id,
			cost_price, selling_price, safety_stock, efficacy, indications,
			contraindications, external_sku, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	medicine.ID = uuid.New()
	medicine.CreatedAt = time.Now()
	medicine.UpdatedAt = medicine.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		medicine.ID,
		medicine.Code,
		medicine.Name,
		medicine.EnglishName,
		medicine.Pinyin,
		medicine.MedicineType,
		medicine.CategoryID,
		medicine.Specification,
		medicine.Unit,
		medicine.PackageUnit,
		medicine.PackageSize,
		medicine.Brand,
		medicine.SupplierID,
		medicine.CostPrice,
		medicine.SellingPrice,
		medicine.SafetyStock,
		medicine.Efficacy,
		medicine.Indications,
		medicine.Contraindications,
		medicine.ExternalSKU,
		medicine.IsActive,
		medicine.CreatedAt,
		medicine.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medicine: %w", err)
	}
	return nil
}

const medicineSelect = `
	SELECT m.*, s.quantity AS stock_quantity
	FROM medicines m
	LEFT JOIN stock_levels s ON s.medicine_id = m.id
`

func (r *medicineRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	err := r.db.GetContext(ctx, &medicine, medicineSelect+` WHERE m.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "medicine")
	}
	return &medicine, nil
}

func (r *medicineRepository) GetByCode(ctx context.Context, code string) (*model.Medicine, error) {
	var medicine model.Medicine
	err := r.db.GetContext(ctx, &medicine, medicineSelect+` WHERE m.code = $1`, code)
	if err != nil {
		return nil, notFound(err, "medicine")
	}
	return &medicine, nil
}

func (r *medicineRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Medicine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM medicines WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build medicine query: %w", err)
	}
	query = r.db.Rebind(query)

	var medicines []*model.Medicine
	if err := r.db.SelectContext(ctx, &medicines, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch medicines: %w", err)
	}
	return medicines, nil
}

func (r *medicineRepository) List(ctx context.Context, filter *model.MedicineFilter) ([]*model.Medicine, int, error) {
	where := ` WHERE ($1 = '' OR m.code ILIKE '%' || $1 || '%' OR m.name ILIKE '%' || $1 || '%'
			OR m.pinyin ILIKE '%' || $1 || '%' OR m.english_name ILIKE '%' || $1 || '%')
		AND ($2 = '' OR m.medicine_type = $2)
		AND ($3 = '' OR m.category_id = $3::uuid)
		AND ($4::boolean IS NULL OR m.is_active = $4)`

	var total int
	countQuery := `SELECT COUNT(*) FROM medicines m` + where
	if err := r.db.GetContext(ctx, &total, countQuery,
		filter.Query, filter.MedicineType, filter.CategoryID, filter.IsActive); err != nil {
		return nil, 0, fmt.Errorf("failed to count medicines: %w", err)
	}

	query := medicineSelect + where + ` ORDER BY m.code LIMIT $5 OFFSET $6`
	var medicines []*model.Medicine
	err := r.db.SelectContext(ctx, &medicines, query,
		filter.Query, filter.MedicineType, filter.CategoryID, filter.IsActive,
		filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list medicines: %w", err)
	}
	return medicines, total, nil
}

func (r *medicineRepository) Update(ctx context.Context, medicine *model.Medicine) error {
	query := `
		UPDATE medicines SET
			name = $1, english_name = $2, pinyin = $3, category_id = $4,
			specification = $5, unit = $6, package_unit = $7, package_size = $8,
			brand = $9, supplier_id = $10, cost_price = $11, selling_price = $12,
			safety_stock = $13, efficacy = $14, indications = $15,
			contraindications = $16, external_sku = $17, is_active = $18,
			updated_at = $19
		WHERE id = $20
	`
	medicine.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		medicine.Name,
		medicine.EnglishName,
		medicine.Pinyin,
		medicine.CategoryID,
		medicine.Specification,
		medicine.Unit,
		medicine.PackageUnit,
		medicine.PackageSize,
		medicine.Brand,
		medicine.SupplierID,
		medicine.CostPrice,
		medicine.SellingPrice,
		medicine.SafetyStock,
		medicine.Efficacy,
		medicine.Indications,
		medicine.Contraindications,
		medicine.ExternalSKU,
		medicine.IsActive,
		medicine.UpdatedAt,
		medicine.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medicine: %w", err)
	}
	return nil
}

// Search matches code, name, pinyin or english name for the prescription
// entry typeahead. Only active medicines are returned.
func (r *medicineRepository) Search(ctx context.Context, query string, limit int) ([]*model.Medicine, error) {
	sqlQuery := medicineSelect + `
		WHERE m.is_active = true
			AND (m.code ILIKE '%' || $1 || '%' OR m.name ILIKE '%' || $1 || '%'
				OR m.pinyin ILIKE '%' || $1 || '%' OR m.english_name ILIKE '%' || $1 || '%')
		ORDER BY m.code
		LIMIT $2
	`
	var medicines []*model.Medicine
	if err := r.db.SelectContext(ctx, &medicines, sqlQuery, query, limit); err != nil {
		return nil, fmt.Errorf("failed to search medicines: %w", err)
	}
	return medicines, nil
}
