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

type formulaRepository struct {
	BaseRepository
}

func NewFormulaRepository(base BaseRepository) repository.FormulaRepository {
	return &formulaRepository{base}
}

func (r *formulaRepository) Create(ctx context.Context, f *model.ExperienceFormula, items []*model.ExperienceFormulaItem) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO experience_formulas (
				id, doctor_id, name, category, indication,
				usage_instruction, notes, is_public, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		f.ID = uuid.New()
		f.CreatedAt = time.Now()
		f.UpdatedAt = f.CreatedAt

		_, err := tx.ExecContext(ctx, query,
			f.ID,
			f.DoctorID,
			f.Name,
			f.Category,
			f.Indication,
			f.UsageInstruction,
			f.Notes,
			f.IsPublic,
			f.CreatedAt,
			f.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create formula: %w", err)
		}
		return r.insertItemsTx(ctx, tx, f.ID, items)
	})
}

func (r *formulaRepository) insertItemsTx(ctx context.Context, tx *sqlx.Tx, formulaID uuid.UUID, items []*model.ExperienceFormulaItem) error {
	query := `
		INSERT INTO experience_formula_items (
			id, formula_id, medicine_id, dosage, unit,
			decoction_method, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := time.Now()
	for _, item := range items {
		item.ID = uuid.New()
		item.FormulaID = formulaID
		item.CreatedAt = now
		item.UpdatedAt = now

		_, err := tx.ExecContext(ctx, query,
			item.ID,
			item.FormulaID,
			item.MedicineID,
			item.Dosage,
			item.Unit,
			item.DecoctionMethod,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create formula item: %w", err)
		}
	}
	return nil
}

func (r *formulaRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExperienceFormula, error) {
	query := `
		SELECT f.*, u.username AS doctor_name
		FROM experience_formulas f
		JOIN users u ON u.id = f.doctor_id
		WHERE f.id = $1
	`
	var f model.ExperienceFormula
	err := r.db.GetContext(ctx, &f, query, id)
	if err != nil {
		return nil, notFound(err, "formula")
	}

	itemsQuery := `
		SELECT fi.*, m.code AS medicine_code, m.name AS medicine_name
		FROM experience_formula_items fi
		JOIN medicines m ON m.id = fi.medicine_id
		WHERE fi.formula_id = $1
		ORDER BY m.code
	`
	if err := r.db.SelectContext(ctx, &f.Items, itemsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to list formula items: %w", err)
	}
	return &f, nil
}

// ListVisible returns the doctor's own formulas plus everyone's public
// ones.
func (r *formulaRepository) ListVisible(ctx context.Context, doctorID uuid.UUID) ([]*model.ExperienceFormula, error) {
	query := `
		SELECT f.*, u.username AS doctor_name
		FROM experience_formulas f
		JOIN users u ON u.id = f.doctor_id
		WHERE f.doctor_id = $1 OR f.is_public
		ORDER BY f.name
	`
	var formulas []*model.ExperienceFormula
	err := r.db.SelectContext(ctx, &formulas, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list formulas: %w", err)
	}
	return formulas, nil
}

func (r *formulaRepository) Update(ctx context.Context, f *model.ExperienceFormula, items []*model.ExperienceFormulaItem) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE experience_formulas SET
				name = $1, category = $2, indication = $3,
				usage_instruction = $4, notes = $5, is_public = $6,
				updated_at = $7
			WHERE id = $8
		`
		f.UpdatedAt = time.Now()
		_, err := tx.ExecContext(ctx, query,
			f.Name,
			f.Category,
			f.Indication,
			f.UsageInstruction,
			f.Notes,
			f.IsPublic,
			f.UpdatedAt,
			f.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update formula: %w", err)
		}

		if items == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM experience_formula_items WHERE formula_id = $1`, f.ID); err != nil {
			return fmt.Errorf("failed to clear formula items: %w", err)
		}
		return r.insertItemsTx(ctx, tx, f.ID, items)
	})
}

func (r *formulaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM experience_formulas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete formula: %w", err)
	}
	return nil
}
