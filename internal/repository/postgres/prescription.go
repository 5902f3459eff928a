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

type prescriptionRepository struct {
	BaseRepository
}

func NewPrescriptionRepository(base BaseRepository) repository.PrescriptionRepository {
	return &prescriptionRepository{base}
}

func (r *prescriptionRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, p *model.Prescription, items []*model.PrescriptionItem) error {
	query := `
		INSERT INTO prescriptions (
			id, consultation_id, prescription_number, name, total_doses,
			doses_per_day, days, usage_instruction, dispensing_method,
			external_pharmacy_id, medicine_fee, is_dispensed, audit_log,
			notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	if p.AuditLog == nil {
		p.AuditLog = []byte("[]")
	}

	_, err := tx.ExecContext(ctx, query,
		p.ID,
		p.ConsultationID,
		p.PrescriptionNumber,
		p.Name,
		p.TotalDoses,
		p.DosesPerDay,
		p.Days,
		p.UsageInstruction,
		p.DispensingMethod,
		p.ExternalPharmacyID,
		p.MedicineFee,
		p.IsDispensed,
		p.AuditLog,
		p.Notes,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}

	return r.insertItemsTx(ctx, tx, p.ID, items)
}

func (r *prescriptionRepository) insertItemsTx(ctx context.Context, tx *sqlx.Tx, prescriptionID uuid.UUID, items []*model.PrescriptionItem) error {
	query := `
		INSERT INTO prescription_items (
			id, prescription_id, medicine_id, dosage, unit,
			decoction_method, unit_price, subtotal, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	for _, item := range items {
		item.ID = uuid.New()
		item.PrescriptionID = prescriptionID
		item.CreatedAt = now
		item.UpdatedAt = now

		_, err := tx.ExecContext(ctx, query,
			item.ID,
			item.PrescriptionID,
			item.MedicineID,
			item.Dosage,
			item.Unit,
			item.DecoctionMethod,
			item.UnitPrice,
			item.Subtotal,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create prescription item: %w", err)
		}
	}
	return nil
}

func (r *prescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	err := r.db.GetContext(ctx, &p, `SELECT * FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "prescription")
	}

	items, err := r.listItems(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return &p, nil
}

func (r *prescriptionRepository) listItems(ctx context.Context, prescriptionID uuid.UUID) ([]*model.PrescriptionItem, error) {
	query := `
		SELECT pi.*, m.code AS medicine_code, m.name AS medicine_name
		FROM prescription_items pi
		JOIN medicines m ON m.id = pi.medicine_id
		WHERE pi.prescription_id = $1
		ORDER BY pi.created_at, m.code
	`
	var items []*model.PrescriptionItem
	err := r.db.SelectContext(ctx, &items, query, prescriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescription items: %w", err)
	}
	return items, nil
}

func (r *prescriptionRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Prescription, error) {
	var prescriptions []*model.Prescription
	query := `SELECT * FROM prescriptions WHERE consultation_id = $1 ORDER BY created_at`
	err := r.db.SelectContext(ctx, &prescriptions, query, consultationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	for _, p := range prescriptions {
		items, err := r.listItems(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Items = items
	}
	return prescriptions, nil
}

func (r *prescriptionRepository) ListByRegistration(ctx context.Context, registrationID uuid.UUID) ([]*model.Prescription, error) {
	query := `
		SELECT p.* FROM prescriptions p
		JOIN consultations c ON c.id = p.consultation_id
		WHERE c.registration_id = $1
		ORDER BY p.created_at
	`
	var prescriptions []*model.Prescription
	err := r.db.SelectContext(ctx, &prescriptions, query, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

func (r *prescriptionRepository) AnyDispensedForRegistration(ctx context.Context, registrationID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM prescriptions p
			JOIN consultations c ON c.id = p.consultation_id
			WHERE c.registration_id = $1 AND p.is_dispensed
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, registrationID); err != nil {
		return false, fmt.Errorf("failed to check dispensed prescriptions: %w", err)
	}
	return exists, nil
}

// UpdateTx rewrites the prescription header and, when items are given,
// replaces the whole item set.
func (r *prescriptionRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, p *model.Prescription, items []*model.PrescriptionItem) error {
	query := `
		UPDATE prescriptions SET
			name = $1, total_doses = $2, doses_per_day = $3, days = $4,
			usage_instruction = $5, dispensing_method = $6,
			external_pharmacy_id = $7, medicine_fee = $8, audit_log = $9,
			notes = $10, updated_at = $11
		WHERE id = $12
	`
	p.UpdatedAt = time.Now()
	_, err := tx.ExecContext(ctx, query,
		p.Name,
		p.TotalDoses,
		p.DosesPerDay,
		p.Days,
		p.UsageInstruction,
		p.DispensingMethod,
		p.ExternalPharmacyID,
		p.MedicineFee,
		p.AuditLog,
		p.Notes,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update prescription: %w", err)
	}

	if items == nil {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM prescription_items WHERE prescription_id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to clear prescription items: %w", err)
	}
	return r.insertItemsTx(ctx, tx, p.ID, items)
}

func (r *prescriptionRepository) MarkDispensedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE prescriptions SET is_dispensed = true, dispensed_at = $1, updated_at = $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark prescription dispensed: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prescription: %w", err)
	}
	return nil
}
