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

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, chart_number, name, gender, birth_date, id_card_number,
			phone, mobile, address, email, emergency_contact_name,
			emergency_contact_phone, emergency_contact_relation,
			blood_type, allergies, medical_history, notes, balance,
			is_active, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
	`
	patient.ID = uuid.New()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		patient.ID,
		patient.ChartNumber,
		patient.Name,
		patient.Gender,
		patient.BirthDate,
		patient.IDCardNumber,
		patient.Phone,
		patient.Mobile,
		patient.Address,
		patient.Email,
		patient.EmergencyContactName,
		patient.EmergencyContactPhone,
		patient.EmergencyContactRelation,
		patient.BloodType,
		patient.Allergies,
		patient.MedicalHistory,
		patient.Notes,
		patient.Balance,
		patient.IsActive,
		patient.CreatedBy,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `SELECT * FROM patients WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) GetByChartNumber(ctx context.Context, chartNumber string) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `SELECT * FROM patients WHERE chart_number = $1`, chartNumber)
	if err != nil {
		return nil, notFound(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, int, error) {
	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR chart_number ILIKE '%' || $1 || '%')
		AND ($2::boolean IS NULL OR is_active = $2)`

	var total int
	countQuery := `SELECT COUNT(*) FROM patients ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, filter.Query, filter.IsActive); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query := `SELECT * FROM patients ` + where + ` ORDER BY chart_number DESC LIMIT $3 OFFSET $4`
	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, query, filter.Query, filter.IsActive, filter.PageSize, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients SET
			name = $1, gender = $2, birth_date = $3, id_card_number = $4,
			phone = $5, mobile = $6, address = $7, email = $8,
			emergency_contact_name = $9, emergency_contact_phone = $10,
			emergency_contact_relation = $11, blood_type = $12,
			allergies = $13, medical_history = $14, notes = $15,
			is_active = $16, updated_at = $17
		WHERE id = $18
	`
	patient.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		patient.Name,
		patient.Gender,
		patient.BirthDate,
		patient.IDCardNumber,
		patient.Phone,
		patient.Mobile,
		patient.Address,
		patient.Email,
		patient.EmergencyContactName,
		patient.EmergencyContactPhone,
		patient.EmergencyContactRelation,
		patient.BloodType,
		patient.Allergies,
		patient.MedicalHistory,
		patient.Notes,
		patient.IsActive,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE patients SET is_active = false, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Search(ctx context.Context, query string, limit int) ([]*model.Patient, error) {
	sqlQuery := `
		SELECT * FROM patients
		WHERE is_active = true AND (
			chart_number ILIKE '%' || $1 || '%'
			OR name ILIKE '%' || $1 || '%'
			OR phone ILIKE '%' || $1 || '%'
			OR mobile ILIKE '%' || $1 || '%'
		)
		ORDER BY chart_number
		LIMIT $2
	`
	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, sqlQuery, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return patients, nil
}

// AdjustBalanceTx adds delta to the patient's stored account balance.
func (r *patientRepository) AdjustBalanceTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta float64) error {
	query := `UPDATE patients SET balance = balance + $1, updated_at = $2 WHERE id = $3`
	_, err := tx.ExecContext(ctx, query, delta, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to adjust patient balance: %w", err)
	}
	return nil
}

func (r *patientRepository) CreateImage(ctx context.Context, image *model.PatientImage) error {
	query := `
		INSERT INTO patient_images (
			id, patient_id, image_type, file_path, description,
			taken_at, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	image.ID = uuid.New()
	image.CreatedAt = time.Now()
	image.UpdatedAt = image.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		image.ID,
		image.PatientID,
		image.ImageType,
		image.FilePath,
		image.Description,
		image.TakenAt,
		image.CreatedBy,
		image.CreatedAt,
		image.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient image: %w", err)
	}
	return nil
}

func (r *patientRepository) ListImages(ctx context.Context, patientID uuid.UUID) ([]*model.PatientImage, error) {
	var images []*model.PatientImage
	query := `SELECT * FROM patient_images WHERE patient_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &images, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient images: %w", err)
	}
	return images, nil
}
