package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
)

type consultationRepository struct {
	BaseRepository
}

func NewConsultationRepository(base BaseRepository) repository.ConsultationRepository {
	return &consultationRepository{base}
}

func (r *consultationRepository) CreateTerm(ctx context.Context, term *model.DiagnosticTerm) error {
	query := `
		INSERT INTO diagnostic_terms (
			id, category, code, name, description, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	term.ID = uuid.New()
	term.CreatedAt = time.Now()
	term.UpdatedAt = term.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		term.ID, term.Category, term.Code, term.Name,
		term.Description, term.IsActive, term.CreatedAt, term.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create diagnostic term: %w", err)
	}
	return nil
}

func (r *consultationRepository) GetTerm(ctx context.Context, id uuid.UUID) (*model.DiagnosticTerm, error) {
	var term model.DiagnosticTerm
	err := r.db.GetContext(ctx, &term, `SELECT * FROM diagnostic_terms WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "diagnostic term")
	}
	return &term, nil
}

func (r *consultationRepository) ListTerms(ctx context.Context, category string) ([]*model.DiagnosticTerm, error) {
	query := `
		SELECT * FROM diagnostic_terms
		WHERE is_active = true AND ($1 = '' OR category = $1)
		ORDER BY category, code
	`
	var terms []*model.DiagnosticTerm
	err := r.db.SelectContext(ctx, &terms, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostic terms: %w", err)
	}
	return terms, nil
}

func (r *consultationRepository) UpdateTerm(ctx context.Context, term *model.DiagnosticTerm) error {
	query := `
		UPDATE diagnostic_terms SET
			name = $1, description = $2, is_active = $3, updated_at = $4
		WHERE id = $5
	`
	term.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		term.Name, term.Description, term.IsActive, term.UpdatedAt, term.ID)
	if err != nil {
		return fmt.Errorf("failed to update diagnostic term: %w", err)
	}
	return nil
}

func (r *consultationRepository) DeleteTerm(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM diagnostic_terms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete diagnostic term: %w", err)
	}
	return nil
}

func (r *consultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (
			id, registration_id, doctor_id, chief_complaint, present_illness,
			past_history, inspection, tongue_appearance, listening_smelling,
			inquiry, pulse, palpation, tcm_diagnosis, western_diagnosis,
			syndrome_differentiation, treatment_principle, advice,
			follow_up_date, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21
		)
	`
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.RegistrationID,
		c.DoctorID,
		c.ChiefComplaint,
		c.PresentIllness,
		c.PastHistory,
		c.Inspection,
		c.TongueAppearance,
		c.ListeningSmelling,
		c.Inquiry,
		c.Pulse,
		c.Palpation,
		c.TCMDiagnosis,
		c.WesternDiagnosis,
		c.SyndromeDifferentiation,
		c.TreatmentPrinciple,
		c.Advice,
		c.FollowUpDate,
		c.Notes,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	return nil
}

const consultationSelect = `
	SELECT c.*, r.patient_id, p.name AS patient_name, u.username AS doctor_name
	FROM consultations c
	JOIN registrations r ON r.id = c.registration_id
	JOIN patients p ON p.id = r.patient_id
	JOIN users u ON u.id = c.doctor_id
`

func (r *consultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	var c model.Consultation
	err := r.db.GetContext(ctx, &c, consultationSelect+` WHERE c.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "consultation")
	}
	return &c, nil
}

func (r *consultationRepository) GetByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.Consultation, error) {
	var c model.Consultation
	err := r.db.GetContext(ctx, &c, consultationSelect+` WHERE c.registration_id = $1`, registrationID)
	if err != nil {
		return nil, notFound(err, "consultation")
	}
	return &c, nil
}

func (r *consultationRepository) ExistsForRegistration(ctx context.Context, registrationID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM consultations WHERE registration_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, registrationID); err != nil {
		return false, fmt.Errorf("failed to check consultation existence: %w", err)
	}
	return exists, nil
}

func (r *consultationRepository) List(ctx context.Context, p *model.Pagination) ([]*model.Consultation, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM consultations`); err != nil {
		return nil, 0, fmt.Errorf("failed to count consultations: %w", err)
	}

	query := consultationSelect + ` ORDER BY c.created_at DESC LIMIT $1 OFFSET $2`
	var consultations []*model.Consultation
	err := r.db.SelectContext(ctx, &consultations, query, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, total, nil
}

func (r *consultationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Consultation, error) {
	query := consultationSelect + `
		WHERE r.patient_id = $1
		ORDER BY c.created_at DESC
		LIMIT $2
	`
	var consultations []*model.Consultation
	err := r.db.SelectContext(ctx, &consultations, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient consultations: %w", err)
	}
	return consultations, nil
}

// GetPreviousForPatient returns the patient's most recent consultation
// created before the given time, excluding the record being edited.
func (r *consultationRepository) GetPreviousForPatient(ctx context.Context, patientID uuid.UUID, before time.Time, excludeID uuid.UUID) (*model.Consultation, error) {
	query := consultationSelect + `
		WHERE r.patient_id = $1 AND c.created_at < $2 AND c.id != $3
		ORDER BY c.created_at DESC
		LIMIT 1
	`
	var c model.Consultation
	err := r.db.GetContext(ctx, &c, query, patientID, before, excludeID)
	if err != nil {
		return nil, notFound(err, "previous consultation")
	}
	return &c, nil
}

func (r *consultationRepository) Update(ctx context.Context, c *model.Consultation) error {
	query := `
		UPDATE consultations SET
			chief_complaint = $1, present_illness = $2, past_history = $3,
			inspection = $4, tongue_appearance = $5, listening_smelling = $6,
			inquiry = $7, pulse = $8, palpation = $9, tcm_diagnosis = $10,
			western_diagnosis = $11, syndrome_differentiation = $12,
			treatment_principle = $13, advice = $14, follow_up_date = $15,
			notes = $16, updated_at = $17
		WHERE id = $18
	`
	c.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		c.ChiefComplaint,
		c.PresentIllness,
		c.PastHistory,
		c.Inspection,
		c.TongueAppearance,
		c.ListeningSmelling,
		c.Inquiry,
		c.Pulse,
		c.Palpation,
		c.TCMDiagnosis,
		c.WesternDiagnosis,
		c.SyndromeDifferentiation,
		c.TreatmentPrinciple,
		c.Advice,
		c.FollowUpDate,
		c.Notes,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}
	return nil
}

func (r *consultationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM consultations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete consultation: %w", err)
	}
	return nil
}
