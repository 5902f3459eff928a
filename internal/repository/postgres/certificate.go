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

type certificateRepository struct {
	BaseRepository
}

func NewCertificateRepository(base BaseRepository) repository.CertificateRepository {
	return &certificateRepository{base}
}

func (r *certificateRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, cert *model.Certificate) error {
	query := `
		INSERT INTO certificates (
			id, consultation_id, certificate_type, certificate_number,
			content, issue_date, sick_leave_start, sick_leave_end,
			print_count, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	cert.ID = uuid.New()
	cert.CreatedAt = time.Now()
	cert.UpdatedAt = cert.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		cert.ID,
		cert.ConsultationID,
		cert.CertificateType,
		cert.CertificateNumber,
		cert.Content,
		cert.IssueDate,
		cert.SickLeaveStart,
		cert.SickLeaveEnd,
		cert.PrintCount,
		cert.CreatedBy,
		cert.CreatedAt,
		cert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	return nil
}

func (r *certificateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.db.GetContext(ctx, &cert, `SELECT * FROM certificates WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "certificate")
	}
	return &cert, nil
}

func (r *certificateRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Certificate, error) {
	var certs []*model.Certificate
	query := `SELECT * FROM certificates WHERE consultation_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &certs, query, consultationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	return certs, nil
}

func (r *certificateRepository) List(ctx context.Context, p *model.Pagination) ([]*model.Certificate, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM certificates`); err != nil {
		return nil, 0, fmt.Errorf("failed to count certificates: %w", err)
	}

	var certs []*model.Certificate
	query := `SELECT * FROM certificates ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &certs, query, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list certificates: %w", err)
	}
	return certs, total, nil
}

func (r *certificateRepository) Update(ctx context.Context, cert *model.Certificate) error {
	query := `
		UPDATE certificates SET
			content = $1, issue_date = $2, sick_leave_start = $3,
			sick_leave_end = $4, updated_at = $5
		WHERE id = $6
	`
	cert.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		cert.Content,
		cert.IssueDate,
		cert.SickLeaveStart,
		cert.SickLeaveEnd,
		cert.UpdatedAt,
		cert.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update certificate: %w", err)
	}
	return nil
}

func (r *certificateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete certificate: %w", err)
	}
	return nil
}

// RecordPrint bumps the print counter and returns the updated row.
func (r *certificateRepository) RecordPrint(ctx context.Context, id uuid.UUID, at time.Time) (*model.Certificate, error) {
	query := `
		UPDATE certificates
		SET print_count = print_count + 1, last_printed_at = $1, updated_at = $1
		WHERE id = $2
		RETURNING *
	`
	var cert model.Certificate
	err := r.db.GetContext(ctx, &cert, query, at, id)
	if err != nil {
		return nil, notFound(err, "certificate")
	}
	return &cert, nil
}
