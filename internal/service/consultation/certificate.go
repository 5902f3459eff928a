package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

func (s *Service) CreateCertificate(ctx context.Context, actorID *uuid.UUID, req *model.CreateCertificateRequest) (*model.Certificate, error) {
	consultationID, err := uuid.Parse(req.ConsultationID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid consultation id", err)
	}
	if _, err := s.repo.GetByID(ctx, consultationID); err != nil {
		return nil, err
	}

	now := time.Now()
	cert := &model.Certificate{
		ConsultationID:  consultationID,
		CertificateType: model.CertificateType(req.CertificateType),
		Content:         req.Content,
		IssueDate:       now,
		CreatedBy:       actorID,
	}
	if req.IssueDate != "" {
		issueDate, err := time.Parse(model.DateOnly, req.IssueDate)
		if err != nil {
			return nil, apperrors.BadRequest("invalid issue date", err)
		}
		cert.IssueDate = issueDate
	}
	if req.SickLeaveStart != "" {
		start, err := time.Parse(model.DateOnly, req.SickLeaveStart)
		if err != nil {
			return nil, apperrors.BadRequest("invalid sick leave start", err)
		}
		cert.SickLeaveStart = &start
	}
	if req.SickLeaveEnd != "" {
		end, err := time.Parse(model.DateOnly, req.SickLeaveEnd)
		if err != nil {
			return nil, apperrors.BadRequest("invalid sick leave end", err)
		}
		cert.SickLeaveEnd = &end
	}
	if cert.SickLeaveStart != nil && cert.SickLeaveEnd != nil && cert.SickLeaveEnd.Before(*cert.SickLeaveStart) {
		return nil, apperrors.BadRequest("sick leave end precedes start", nil)
	}

	err = s.certRepo.WithTx(ctx, func(tx *sqlx.Tx) error {
		seq, err := s.seqRepo.NextTx(ctx, tx, model.DateScope(model.SeqCertificate, now))
		if err != nil {
			return fmt.Errorf("failed to allocate certificate number: %w", err)
		}
		cert.CertificateNumber = model.FormatDateNumber("C", now, seq)
		return s.certRepo.CreateTx(ctx, tx, cert)
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, "certificate", &cert.ID,
		&audit.LogOptions{After: cert})
	return cert, nil
}

func (s *Service) GetCertificate(ctx context.Context, id uuid.UUID) (*model.Certificate, error) {
	return s.certRepo.GetByID(ctx, id)
}

func (s *Service) ListCertificates(ctx context.Context, p *model.Pagination) ([]*model.Certificate, int, error) {
	p.Normalize()
	return s.certRepo.List(ctx, p)
}

func (s *Service) ListCertificatesByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.Certificate, error) {
	return s.certRepo.ListByConsultation(ctx, consultationID)
}

func (s *Service) UpdateCertificate(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.UpdateCertificateRequest) (*model.Certificate, error) {
	cert, err := s.certRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *cert

	if req.Content != nil {
		cert.Content = *req.Content
	}
	if req.IssueDate != nil {
		issueDate, err := time.Parse(model.DateOnly, *req.IssueDate)
		if err != nil {
			return nil, apperrors.BadRequest("invalid issue date", err)
		}
		cert.IssueDate = issueDate
	}
	if req.SickLeaveStart != nil {
		if *req.SickLeaveStart == "" {
			cert.SickLeaveStart = nil
		} else {
			start, err := time.Parse(model.DateOnly, *req.SickLeaveStart)
			if err != nil {
				return nil, apperrors.BadRequest("invalid sick leave start", err)
			}
			cert.SickLeaveStart = &start
		}
	}
	if req.SickLeaveEnd != nil {
		if *req.SickLeaveEnd == "" {
			cert.SickLeaveEnd = nil
		} else {
			end, err := time.Parse(model.DateOnly, *req.SickLeaveEnd)
			if err != nil {
				return nil, apperrors.BadRequest("invalid sick leave end", err)
			}
			cert.SickLeaveEnd = &end
		}
	}

	if err := s.certRepo.Update(ctx, cert); err != nil {
		return nil, fmt.Errorf("failed to update certificate: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "certificate", &cert.ID,
		&audit.LogOptions{Before: before, After: cert})
	return cert, nil
}

func (s *Service) DeleteCertificate(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) error {
	cert, err := s.certRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.certRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionDelete, "certificate", &id,
		&audit.LogOptions{Before: cert})
	return nil
}

// RecordPrint bumps the print counter and stamps the print time.
func (s *Service) RecordPrint(ctx context.Context, id uuid.UUID) (*model.Certificate, error) {
	if _, err := s.certRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.certRepo.RecordPrint(ctx, id, time.Now())
}
