package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/security"
)

type Service struct {
	repo    repository.UserRepository
	hasher  security.PasswordHasher
	auditor *audit.Service
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher, auditor *audit.Service) *Service {
	return &Service{repo: repo, hasher: hasher, auditor: auditor}
}

func (s *Service) CreateUser(ctx context.Context, actorID *uuid.UUID, req *model.CreateUserRequest) (*model.User, error) {
	if existing, err := s.repo.GetByUsername(ctx, req.Username); err == nil && existing != nil {
		return nil, apperrors.Conflict("username already taken", nil)
	}
	if existing, err := s.repo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, apperrors.Conflict("email already registered", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest("password does not meet requirements", err)
	}

	user := &model.User{
		Username:           req.Username,
		Email:              req.Email,
		PasswordHash:       hash,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Role:               model.Role(req.Role),
		Phone:              req.Phone,
		CertificateNumber:  req.CertificateNumber,
		DataMaskingEnabled: req.DataMaskingEnabled,
		IsActive:           true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, "user", &user.ID, &audit.LogOptions{After: user})
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListDoctors(ctx context.Context) ([]*model.User, error) {
	return s.repo.ListDoctors(ctx)
}

func (s *Service) UpdateUser(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *user

	if req.Email != nil && *req.Email != user.Email {
		if existing, err := s.repo.GetByEmail(ctx, *req.Email); err == nil && existing != nil {
			return nil, apperrors.Conflict("email already registered", nil)
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Role != nil {
		user.Role = model.Role(*req.Role)
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.CertificateNumber != nil {
		user.CertificateNumber = *req.CertificateNumber
	}
	if req.DataMaskingEnabled != nil {
		user.DataMaskingEnabled = *req.DataMaskingEnabled
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, apperrors.BadRequest("password does not meet requirements", err)
		}
		if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
			return nil, fmt.Errorf("failed to update password: %w", err)
		}
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, "user", &user.ID,
		&audit.LogOptions{Before: before, After: user})
	return user, nil
}
