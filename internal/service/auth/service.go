package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/email"
	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	"github.com/tcmflow/clinic-api/pkg/auth"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/security"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
	resetTokenExpiry = 1 * time.Hour
)

type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	jwtMgr    *auth.Manager
	hasher    security.PasswordHasher
	emailSvc  email.Service
	auditor   *audit.Service
}

func NewService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository,
	jwtMgr *auth.Manager, hasher security.PasswordHasher, emailSvc email.Service,
	auditor *audit.Service) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwtMgr:    jwtMgr,
		hasher:    hasher,
		emailSvc:  emailSvc,
		auditor:   auditor,
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid username or password", err)
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is disabled", nil)
	}

	now := time.Now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, apperrors.Unauthorized("account is locked, try again later", nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		failed := user.FailedLoginCount + 1
		var lockedUntil *time.Time
		if failed >= maxLoginAttempts {
			t := now.Add(lockoutDuration)
			lockedUntil = &t
			failed = 0
		}
		if err := s.userRepo.UpdateLoginState(ctx, user.ID, failed, lockedUntil, user.LastLogin); err != nil {
			return nil, fmt.Errorf("failed to record login attempt: %w", err)
		}
		return nil, apperrors.Unauthorized("invalid username or password", nil)
	}

	if err := s.userRepo.UpdateLoginState(ctx, user.ID, 0, nil, &now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	identity := auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		Masking:  user.DataMaskingEnabled,
	}
	access, err := s.jwtMgr.GenerateAccessToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, _, err := s.jwtMgr.GenerateRefreshToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.auditor.Log(ctx, &user.ID, "login", "auth", &user.ID, nil)

	return &model.LoginResponse{
		Access:  access,
		Refresh: refresh,
		User:    user,
	}, nil
}

// Logout revokes the presented refresh token by its JTI. Missing or
// malformed tokens are accepted silently so logout never fails.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.jwtMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, model.TokenTypeRefreshRevocation, claims.ID)
	if err != nil {
		return fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil
	}

	token := &model.Token{
		UserID:    claims.UserID,
		TokenType: model.TokenTypeRefreshRevocation,
		Value:     claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	s.auditor.Log(ctx, &claims.UserID, "logout", "auth", &claims.UserID, nil)
	return nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenPairResponse, error) {
	claims, err := s.jwtMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, model.TokenTypeRefreshRevocation, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.Unauthorized("refresh token has been revoked", nil)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is disabled", nil)
	}

	identity := auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		Masking:  user.DataMaskingEnabled,
	}
	access, err := s.jwtMgr.GenerateAccessToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, _, err := s.jwtMgr.GenerateRefreshToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &model.TokenPairResponse{Access: access, Refresh: refresh}, nil
}

// ForgotPassword issues a reset token by email. Unknown addresses are
// ignored so the endpoint does not reveal which emails exist.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if _, ok := apperrors.AsAppError(err); ok {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	value, err := security.GenerateToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	token := &model.Token{
		UserID:    user.ID,
		TokenType: model.TokenTypePasswordReset,
		Value:     value,
		ExpiresAt: time.Now().Add(resetTokenExpiry),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.emailSvc.SendPasswordReset(ctx, user.Email, value); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, tokenValue, newPassword string) error {
	token, err := s.tokenRepo.GetByValue(ctx, model.TokenTypePasswordReset, tokenValue)
	if err != nil {
		return apperrors.BadRequest("invalid or expired reset token", err)
	}
	if token.RevokedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.BadRequest("invalid or expired reset token", nil)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.BadRequest("password does not meet requirements", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, token.UserID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.tokenRepo.Revoke(ctx, token.ID); err != nil {
		return fmt.Errorf("failed to revoke reset token: %w", err)
	}

	s.auditor.Log(ctx, &token.UserID, "reset_password", "auth", &token.UserID, nil)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, oldPassword); err != nil {
		return apperrors.BadRequest("current password is incorrect", nil)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.BadRequest("password does not meet requirements", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.auditor.Log(ctx, &userID, "change_password", "auth", &userID, nil)
	return nil
}
