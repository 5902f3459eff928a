package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/pkg/logger"
)

type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, l *logger.Logger) *Service {
	return &Service{repo: repo, logger: l}
}

type LogOptions struct {
	Before    interface{}
	After     interface{}
	IP        string
	UserAgent string
}

// Log records an audit entry. Failures are logged and swallowed so a
// broken audit trail never blocks the operation it describes.
func (s *Service) Log(ctx context.Context, userID *uuid.UUID, action model.AuditAction, entityType string, entityID *uuid.UUID, opts *LogOptions) {
	entry := &model.AuditLog{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}

	if info, ok := ClientInfoFrom(ctx); ok {
		entry.IP = info.IP
		entry.UserAgent = info.UserAgent
	}
	if opts != nil {
		if opts.IP != "" {
			entry.IP = opts.IP
		}
		if opts.UserAgent != "" {
			entry.UserAgent = opts.UserAgent
		}
		if opts.Before != nil {
			if data, err := json.Marshal(opts.Before); err == nil {
				entry.Before = data
			}
		}
		if opts.After != nil {
			if data, err := json.Marshal(opts.After); err == nil {
				entry.After = data
			}
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write audit log",
			"action", string(action), "entity_type", entityType)
	}
}

func (s *Service) List(ctx context.Context, entityType string, entityID *uuid.UUID, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, entityType, entityID, limit)
}
