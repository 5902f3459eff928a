package email

import (
	"context"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/pkg/logger"
)

type noopService struct {
	logger *logger.Logger
}

// NewNoopService logs instead of sending. Used when SMTP is not
// configured.
func NewNoopService(l *logger.Logger) Service {
	return &noopService{logger: l}
}

func (s *noopService) SendPasswordReset(ctx context.Context, to, token string) error {
	s.logger.Info("email disabled, skipping password reset", "to", to)
	return nil
}

func (s *noopService) SendLowStockAlert(ctx context.Context, to string, items []*model.StockLevel) error {
	s.logger.Info("email disabled, skipping low stock alert", "to", to, "items", len(items))
	return nil
}

func (s *noopService) SendCustom(ctx context.Context, to, subject, body string) error {
	s.logger.Info("email disabled, skipping message", "to", to, "subject", subject)
	return nil
}
