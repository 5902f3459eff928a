package email

import (
	"context"

	"github.com/tcmflow/clinic-api/internal/model"
)

type Service interface {
	SendPasswordReset(ctx context.Context, to, token string) error
	SendLowStockAlert(ctx context.Context, to string, items []*model.StockLevel) error
	SendCustom(ctx context.Context, to, subject, body string) error
}
