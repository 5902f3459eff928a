package worker

import (
	"context"
	"time"

	"github.com/tcmflow/clinic-api/internal/email"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/pkg/logger"
	"github.com/tcmflow/clinic-api/pkg/metrics"
)

// LowStockWorker mails a daily digest of medicines below their safety
// stock to the clinic contact address and keeps the low-stock gauge
// current.
type LowStockWorker struct {
	stock   repository.StockRepository
	clinic  repository.ClinicRepository
	mailer  email.Service
	metrics *metrics.Metrics
	logger  *logger.Logger

	interval time.Duration
}

func NewLowStockWorker(
	stock repository.StockRepository,
	clinic repository.ClinicRepository,
	mailer email.Service,
	m *metrics.Metrics,
	l *logger.Logger,
) *LowStockWorker {
	return &LowStockWorker{
		stock:    stock,
		clinic:   clinic,
		mailer:   mailer,
		metrics:  m,
		logger:   l,
		interval: 24 * time.Hour,
	}
}

func (w *LowStockWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *LowStockWorker) run(ctx context.Context) {
	items, err := w.stock.ListLowStock(ctx)
	if err != nil {
		w.logger.Error(err, "low stock check failed")
		return
	}
	w.metrics.LowStockItems.Set(float64(len(items)))

	if len(items) == 0 {
		return
	}

	settings, err := w.clinic.GetSettings(ctx)
	if err != nil {
		w.logger.Error(err, "failed to load clinic settings for low stock digest")
		return
	}
	if settings.Email == "" {
		w.logger.Warn(nil, "low stock digest skipped, clinic email not configured", "items", len(items))
		return
	}

	if err := w.mailer.SendLowStockAlert(ctx, settings.Email, items); err != nil {
		w.logger.Error(err, "failed to send low stock digest", "items", len(items))
		return
	}
	w.logger.Info("sent low stock digest", "recipient", settings.Email, "items", len(items))
}
