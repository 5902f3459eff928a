package worker

import (
	"context"
	"time"

	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/pkg/logger"
)

// CleanupWorker prunes rows that only matter for a while: old audit
// entries, expired tokens and already-published outbox events.
type CleanupWorker struct {
	audit  repository.AuditRepository
	tokens repository.TokenRepository
	outbox repository.OutboxRepository
	logger *logger.Logger

	interval        time.Duration
	auditRetention  time.Duration
	outboxRetention time.Duration
}

func NewCleanupWorker(
	audit repository.AuditRepository,
	tokens repository.TokenRepository,
	outbox repository.OutboxRepository,
	l *logger.Logger,
) *CleanupWorker {
	return &CleanupWorker{
		audit:           audit,
		tokens:          tokens,
		outbox:          outbox,
		logger:          l,
		interval:        24 * time.Hour,
		auditRetention:  365 * 24 * time.Hour,
		outboxRetention: 7 * 24 * time.Hour,
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
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

func (w *CleanupWorker) run(ctx context.Context) {
	now := time.Now()

	if n, err := w.audit.DeleteBefore(ctx, now.Add(-w.auditRetention)); err != nil {
		w.logger.Error(err, "audit log cleanup failed")
	} else if n > 0 {
		w.logger.Info("pruned audit logs", "deleted", n)
	}

	if n, err := w.tokens.DeleteExpired(ctx, now); err != nil {
		w.logger.Error(err, "token cleanup failed")
	} else if n > 0 {
		w.logger.Info("pruned expired tokens", "deleted", n)
	}

	if n, err := w.outbox.DeleteProcessedBefore(ctx, now.Add(-w.outboxRetention)); err != nil {
		w.logger.Error(err, "outbox cleanup failed")
	} else if n > 0 {
		w.logger.Info("pruned processed outbox events", "deleted", n)
	}
}
