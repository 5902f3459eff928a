package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/pkg/logger"
	"github.com/tcmflow/clinic-api/pkg/messaging"
	"github.com/tcmflow/clinic-api/pkg/metrics"
)

// ChannelPrefix is prepended to the event type to form the pub/sub
// channel name, e.g. "clinic.events.bill.paid".
const ChannelPrefix = "clinic.events."

// OutboxStore is the slice of the outbox repository the processor
// needs. Rows are locked and updated inside a single transaction so
// concurrent workers never publish the same event twice.
type OutboxStore interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	GetPendingEventsTx(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
	MoveToDeadLetterTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
	CountPending(ctx context.Context) (int, error)
}

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

type OutboxProcessor struct {
	store   OutboxStore
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	store OutboxStore,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		return nil, fmt.Errorf("retry delay must be greater than 0")
	}

	return &OutboxProcessor{
		store:   store,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox batch")
			}
			p.updateQueueGauge(ctx)
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	events, err := p.store.GetPendingEventsTx(ctx, tx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		p.processEvent(ctx, tx, event)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outbox batch: %w", err)
	}
	return nil
}

// processEvent publishes one event and records the outcome on the
// locked row. Publish failures schedule a retry with linear backoff
// until MaxRetries, then the event moves to the dead letter table.
func (p *OutboxProcessor) processEvent(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) {
	msg := messaging.Message{
		ID:      event.ID.String(),
		Type:    event.EventType,
		Payload: event.Payload,
	}

	err := p.broker.Publish(ctx, ChannelPrefix+event.EventType, msg)
	if err == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		if err := p.store.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", event.ID.String())
		}
		return
	}

	p.logger.Error(err, "failed to publish event",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"retry_count", event.RetryCount)

	errMsg := err.Error()
	retryCount := event.RetryCount + 1

	if retryCount >= p.config.MaxRetries {
		p.metrics.OutboxEventsFailed.Inc()
		if err := p.store.MoveToDeadLetterTx(ctx, tx, event); err != nil {
			p.logger.Error(err, "failed to move event to dead letter", "event_id", event.ID.String())
			return
		}
		if err := p.store.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusFailed, &errMsg, nil); err != nil {
			p.logger.Error(err, "failed to mark event failed", "event_id", event.ID.String())
		}
		return
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := time.Now().Add(p.config.RetryDelay * time.Duration(retryCount))
	if err := p.store.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusPending, &errMsg, &retryAt); err != nil {
		p.logger.Error(err, "failed to schedule event retry", "event_id", event.ID.String())
	}
}

func (p *OutboxProcessor) updateQueueGauge(ctx context.Context) {
	count, err := p.store.CountPending(ctx)
	if err != nil {
		return
	}
	p.metrics.OutboxQueueSize.Set(float64(count))
}
