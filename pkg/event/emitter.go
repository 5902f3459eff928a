package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
)

// OutboxWriter persists events. CreateTx writes inside the caller's
// transaction so the event commits or rolls back with the change that
// produced it.
type OutboxWriter interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error
}

// Emitter records domain events for asynchronous publication.
type Emitter interface {
	EmitTx(ctx context.Context, tx *sqlx.Tx, eventType string, payload interface{}) error
}

type outboxEmitter struct {
	writer OutboxWriter
}

func NewEmitter(writer OutboxWriter) Emitter {
	return &outboxEmitter{writer: writer}
}

func (e *outboxEmitter) EmitTx(ctx context.Context, tx *sqlx.Tx, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	evt := &model.OutboxEvent{
		EventType: eventType,
		Payload:   data,
	}
	if err := e.writer.CreateTx(ctx, tx, evt); err != nil {
		return fmt.Errorf("failed to persist event %s: %w", eventType, err)
	}
	return nil
}

// NopEmitter drops all events. Used in tests and in commands that do
// not publish.
type NopEmitter struct{}

func (NopEmitter) EmitTx(ctx context.Context, tx *sqlx.Tx, eventType string, payload interface{}) error {
	return nil
}
