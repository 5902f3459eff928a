// Package repotest provides in-memory fakes for the repository interfaces.
// Service tests seed the exported slices directly and assert on what the
// service wrote back. Transactional helpers invoke their callback with a
// nil *sqlx.Tx; nothing here touches a database.
package repotest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
)

var (
	_ repository.SequenceRepository = (*Sequences)(nil)
	_ repository.AuditRepository    = (*Audits)(nil)
)

// stamp fills in identity and timestamps the way the SQL layer does on insert.
func stamp(b *model.Base) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Sequences hands out monotonically increasing numbers per scope.
type Sequences struct {
	Counters map[string]int64
}

func (s *Sequences) NextTx(_ context.Context, _ *sqlx.Tx, scope string) (int64, error) {
	if s.Counters == nil {
		s.Counters = make(map[string]int64)
	}
	s.Counters[scope]++
	return s.Counters[scope], nil
}

// Emitter records every event type handed to it, in order.
type Emitter struct {
	Events   []string
	Payloads []interface{}
}

func (e *Emitter) EmitTx(_ context.Context, _ *sqlx.Tx, eventType string, payload interface{}) error {
	e.Events = append(e.Events, eventType)
	e.Payloads = append(e.Payloads, payload)
	return nil
}

// Audits collects audit entries without filtering.
type Audits struct {
	Entries []*model.AuditLog
}

func (a *Audits) Create(_ context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	a.Entries = append(a.Entries, entry)
	return nil
}

func (a *Audits) List(_ context.Context, entityType string, entityID *uuid.UUID, limit int) ([]*model.AuditLog, error) {
	var out []*model.AuditLog
	for _, e := range a.Entries {
		if entityType != "" && e.EntityType != entityType {
			continue
		}
		if entityID != nil && (e.EntityID == nil || *e.EntityID != *entityID) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (a *Audits) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	var kept []*model.AuditLog
	var removed int64
	for _, e := range a.Entries {
		if e.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	a.Entries = kept
	return removed, nil
}
