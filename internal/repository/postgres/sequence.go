package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tcmflow/clinic-api/internal/repository"
)

type sequenceRepository struct {
	BaseRepository
}

func NewSequenceRepository(base BaseRepository) repository.SequenceRepository {
	return &sequenceRepository{base}
}

// NextTx increments and returns the counter for a scope. The upsert
// takes a row lock, so concurrent transactions on the same scope
// serialize and numbers never collide.
func (r *sequenceRepository) NextTx(ctx context.Context, tx *sqlx.Tx, scope string) (int64, error) {
	query := `
		INSERT INTO number_sequences (scope, last_value)
		VALUES ($1, 1)
		ON CONFLICT (scope)
		DO UPDATE SET last_value = number_sequences.last_value + 1
		RETURNING last_value
	`
	var value int64
	if err := tx.GetContext(ctx, &value, query, scope); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", scope, err)
	}
	return value, nil
}
