package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmflow/clinic-api/internal/model"
)

func TestStockRepository_EnsureLevelTx_CreatesZeroRow(t *testing.T) {
	db, mock := newMockDB(t)
	base := NewBaseRepository(db)
	repo := NewStockRepository(base)

	medicineID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO stock_levels").
		WithArgs(sqlmock.AnyArg(), medicineID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "medicine_id", "quantity", "last_updated"}).
			AddRow(uuid.New(), medicineID, 0.0, time.Now()))
	mock.ExpectCommit()

	err := base.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		level, err := repo.EnsureLevelTx(context.Background(), tx, medicineID)
		if err != nil {
			return err
		}
		assert.Equal(t, medicineID, level.MedicineID)
		assert.Zero(t, level.Quantity)
		return nil
	})
	assert.NoError(t, err)
}

func TestStockRepository_CreateTransactionTx(t *testing.T) {
	db, mock := newMockDB(t)
	base := NewBaseRepository(db)
	repo := NewStockRepository(base)

	medicineID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO stock_transactions").
		WithArgs(
			sqlmock.AnyArg(), medicineID, model.StockTxnAdjustment,
			-5.0, 20.0, 15.0, nil, "", "damaged in storage",
			nil, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txn := &model.StockTransaction{
		MedicineID:      medicineID,
		TransactionType: model.StockTxnAdjustment,
		Quantity:        -5,
		BeforeQuantity:  20,
		AfterQuantity:   15,
		Notes:           "damaged in storage",
	}
	err := base.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return repo.CreateTransactionTx(context.Background(), tx, txn)
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, txn.ID)
}

func TestStockRepository_ListLowStock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStockRepository(NewBaseRepository(db))

	medicineID := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "medicine_id", "quantity", "last_updated",
		"medicine_code", "medicine_name", "unit", "safety_stock",
	}).AddRow(uuid.New(), medicineID, 3.0, time.Now(), "M0001", "當歸", "g", 100.0)

	mock.ExpectQuery("SELECT s.\\*, m.code AS medicine_code").
		WillReturnRows(rows)

	levels, err := repo.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, "當歸", levels[0].MedicineName)
	assert.Equal(t, 3.0, levels[0].Quantity)
	assert.Equal(t, 100.0, levels[0].SafetyStock)
}
