package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmflow/clinic-api/internal/model"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

func userRows(u *model.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role",
		"data_masking_enabled", "is_active", "failed_login_count",
		"created_at", "updated_at",
	}).AddRow(
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role,
		u.DataMaskingEnabled, u.IsActive, u.FailedLoginCount,
		u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(NewBaseRepository(db))

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			sqlmock.AnyArg(), "drchan", "chan@clinic.hk", "hashed", "", "",
			model.RoleDoctor, "", "CMP12345", false, true,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &model.User{
		Username:          "drchan",
		Email:             "chan@clinic.hk",
		PasswordHash:      "hashed",
		Role:              model.RoleDoctor,
		CertificateNumber: "CMP12345",
		IsActive:          true,
	}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
}

func TestUserRepository_GetByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(NewBaseRepository(db))

	want := &model.User{
		Base:         model.Base{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		Username:     "drchan",
		Email:        "chan@clinic.hk",
		PasswordHash: "hashed",
		Role:         model.RoleDoctor,
		IsActive:     true,
	}
	mock.ExpectQuery(`SELECT \* FROM users WHERE username = \$1`).
		WithArgs("drchan").
		WillReturnRows(userRows(want))

	got, err := repo.GetByUsername(context.Background(), "drchan")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, model.RoleDoctor, got.Role)
}

func TestUserRepository_GetByUsername_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(NewBaseRepository(db))

	mock.ExpectQuery(`SELECT \* FROM users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserRepository_UpdateLoginState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(NewBaseRepository(db))

	id := uuid.New()
	lockedUntil := time.Now().Add(15 * time.Minute)

	mock.ExpectExec("UPDATE users SET").
		WithArgs(5, lockedUntil, nil, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateLoginState(context.Background(), id, 5, &lockedUntil, nil)
	assert.NoError(t, err)
}

func TestSequenceRepository_NextTx(t *testing.T) {
	db, mock := newMockDB(t)
	base := NewBaseRepository(db)
	repo := NewSequenceRepository(base)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO number_sequences").
		WithArgs("registration:20260825").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(int64(7)))
	mock.ExpectCommit()

	err := base.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		n, err := repo.NextTx(context.Background(), tx, "registration:20260825")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(7), n)
		return nil
	})
	assert.NoError(t, err)
}
