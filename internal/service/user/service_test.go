package user

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository/repotest"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/logger"
	"github.com/tcmflow/clinic-api/pkg/security"
)

type userFixture struct {
	svc    *Service
	users  *repotest.Users
	hasher security.PasswordHasher
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	f := &userFixture{
		users:  &repotest.Users{},
		hasher: security.NewBcryptHasher(bcrypt.MinCost),
	}
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.users, f.hasher, audit.NewService(&repotest.Audits{}, l))
	return f
}

func createDoctor(t *testing.T, f *userFixture) *model.User {
	t.Helper()

	u, err := f.svc.CreateUser(context.Background(), nil, &model.CreateUserRequest{
		Username:          "drchan",
		Email:             "chan@clinic.hk",
		Password:          "changeme123",
		FirstName:         "大文",
		LastName:          "陳",
		Role:              "doctor",
		CertificateNumber: "CMP005678",
	})
	require.NoError(t, err)
	return u
}

func TestCreateUser(t *testing.T) {
	f := newUserFixture(t)

	u := createDoctor(t, f)
	assert.True(t, u.IsActive)
	assert.Equal(t, model.RoleDoctor, u.Role)
	assert.NotEqual(t, "changeme123", u.PasswordHash)
	assert.NoError(t, f.hasher.Compare(u.PasswordHash, "changeme123"))
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	f := newUserFixture(t)
	createDoctor(t, f)

	_, err := f.svc.CreateUser(context.Background(), nil, &model.CreateUserRequest{
		Username: "drchan", Email: "other@clinic.hk", Password: "changeme123", Role: "doctor",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, "username already taken", appErr.Message)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	f := newUserFixture(t)
	createDoctor(t, f)

	_, err := f.svc.CreateUser(context.Background(), nil, &model.CreateUserRequest{
		Username: "drlee", Email: "chan@clinic.hk", Password: "changeme123", Role: "doctor",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, "email already registered", appErr.Message)
}

func TestUpdateUser(t *testing.T) {
	f := newUserFixture(t)
	u := createDoctor(t, f)

	phone := "9123 4567"
	inactive := false
	updated, err := f.svc.UpdateUser(context.Background(), nil, u.ID, &model.UpdateUserRequest{
		Phone:    &phone,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "9123 4567", updated.Phone)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "drchan", updated.Username)
}

func TestUpdateUser_EmailTakenByOther(t *testing.T) {
	f := newUserFixture(t)
	u := createDoctor(t, f)
	_, err := f.svc.CreateUser(context.Background(), nil, &model.CreateUserRequest{
		Username: "reception", Email: "reception@clinic.hk", Password: "changeme123", Role: "assistant",
	})
	require.NoError(t, err)

	taken := "reception@clinic.hk"
	_, err = f.svc.UpdateUser(context.Background(), nil, u.ID, &model.UpdateUserRequest{Email: &taken})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "email already registered", appErr.Message)

	// Re-submitting the user's own address is not a conflict.
	own := "chan@clinic.hk"
	_, err = f.svc.UpdateUser(context.Background(), nil, u.ID, &model.UpdateUserRequest{Email: &own})
	assert.NoError(t, err)
}

func TestUpdateUser_ResetsPassword(t *testing.T) {
	f := newUserFixture(t)
	u := createDoctor(t, f)

	newPassword := "n3w-password!"
	_, err := f.svc.UpdateUser(context.Background(), nil, u.ID, &model.UpdateUserRequest{Password: &newPassword})
	require.NoError(t, err)

	stored, err := f.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NoError(t, f.hasher.Compare(stored.PasswordHash, "n3w-password!"))
	assert.Error(t, f.hasher.Compare(stored.PasswordHash, "changeme123"))
}

func TestListDoctors(t *testing.T) {
	f := newUserFixture(t)
	createDoctor(t, f)
	_, err := f.svc.CreateUser(context.Background(), nil, &model.CreateUserRequest{
		Username: "reception", Email: "reception@clinic.hk", Password: "changeme123", Role: "assistant",
	})
	require.NoError(t, err)

	doctors, err := f.svc.ListDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "drchan", doctors[0].Username)
}

func TestGetUser_Unknown(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.GetUser(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
