package patient

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository/repotest"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/logger"
)

type patientFixture struct {
	svc      *Service
	patients *repotest.Patients
	emitter  *repotest.Emitter
}

func newPatientFixture(t *testing.T) *patientFixture {
	t.Helper()

	f := &patientFixture{
		patients: &repotest.Patients{},
		emitter:  &repotest.Emitter{},
	}
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.patients, &repotest.Sequences{}, f.emitter,
		audit.NewService(&repotest.Audits{}, l))
	return f
}

func createPatient(t *testing.T, f *patientFixture, name string) *model.Patient {
	t.Helper()

	p, err := f.svc.CreatePatient(context.Background(), nil, &model.CreatePatientRequest{
		Name:         name,
		Gender:       "male",
		BirthDate:    "1985-03-12",
		IDCardNumber: "A123456(7)",
		Phone:        "2345 6789",
		Mobile:       "9123 4567",
	})
	require.NoError(t, err)
	return p
}

func TestCreatePatient(t *testing.T) {
	f := newPatientFixture(t)

	first := createPatient(t, f, "王小明")
	second := createPatient(t, f, "陳大文")

	assert.Equal(t, "000001", first.ChartNumber)
	assert.Equal(t, "000002", second.ChartNumber)
	assert.True(t, first.IsActive)
	require.NotNil(t, first.BirthDate)
	assert.Equal(t, 1985, first.BirthDate.Year())

	assert.Equal(t, []string{"patient.created", "patient.created"}, f.emitter.Events)
}

func TestCreatePatient_InvalidBirthDate(t *testing.T) {
	f := newPatientFixture(t)

	_, err := f.svc.CreatePatient(context.Background(), nil, &model.CreatePatientRequest{
		Name: "王小明", Gender: "male", BirthDate: "12/03/1985",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, "invalid birth date", appErr.Message)
}

func TestMaskIDCard(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"123456", "123456"},
		{"1234567", "1234***567"},
		{"A123456(7)", "A123***(7)"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MaskIDCard(tc.in), "input %q", tc.in)
	}
}

func TestMaskPhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"9123", "9123"},
		{"91234", "9123****"},
		{"9123 4567", "9123****"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MaskPhone(tc.in), "input %q", tc.in)
	}
}

func TestGetPatient_Masking(t *testing.T) {
	f := newPatientFixture(t)
	p := createPatient(t, f, "王小明")

	plain, err := f.svc.GetPatient(context.Background(), p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "A123456(7)", plain.IDCardNumber)

	masked, err := f.svc.GetPatient(context.Background(), p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "A123***(7)", masked.IDCardNumber)
	assert.Equal(t, "2345****", masked.Phone)
	assert.Equal(t, "9123****", masked.Mobile)
}

func TestSearchPatients_MinQueryLength(t *testing.T) {
	f := newPatientFixture(t)
	createPatient(t, f, "王小明")

	for _, query := range []string{"", "王", "  王  "} {
		found, err := f.svc.SearchPatients(context.Background(), query, false)
		require.NoError(t, err)
		assert.Empty(t, found, "query %q", query)
	}

	found, err := f.svc.SearchPatients(context.Background(), "王小", false)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "王小明", found[0].Name)
}

func TestSearchPatients_ByChartNumber(t *testing.T) {
	f := newPatientFixture(t)
	createPatient(t, f, "王小明")

	found, err := f.svc.SearchPatients(context.Background(), "000001", false)
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestUpdatePatient(t *testing.T) {
	f := newPatientFixture(t)
	p := createPatient(t, f, "王小明")

	mobile := "6123 4567"
	clearBirth := ""
	updated, err := f.svc.UpdatePatient(context.Background(), nil, p.ID, &model.UpdatePatientRequest{
		Mobile:    &mobile,
		BirthDate: &clearBirth,
	})
	require.NoError(t, err)
	assert.Equal(t, "6123 4567", updated.Mobile)
	assert.Nil(t, updated.BirthDate)
	assert.Equal(t, "王小明", updated.Name)
}

func TestDeactivatePatient(t *testing.T) {
	f := newPatientFixture(t)
	p := createPatient(t, f, "王小明")

	require.NoError(t, f.svc.DeactivatePatient(context.Background(), nil, p.ID))
	assert.False(t, p.IsActive)

	err := f.svc.DeactivatePatient(context.Background(), nil, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAddImage(t *testing.T) {
	f := newPatientFixture(t)
	p := createPatient(t, f, "王小明")

	img, err := f.svc.AddImage(context.Background(), nil, p.ID, &model.CreatePatientImageRequest{
		ImageType: "tongue",
		FilePath:  "uploads/tongue/0001.jpg",
		TakenAt:   "2026-08-25T10:30:00+08:00",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ImageType("tongue"), img.ImageType)
	require.NotNil(t, img.TakenAt)
	assert.Equal(t, 10, img.TakenAt.Hour())

	images, err := f.svc.ListImages(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestAddImage_InvalidTimestamp(t *testing.T) {
	f := newPatientFixture(t)
	p := createPatient(t, f, "王小明")

	_, err := f.svc.AddImage(context.Background(), nil, p.ID, &model.CreatePatientImageRequest{
		ImageType: "tongue", FilePath: "uploads/tongue/0001.jpg", TakenAt: "yesterday",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid taken_at timestamp", appErr.Message)
}

func TestAddImage_UnknownPatient(t *testing.T) {
	f := newPatientFixture(t)

	_, err := f.svc.AddImage(context.Background(), nil, uuid.New(), &model.CreatePatientImageRequest{
		ImageType: "tongue", FilePath: "uploads/tongue/0001.jpg",
	})
	assert.True(t, apperrors.IsNotFound(err))
}
