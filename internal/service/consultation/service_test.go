package consultation

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository/repotest"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
	"github.com/tcmflow/clinic-api/pkg/logger"
)

type consultFixture struct {
	svc           *Service
	consultations *repotest.Consultations
	regs          *repotest.Registrations
	certs         *repotest.Certificates

	doctorID  uuid.UUID
	patientID uuid.UUID
}

func newConsultFixture(t *testing.T) *consultFixture {
	t.Helper()

	f := &consultFixture{
		consultations: &repotest.Consultations{},
		regs:          &repotest.Registrations{},
		certs:         &repotest.Certificates{},
		doctorID:      uuid.New(),
		patientID:     uuid.New(),
	}
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.consultations, f.regs, f.certs, &repotest.Sequences{},
		audit.NewService(&repotest.Audits{}, l))
	return f
}

func seedRegistration(f *consultFixture, status model.RegistrationStatus) *model.Registration {
	reg := &model.Registration{
		Base:      model.Base{ID: uuid.New()},
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Status:    status,
	}
	f.regs.Items = append(f.regs.Items, reg)
	return reg
}

func TestCreateConsultation(t *testing.T) {
	f := newConsultFixture(t)
	reg := seedRegistration(f, model.RegistrationStatusInConsultation)

	c, err := f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
		RegistrationID:   reg.ID.String(),
		ChiefComplaint:   "咳嗽三日，夜間加重",
		TongueAppearance: "舌淡紅，苔薄白",
		Pulse:            "脈浮緊",
		TCMDiagnosis:     "風寒犯肺",
		FollowUpDate:     "2026-09-01",
	})
	require.NoError(t, err)
	assert.Equal(t, f.doctorID, c.DoctorID)
	assert.Equal(t, reg.ID, c.RegistrationID)
	require.NotNil(t, c.FollowUpDate)
	assert.Equal(t, "2026-09-01", c.FollowUpDate.Format(model.DateOnly))
}

func TestCreateConsultation_ClosedRegistration(t *testing.T) {
	f := newConsultFixture(t)

	for _, status := range []model.RegistrationStatus{
		model.RegistrationStatusCancelled,
		model.RegistrationStatusNoShow,
	} {
		reg := seedRegistration(f, status)
		_, err := f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
			RegistrationID: reg.ID.String(),
		})
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok, "status %s", status)
		assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
		assert.Equal(t, "registration is closed", appErr.Message)
	}
}

func TestCreateConsultation_OnePerRegistration(t *testing.T) {
	f := newConsultFixture(t)
	reg := seedRegistration(f, model.RegistrationStatusInConsultation)

	_, err := f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
		RegistrationID: reg.ID.String(),
	})
	require.NoError(t, err)

	_, err = f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
		RegistrationID: reg.ID.String(),
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, "consultation already exists for this registration", appErr.Message)
}

func TestUpdateConsultation(t *testing.T) {
	f := newConsultFixture(t)
	reg := seedRegistration(f, model.RegistrationStatusInConsultation)
	c, err := f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
		RegistrationID: reg.ID.String(),
		ChiefComplaint: "咳嗽三日",
		FollowUpDate:   "2026-09-01",
	})
	require.NoError(t, err)

	pulse := "脈細數"
	clearFollowUp := ""
	updated, err := f.svc.UpdateConsultation(context.Background(), nil, c.ID, &model.UpdateConsultationRequest{
		Pulse:        &pulse,
		FollowUpDate: &clearFollowUp,
	})
	require.NoError(t, err)
	assert.Equal(t, "脈細數", updated.Pulse)
	assert.Equal(t, "咳嗽三日", updated.ChiefComplaint)
	assert.Nil(t, updated.FollowUpDate)
}

func TestCopyFromPrevious(t *testing.T) {
	f := newConsultFixture(t)

	previousReg := seedRegistration(f, model.RegistrationStatusCompleted)
	previous := &model.Consultation{
		Base:                    model.Base{ID: uuid.New(), CreatedAt: time.Now().Add(-14 * 24 * time.Hour)},
		RegistrationID:          previousReg.ID,
		DoctorID:                f.doctorID,
		PatientID:               &f.patientID,
		ChiefComplaint:          "失眠多夢",
		TongueAppearance:        "舌紅少苔",
		Pulse:                   "脈細數",
		TCMDiagnosis:            "心腎不交",
		SyndromeDifferentiation: "陰虛火旺",
		TreatmentPrinciple:      "滋陰降火，交通心腎",
		Advice:                  "忌濃茶咖啡",
	}
	f.consultations.Items = append(f.consultations.Items, previous)

	reg := seedRegistration(f, model.RegistrationStatusInConsultation)
	current, err := f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
		RegistrationID: reg.ID.String(),
	})
	require.NoError(t, err)

	copied, err := f.svc.CopyFromPrevious(context.Background(), nil, current.ID)
	require.NoError(t, err)
	assert.Equal(t, "失眠多夢", copied.ChiefComplaint)
	assert.Equal(t, "舌紅少苔", copied.TongueAppearance)
	assert.Equal(t, "脈細數", copied.Pulse)
	assert.Equal(t, "心腎不交", copied.TCMDiagnosis)
	assert.Equal(t, "陰虛火旺", copied.SyndromeDifferentiation)
	assert.Equal(t, "滋陰降火，交通心腎", copied.TreatmentPrinciple)

	// Advice is visit-specific and stays untouched.
	assert.Empty(t, copied.Advice)
}

func TestCopyFromPrevious_NoHistory(t *testing.T) {
	f := newConsultFixture(t)
	reg := seedRegistration(f, model.RegistrationStatusInConsultation)
	current, err := f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
		RegistrationID: reg.ID.String(),
	})
	require.NoError(t, err)

	_, err = f.svc.CopyFromPrevious(context.Background(), nil, current.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTermsByCategory(t *testing.T) {
	f := newConsultFixture(t)

	for _, td := range []struct {
		category, code, name string
	}{
		{"pulse", "P01", "脈浮"},
		{"pulse", "P02", "脈沉"},
		{"tongue", "T01", "舌淡紅"},
	} {
		_, err := f.svc.CreateTerm(context.Background(), &model.CreateDiagnosticTermRequest{
			Category: td.category, Code: td.code, Name: td.name,
		})
		require.NoError(t, err)
	}

	grouped, err := f.svc.TermsByCategory(context.Background())
	require.NoError(t, err)
	assert.Len(t, grouped, 2)
	assert.Len(t, grouped["pulse"], 2)
	assert.Len(t, grouped["tongue"], 1)
}

func TestCreateCertificate(t *testing.T) {
	f := newConsultFixture(t)
	reg := seedRegistration(f, model.RegistrationStatusInConsultation)
	c, err := f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
		RegistrationID: reg.ID.String(),
	})
	require.NoError(t, err)

	cert, err := f.svc.CreateCertificate(context.Background(), &f.doctorID, &model.CreateCertificateRequest{
		ConsultationID:  c.ID.String(),
		CertificateType: "sick_leave",
		Content:         "because of illness, rest is advised for three days",
		SickLeaveStart:  "2026-08-25",
		SickLeaveEnd:    "2026-08-27",
	})
	require.NoError(t, err)
	assert.Equal(t, "C"+time.Now().Format("20060102")+"0001", cert.CertificateNumber)
	assert.Equal(t, model.CertificateType("sick_leave"), cert.CertificateType)
	require.NotNil(t, cert.SickLeaveStart)
	require.NotNil(t, cert.SickLeaveEnd)
}

func TestCreateCertificate_SickLeaveRange(t *testing.T) {
	f := newConsultFixture(t)
	reg := seedRegistration(f, model.RegistrationStatusInConsultation)
	c, err := f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
		RegistrationID: reg.ID.String(),
	})
	require.NoError(t, err)

	_, err = f.svc.CreateCertificate(context.Background(), &f.doctorID, &model.CreateCertificateRequest{
		ConsultationID:  c.ID.String(),
		CertificateType: "sick_leave",
		Content:         "rest advised",
		SickLeaveStart:  "2026-08-27",
		SickLeaveEnd:    "2026-08-25",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, "sick leave end precedes start", appErr.Message)
}

func TestRecordPrint(t *testing.T) {
	f := newConsultFixture(t)
	reg := seedRegistration(f, model.RegistrationStatusInConsultation)
	c, err := f.svc.CreateConsultation(context.Background(), f.doctorID, &model.CreateConsultationRequest{
		RegistrationID: reg.ID.String(),
	})
	require.NoError(t, err)
	cert, err := f.svc.CreateCertificate(context.Background(), &f.doctorID, &model.CreateCertificateRequest{
		ConsultationID:  c.ID.String(),
		CertificateType: "medical",
		Content:         "attended clinic today",
	})
	require.NoError(t, err)
	assert.Zero(t, cert.PrintCount)

	printed, err := f.svc.RecordPrint(context.Background(), cert.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, printed.PrintCount)
	require.NotNil(t, printed.LastPrintedAt)

	printed, err = f.svc.RecordPrint(context.Background(), cert.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, printed.PrintCount)
}

func TestRecordPrint_UnknownCertificate(t *testing.T) {
	f := newConsultFixture(t)

	_, err := f.svc.RecordPrint(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
