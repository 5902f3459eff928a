package registration

import (
	"context"
	"fmt"
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

func testAuditor() *audit.Service {
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return audit.NewService(&repotest.Audits{}, l)
}

type fixture struct {
	svc           *Service
	regs          *repotest.Registrations
	patients      *repotest.Patients
	bills         *repotest.Bills
	prescriptions *repotest.Prescriptions
	charges       *repotest.ChargeItems
	emitter       *repotest.Emitter
}

func newFixture(t *testing.T, patients ...*model.Patient) *fixture {
	t.Helper()

	f := &fixture{
		regs:          &repotest.Registrations{},
		patients:      &repotest.Patients{Items: patients},
		bills:         &repotest.Bills{},
		prescriptions: &repotest.Prescriptions{},
		charges:       &repotest.ChargeItems{},
		emitter:       &repotest.Emitter{},
	}
	f.svc = NewService(f.regs, f.patients, f.bills, f.prescriptions, f.charges,
		&repotest.Sequences{}, f.emitter, testAuditor())
	return f
}

func testPatient() *model.Patient {
	return &model.Patient{
		Base:        model.Base{ID: uuid.New()},
		ChartNumber: "000001",
		Name:        "王小明",
		IsActive:    true,
	}
}

func TestCreateRegistration_FirstVisit(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)
	doctorID := uuid.New()

	reg, err := f.svc.CreateRegistration(context.Background(), nil, &model.CreateRegistrationRequest{
		PatientID:       patient.ID.String(),
		DoctorID:        doctorID.String(),
		RegistrationFee: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, model.VisitTypeFirst, reg.VisitType)
	assert.Equal(t, model.RegistrationStatusWaiting, reg.Status)
	assert.Equal(t, 1, reg.QueueNumber)
	assert.Equal(t, 50.0, reg.RegistrationFee)

	wantNumber := fmt.Sprintf("%s%04d", time.Now().Format("20060102"), 1)
	assert.Equal(t, wantNumber, reg.RegistrationNumber)
	assert.NotEmpty(t, reg.RegistrationTime)

	assert.Equal(t, []string{"registration.created"}, f.emitter.Events)
}

func TestCreateRegistration_FollowUpAfterCompletedVisit(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)
	f.regs.Items = append(f.regs.Items, &model.Registration{
		Base:      model.Base{ID: uuid.New()},
		PatientID: patient.ID,
		Status:    model.RegistrationStatusCompleted,
	})

	reg, err := f.svc.CreateRegistration(context.Background(), nil, &model.CreateRegistrationRequest{
		PatientID: patient.ID.String(),
		DoctorID:  uuid.New().String(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.VisitTypeFollowUp, reg.VisitType)
}

func TestCreateRegistration_QueueNumbersArePerDoctor(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)
	drWong := uuid.New()
	drChan := uuid.New()

	first, err := f.svc.CreateRegistration(context.Background(), nil, &model.CreateRegistrationRequest{
		PatientID: patient.ID.String(), DoctorID: drWong.String(),
	})
	require.NoError(t, err)
	second, err := f.svc.CreateRegistration(context.Background(), nil, &model.CreateRegistrationRequest{
		PatientID: patient.ID.String(), DoctorID: drWong.String(),
	})
	require.NoError(t, err)
	other, err := f.svc.CreateRegistration(context.Background(), nil, &model.CreateRegistrationRequest{
		PatientID: patient.ID.String(), DoctorID: drChan.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, first.QueueNumber)
	assert.Equal(t, 2, second.QueueNumber)
	assert.Equal(t, 1, other.QueueNumber, "each doctor has an independent queue")

	// Registration numbers share one daily sequence.
	assert.Equal(t, "0001", first.RegistrationNumber[8:])
	assert.Equal(t, "0002", second.RegistrationNumber[8:])
	assert.Equal(t, "0003", other.RegistrationNumber[8:])
}

func TestCreateRegistration_UnknownPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRegistration(context.Background(), nil, &model.CreateRegistrationRequest{
		PatientID: uuid.New().String(),
		DoctorID:  uuid.New().String(),
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestConvertAppointment(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)
	doctorID := uuid.New()

	appt, err := f.svc.CreateAppointment(context.Background(), nil, &model.CreateAppointmentRequest{
		PatientID:       patient.ID.String(),
		DoctorID:        doctorID.String(),
		AppointmentDate: time.Now().Format(model.DateOnly),
		AppointmentTime: "09:30",
	})
	require.NoError(t, err)

	reg, err := f.svc.ConvertAppointment(context.Background(), nil, appt.ID, 50)
	require.NoError(t, err)

	require.NotNil(t, reg.AppointmentID)
	assert.Equal(t, appt.ID, *reg.AppointmentID)
	assert.Equal(t, patient.ID, reg.PatientID)
	assert.Equal(t, doctorID, reg.DoctorID)
	assert.Equal(t, model.AppointmentStatusCompleted, appt.Status)

	_, err = f.svc.ConvertAppointment(context.Background(), nil, appt.ID, 50)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "appointment already converted", appErr.Message)
}

func TestConvertAppointment_Cancelled(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)

	appt, err := f.svc.CreateAppointment(context.Background(), nil, &model.CreateAppointmentRequest{
		PatientID:       patient.ID.String(),
		DoctorID:        uuid.New().String(),
		AppointmentDate: time.Now().Format(model.DateOnly),
		AppointmentTime: "09:30",
	})
	require.NoError(t, err)
	_, err = f.svc.CancelAppointment(context.Background(), appt.ID)
	require.NoError(t, err)

	_, err = f.svc.ConvertAppointment(context.Background(), nil, appt.ID, 50)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "cancelled appointments cannot be converted", appErr.Message)
}

func TestConfirmAppointment_OnlyPending(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)

	appt, err := f.svc.CreateAppointment(context.Background(), nil, &model.CreateAppointmentRequest{
		PatientID:       patient.ID.String(),
		DoctorID:        uuid.New().String(),
		AppointmentDate: time.Now().Format(model.DateOnly),
		AppointmentTime: "09:30",
	})
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)

	_, err = f.svc.ConfirmAppointment(context.Background(), appt.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func startedRegistration(t *testing.T, f *fixture, patient *model.Patient) *model.Registration {
	t.Helper()

	reg, err := f.svc.CreateRegistration(context.Background(), nil, &model.CreateRegistrationRequest{
		PatientID: patient.ID.String(),
		DoctorID:  uuid.New().String(),
	})
	require.NoError(t, err)
	_, err = f.svc.StartConsultation(context.Background(), reg.ID)
	require.NoError(t, err)
	return reg
}

func TestStartConsultation(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)

	reg := startedRegistration(t, f, patient)
	assert.Equal(t, model.RegistrationStatusInConsultation, reg.Status)
	assert.NotNil(t, reg.ConsultationStart)

	_, err := f.svc.StartConsultation(context.Background(), reg.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "only waiting registrations can start consultation", appErr.Message)
}

func TestEndConsultation_CreatesAutoBill(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)
	f.charges.Items = append(f.charges.Items, &model.ChargeItem{
		Base:         model.Base{ID: uuid.New()},
		Code:         "CONSULT",
		Name:         "診金",
		ItemType:     model.ChargeItemConsultation,
		DefaultPrice: 250,
		IsActive:     true,
	})

	reg := startedRegistration(t, f, patient)
	f.prescriptions.ByRegistration = map[uuid.UUID][]*model.Prescription{
		reg.ID: {
			{Base: model.Base{ID: uuid.New()}, MedicineFee: 180},
			{Base: model.Base{ID: uuid.New()}, MedicineFee: 0},
		},
	}

	done, err := f.svc.EndConsultation(context.Background(), nil, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStatusCompleted, done.Status)
	assert.NotNil(t, done.ConsultationEnd)

	require.Len(t, f.bills.Items, 1)
	bill := f.bills.Items[0]
	assert.Equal(t, reg.ID, bill.RegistrationID)
	assert.Equal(t, patient.ID, bill.PatientID)
	assert.Equal(t, model.BillStatusPending, bill.Status)
	assert.Equal(t, 430.0, bill.TotalAmount)
	assert.Equal(t, 430.0, bill.BalanceDue)
	assert.Equal(t, "B"+time.Now().Format("20060102")+"0001", bill.BillNumber)

	require.Len(t, bill.Items, 2, "zero-fee prescriptions are not billed")
	assert.Equal(t, "Consultation fee", bill.Items[0].Description)
	assert.Equal(t, 250.0, bill.Items[0].UnitPrice)
	assert.NotNil(t, bill.Items[0].ChargeItemID)
	assert.Equal(t, "Medicine fee", bill.Items[1].Description)
	assert.Equal(t, 180.0, bill.Items[1].UnitPrice)

	assert.Contains(t, f.emitter.Events, "bill.created")
	assert.Contains(t, f.emitter.Events, "registration.completed")
}

func TestEndConsultation_DefaultFeeWithoutChargeItem(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)

	reg := startedRegistration(t, f, patient)
	_, err := f.svc.EndConsultation(context.Background(), nil, reg.ID)
	require.NoError(t, err)

	require.Len(t, f.bills.Items, 1)
	assert.Equal(t, DefaultConsultationFee, f.bills.Items[0].TotalAmount)

	require.Len(t, f.bills.Items[0].Items, 1)
	assert.Nil(t, f.bills.Items[0].Items[0].ChargeItemID)
}

func TestEndConsultation_KeepsExistingBill(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)

	reg := startedRegistration(t, f, patient)
	f.bills.Items = append(f.bills.Items, &model.Bill{
		Base:           model.Base{ID: uuid.New()},
		RegistrationID: reg.ID,
	})

	_, err := f.svc.EndConsultation(context.Background(), nil, reg.ID)
	require.NoError(t, err)

	assert.Len(t, f.bills.Items, 1)
	assert.NotContains(t, f.emitter.Events, "bill.created")
	assert.Contains(t, f.emitter.Events, "registration.completed")
}

func TestEndConsultation_RequiresInProgress(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)

	reg, err := f.svc.CreateRegistration(context.Background(), nil, &model.CreateRegistrationRequest{
		PatientID: patient.ID.String(),
		DoctorID:  uuid.New().String(),
	})
	require.NoError(t, err)

	_, err = f.svc.EndConsultation(context.Background(), nil, reg.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "consultation is not in progress", appErr.Message)
}

func TestCancelRegistration(t *testing.T) {
	patient := testPatient()
	f := newFixture(t, patient)

	reg, err := f.svc.CreateRegistration(context.Background(), nil, &model.CreateRegistrationRequest{
		PatientID: patient.ID.String(),
		DoctorID:  uuid.New().String(),
	})
	require.NoError(t, err)

	cancelled, err := f.svc.CancelRegistration(context.Background(), nil, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStatusCancelled, cancelled.Status)

	// A closed registration cannot be closed again.
	_, err = f.svc.MarkNoShow(context.Background(), nil, reg.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestQueue_GroupsByStage(t *testing.T) {
	f := newFixture(t)
	f.regs.Items = []*model.Registration{
		{Base: model.Base{ID: uuid.New()}, Status: model.RegistrationStatusWaiting, QueueNumber: 1},
		{Base: model.Base{ID: uuid.New()}, Status: model.RegistrationStatusWaiting, QueueNumber: 2},
		{Base: model.Base{ID: uuid.New()}, Status: model.RegistrationStatusInConsultation, QueueNumber: 3},
		{Base: model.Base{ID: uuid.New()}, Status: model.RegistrationStatusCompleted, QueueNumber: 4},
		{Base: model.Base{ID: uuid.New()}, Status: model.RegistrationStatusCancelled, QueueNumber: 5},
	}

	snapshot, err := f.svc.Queue(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Len(t, snapshot.Waiting, 2)
	assert.Len(t, snapshot.InConsultation, 1)
	assert.Len(t, snapshot.Completed, 1)
	assert.Equal(t, model.QueueSummary{Waiting: 2, InConsultation: 1, Completed: 1, Total: 5}, snapshot.Summary)
	assert.Equal(t, time.Now().Format(model.DateOnly), snapshot.Date)
}
