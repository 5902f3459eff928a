package clinic

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

type clinicFixture struct {
	svc     *Service
	clinics *repotest.Clinics
	users   *repotest.Users
}

func newClinicFixture(t *testing.T) *clinicFixture {
	t.Helper()
	f := &clinicFixture{
		clinics: &repotest.Clinics{},
		users:   &repotest.Users{},
	}
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.clinics, f.users, audit.NewService(&repotest.Audits{}, l))
	return f
}

func seedSettings(t *testing.T, f *clinicFixture) *model.ClinicSettings {
	t.Helper()
	settings := &model.ClinicSettings{
		ClinicName:              "仁心中醫診所",
		Phone:                   "2345 6789",
		Email:                   "clinic@example.hk",
		AppointmentSlotDuration: 15,
		AutoQueueMode:           model.QueueModeManual,
	}
	require.NoError(t, f.clinics.UpdateSettings(context.Background(), settings))
	return settings
}

func seedDoctor(t *testing.T, f *clinicFixture) *model.User {
	t.Helper()
	u := &model.User{Username: "drchan", Role: model.RoleDoctor, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func TestUpdateSettings(t *testing.T) {
	f := newClinicFixture(t)
	seedSettings(t, f)

	updated, err := f.svc.UpdateSettings(context.Background(), nil, &model.UpdateClinicSettingsRequest{
		ClinicName:        strPtr("康和堂中醫診所"),
		EnableDataMasking: boolPtr(true),
		AutoQueueMode:     strPtr("auto_front"),
	})

	require.NoError(t, err)
	assert.Equal(t, "康和堂中醫診所", updated.ClinicName)
	assert.True(t, updated.EnableDataMasking)
	assert.Equal(t, model.QueueModeAutoFront, updated.AutoQueueMode)
	assert.Equal(t, "2345 6789", updated.Phone)
	assert.Equal(t, 15, updated.AppointmentSlotDuration)
}

func TestUpdateSettings_NoRow(t *testing.T) {
	f := newClinicFixture(t)

	_, err := f.svc.UpdateSettings(context.Background(), nil, &model.UpdateClinicSettingsRequest{
		ClinicName: strPtr("康和堂中醫診所"),
	})

	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateRoom(t *testing.T) {
	f := newClinicFixture(t)

	room, err := f.svc.CreateRoom(context.Background(), &model.CreateRoomRequest{
		Name: "一號診症室",
		Code: "R1",
	})

	require.NoError(t, err)
	assert.True(t, room.IsActive)
	assert.NotEqual(t, uuid.Nil, room.ID)

	_, err = f.svc.CreateRoom(context.Background(), &model.CreateRoomRequest{
		Name: "another",
		Code: "R1",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestUpdateRoom(t *testing.T) {
	f := newClinicFixture(t)
	room, err := f.svc.CreateRoom(context.Background(), &model.CreateRoomRequest{Name: "一號診症室", Code: "R1"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateRoom(context.Background(), room.ID, &model.UpdateRoomRequest{
		Name:     strPtr("針灸室"),
		IsActive: boolPtr(false),
	})

	require.NoError(t, err)
	assert.Equal(t, "針灸室", updated.Name)
	assert.Equal(t, "R1", updated.Code)
	assert.False(t, updated.IsActive)
}

func TestCreateSchedule(t *testing.T) {
	f := newClinicFixture(t)
	doctor := seedDoctor(t, f)

	schedule, err := f.svc.CreateSchedule(context.Background(), &model.CreateScheduleRequest{
		DoctorID:    doctor.ID.String(),
		DayOfWeek:   intPtr(1),
		Period:      "morning",
		StartTime:   "09:00",
		EndTime:     "13:00",
		MaxPatients: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, doctor.ID, schedule.DoctorID)
	assert.Equal(t, model.PeriodMorning, schedule.Period)
	assert.True(t, schedule.IsActive)
	assert.Nil(t, schedule.RoomID)
}

func TestCreateSchedule_RequiresDoctorRole(t *testing.T) {
	f := newClinicFixture(t)
	assistant := &model.User{Username: "reception", Role: model.RoleAssistant, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), assistant))

	_, err := f.svc.CreateSchedule(context.Background(), &model.CreateScheduleRequest{
		DoctorID:  assistant.ID.String(),
		DayOfWeek: intPtr(1),
		Period:    "morning",
		StartTime: "09:00",
		EndTime:   "13:00",
	})

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, "user is not a doctor", appErr.Message)
}

func TestCreateSchedule_SlotTaken(t *testing.T) {
	f := newClinicFixture(t)
	doctor := seedDoctor(t, f)
	req := &model.CreateScheduleRequest{
		DoctorID:  doctor.ID.String(),
		DayOfWeek: intPtr(3),
		Period:    "afternoon",
		StartTime: "14:00",
		EndTime:   "18:00",
	}
	_, err := f.svc.CreateSchedule(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.CreateSchedule(context.Background(), req)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, "doctor already has a schedule for this slot", appErr.Message)
}

func TestUpdateSchedule_ClearsRoom(t *testing.T) {
	f := newClinicFixture(t)
	doctor := seedDoctor(t, f)
	room, err := f.svc.CreateRoom(context.Background(), &model.CreateRoomRequest{Name: "一號診症室", Code: "R1"})
	require.NoError(t, err)

	schedule, err := f.svc.CreateSchedule(context.Background(), &model.CreateScheduleRequest{
		DoctorID:  doctor.ID.String(),
		RoomID:    room.ID.String(),
		DayOfWeek: intPtr(5),
		Period:    "evening",
		StartTime: "18:00",
		EndTime:   "21:00",
	})
	require.NoError(t, err)
	require.NotNil(t, schedule.RoomID)

	updated, err := f.svc.UpdateSchedule(context.Background(), schedule.ID, &model.UpdateScheduleRequest{
		RoomID:      strPtr(""),
		MaxPatients: intPtr(20),
	})

	require.NoError(t, err)
	assert.Nil(t, updated.RoomID)
	assert.Equal(t, 20, updated.MaxPatients)
}

func TestListSchedules_ByDoctor(t *testing.T) {
	f := newClinicFixture(t)
	drchan := seedDoctor(t, f)
	drlee := &model.User{Username: "drlee", Role: model.RoleDoctor, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), drlee))

	for _, tc := range []struct {
		doctor uuid.UUID
		day    int
	}{
		{drchan.ID, 1},
		{drchan.ID, 2},
		{drlee.ID, 1},
	} {
		_, err := f.svc.CreateSchedule(context.Background(), &model.CreateScheduleRequest{
			DoctorID:  tc.doctor.String(),
			DayOfWeek: intPtr(tc.day),
			Period:    "morning",
			StartTime: "09:00",
			EndTime:   "13:00",
		})
		require.NoError(t, err)
	}

	all, err := f.svc.ListSchedules(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := f.svc.ListSchedules(context.Background(), &drchan.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
