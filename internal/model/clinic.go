package model

import (
	"github.com/google/uuid"
)

type QueueMode string

const (
	QueueModeAutoFront    QueueMode = "auto_front"
	QueueModeManual       QueueMode = "manual"
	QueueModeDoctorChoice QueueMode = "doctor_choice"
)

// ClinicSettings is a single-row table.
type ClinicSettings struct {
	Base
	ClinicName              string    `db:"clinic_name" json:"clinic_name"`
	Address                 string    `db:"address" json:"address"`
	Phone                   string    `db:"phone" json:"phone"`
	Fax                     string    `db:"fax" json:"fax"`
	Email                   string    `db:"email" json:"email"`
	EnableDataMasking       bool      `db:"enable_data_masking" json:"enable_data_masking"`
	AppointmentSlotDuration int       `db:"appointment_slot_duration" json:"appointment_slot_duration"`
	AutoQueueMode           QueueMode `db:"auto_queue_mode" json:"auto_queue_mode"`
}

type UpdateClinicSettingsRequest struct {
	ClinicName              *string `json:"clinic_name"`
	Address                 *string `json:"address"`
	Phone                   *string `json:"phone"`
	Fax                     *string `json:"fax"`
	Email                   *string `json:"email" binding:"omitempty,email"`
	EnableDataMasking       *bool   `json:"enable_data_masking"`
	AppointmentSlotDuration *int    `json:"appointment_slot_duration" binding:"omitempty,min=5,max=120"`
	AutoQueueMode           *string `json:"auto_queue_mode" binding:"omitempty,oneof=auto_front manual doctor_choice"`
}

type ClinicRoom struct {
	Base
	Name     string `db:"name" json:"name"`
	Code     string `db:"code" json:"code"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

type CreateRoomRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

type UpdateRoomRequest struct {
	Name     *string `json:"name"`
	Code     *string `json:"code"`
	IsActive *bool   `json:"is_active"`
}

type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

// Schedule is a doctor's recurring weekly slot. One row per
// doctor+day+period.
type Schedule struct {
	Base
	DoctorID    uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	RoomID      *uuid.UUID `db:"room_id" json:"room_id,omitempty"`
	DayOfWeek   int        `db:"day_of_week" json:"day_of_week"`
	Period      Period     `db:"period" json:"period"`
	StartTime   string     `db:"start_time" json:"start_time"`
	EndTime     string     `db:"end_time" json:"end_time"`
	MaxPatients int        `db:"max_patients" json:"max_patients"`
	IsActive    bool       `db:"is_active" json:"is_active"`

	DoctorName string `db:"doctor_name" json:"doctor_name,omitempty"`
	RoomName   string `db:"room_name" json:"room_name,omitempty"`
}

type CreateScheduleRequest struct {
	DoctorID    string `json:"doctor_id" binding:"required,uuid"`
	RoomID      string `json:"room_id" binding:"omitempty,uuid"`
	DayOfWeek   *int   `json:"day_of_week" binding:"required,min=0,max=6"`
	Period      string `json:"period" binding:"required,period"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	MaxPatients int    `json:"max_patients"`
}

type UpdateScheduleRequest struct {
	RoomID      *string `json:"room_id" binding:"omitempty,uuid"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	MaxPatients *int    `json:"max_patients" binding:"omitempty,min=1"`
	IsActive    *bool   `json:"is_active"`
}
